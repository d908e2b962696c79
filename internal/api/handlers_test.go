package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/coursetrack/internal/auth"
	"example.com/coursetrack/internal/curriculum"
	"example.com/coursetrack/internal/domain"
	"example.com/coursetrack/internal/persistence/memory"
)

func newTestMux(progressStore domain.ProgressStore) *http.ServeMux {
	mem := memory.NewStore()
	if progressStore == nil {
		progressStore = mem
	}
	handler := NewHandler(domain.NewService(progressStore), curriculum.NewService(mem), domain.NewAdminService(mem))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path string, body interface{}, scopes ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if scopes != nil {
		set := make(map[string]struct{}, len(scopes))
		for _, s := range scopes {
			set[s] = struct{}{}
		}
		claims := &auth.Claims{Subject: "learner-1", Scopes: set, ExpiresAt: time.Now().Add(time.Hour)}
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestProgressLifecycle(t *testing.T) {
	mux := newTestMux(nil)
	write := auth.ScopeProgressWrite

	rr := do(t, mux, http.MethodPost, "/v1/progress/init", nil, write)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.True(t, decode[InitResponse](t, rr).Seeded)

	rr = do(t, mux, http.MethodPost, "/v1/progress/init", nil, write)
	require.Equal(t, http.StatusOK, rr.Code)
	require.False(t, decode[InitResponse](t, rr).Seeded)

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/20/complete", CompleteDayRequest{
		TimeSpentMinutes: ptr(90),
		Notes:            ptr("regression"),
	}, write)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	view := decode[ProgressView](t, rr)
	require.True(t, view.Completed)
	require.NotNil(t, view.CompletedAt)
	require.Equal(t, 90, *view.TimeSpentMinutes)

	rr = do(t, mux, http.MethodGet, "/v1/progress/completed", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 20}, decode[CompletedDaysResponse](t, rr).Days)

	rr = do(t, mux, http.MethodGet, "/v1/progress/stats", nil, write)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[StatsView](t, rr)
	require.Equal(t, 14, stats.TotalDaysCompleted)
	require.Equal(t, 13, stats.LongestStreak)
	require.Zero(t, stats.CurrentStreak)
	require.Equal(t, 1.5, stats.TotalHoursLearned)

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/20/incomplete", nil, write)
	require.Equal(t, http.StatusOK, rr.Code)
	view = decode[ProgressView](t, rr)
	require.False(t, view.Completed)
	require.Nil(t, view.CompletedAt)
	require.Equal(t, "regression", *view.Notes)

	rr = do(t, mux, http.MethodGet, "/v1/progress/weeks", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusOK, rr.Code)
	weeks := decode[WeeksResponse](t, rr).Weeks
	require.Len(t, weeks, 13)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, weeks[0].CompletedDays)

	rr = do(t, mux, http.MethodGet, "/v1/progress", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode[ProgressListResponse](t, rr).Items, 14)
}

func TestInvalidDayRejected(t *testing.T) {
	mux := newTestMux(nil)

	rr := do(t, mux, http.MethodPost, "/v1/progress/days/91/complete", nil, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "validation_failed", decode[map[string]string](t, rr)["type"])

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/0/incomplete", nil, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/abc/complete", nil, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_request", decode[map[string]string](t, rr)["type"])

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/3/complete", CompleteDayRequest{QuizScore: ptr(-1)}, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, mux, http.MethodGet, "/v1/calendar/days/100", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScopesEnforced(t *testing.T) {
	mux := newTestMux(nil)

	rr := do(t, mux, http.MethodGet, "/v1/progress", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/4/complete", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, mux, http.MethodGet, "/v1/admin/overview", nil, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, mux, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

type failingStore struct {
	err error
}

func (f failingStore) ListProgress(context.Context, string) ([]domain.ProgressRecord, error) {
	return nil, f.err
}

func (f failingStore) UpsertProgress(context.Context, string, int, domain.ProgressFields) (domain.ProgressRecord, error) {
	return domain.ProgressRecord{}, f.err
}

func TestStoreFailuresMapToStatus(t *testing.T) {
	mux := newTestMux(failingStore{err: domain.NewStoreUnavailable("list progress", errors.New("dial tcp: connection refused"))})
	rr := do(t, mux, http.MethodGet, "/v1/progress/stats", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "store_unavailable", decode[map[string]string](t, rr)["type"])

	mux = newTestMux(failingStore{err: errors.New("constraint violated")})
	rr = do(t, mux, http.MethodPost, "/v1/progress/days/5/complete", nil, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "persistence_error", decode[map[string]string](t, rr)["type"])
}

func TestQuizSubmission(t *testing.T) {
	mux := newTestMux(nil)

	rr := do(t, mux, http.MethodPost, "/v1/progress/days/8/quiz", QuizSubmissionRequest{Answers: []int{0}}, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	failed := decode[QuizResultResponse](t, rr)
	require.False(t, failed.Passed)
	require.Nil(t, failed.Progress)

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/8/quiz", QuizSubmissionRequest{Answers: []int{3}, TimeSpentMinutes: ptr(25)}, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	passed := decode[QuizResultResponse](t, rr)
	require.True(t, passed.Passed)
	require.Equal(t, []bool{true}, passed.Correct)
	require.NotNil(t, passed.Progress)
	require.True(t, passed.Progress.Completed)
	require.Equal(t, 1, *passed.Progress.QuizScore)

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/8/quiz", QuizSubmissionRequest{Answers: []int{3, 1}}, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, mux, http.MethodPost, "/v1/progress/days/8/quiz", QuizSubmissionRequest{}, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminPlansAndContent(t *testing.T) {
	mux := newTestMux(nil)
	admin := auth.ScopeContentAdmin

	rr := do(t, mux, http.MethodPost, "/v1/admin/plans", CreatePlanRequest{
		Name:      "Foundations",
		TotalDays: 90,
		Days:      map[int][]curriculum.Video{1: {{Title: "Intro", Link: "https://videos.example.com/intro"}}},
	}, admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	plan := decode[PlanView](t, rr)
	require.True(t, plan.IsActive)
	require.NotEmpty(t, plan.ID)

	rr = do(t, mux, http.MethodGet, "/v1/curriculum/days/1", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusOK, rr.Code)
	day := decode[DayContentView](t, rr)
	require.Equal(t, plan.ID, day.PlanID)
	require.Len(t, day.Videos, 1)
	require.True(t, day.Fallback)
	require.Equal(t, "Monday", day.WeekdayName)

	rr = do(t, mux, http.MethodPut, "/v1/admin/content/days/1", curriculum.GeneratedContent{
		Summary:   "Neural networks from scratch.",
		KeyPoints: []string{"Perceptrons"},
		Quiz: []curriculum.QuizQuestion{{
			Question:      "What does a perceptron output?",
			Options:       []string{"A class", "A video"},
			CorrectAnswer: 0,
		}},
	}, admin)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = do(t, mux, http.MethodGet, "/v1/curriculum/days/1", nil, auth.ScopeProgressRead)
	day = decode[DayContentView](t, rr)
	require.False(t, day.Fallback)
	require.Equal(t, "Neural networks from scratch.", day.Summary)

	rr = do(t, mux, http.MethodPut, "/v1/admin/content/days/2", curriculum.GeneratedContent{KeyPoints: []string{"x"}}, admin)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, mux, http.MethodGet, "/v1/admin/plans", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode[PlanListResponse](t, rr).Items, 1)

	rr = do(t, mux, http.MethodDelete, "/v1/admin/plans/does-not-exist", nil, admin)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, mux, http.MethodPost, "/v1/admin/plans/"+plan.ID+"/activate", nil, admin)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, mux, http.MethodDelete, "/v1/admin/plans/"+plan.ID, nil, admin)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestAdminOverview(t *testing.T) {
	mux := newTestMux(nil)
	rr := do(t, mux, http.MethodPost, "/v1/progress/init", nil, auth.ScopeProgressWrite)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, mux, http.MethodGet, "/v1/admin/overview", nil, auth.ScopeContentAdmin)
	require.Equal(t, http.StatusOK, rr.Code)
	overview := decode[OverviewView](t, rr)
	require.Equal(t, 1, overview.TotalUsers)
	require.Equal(t, 1, overview.ActiveUsers)
	require.Equal(t, 14.4, overview.AverageProgress)
	require.Equal(t, "learner-1", overview.Learners[0].UserID)
	require.Equal(t, domain.StatusActive, overview.Learners[0].Status)
}

func ptr[T any](v T) *T { return &v }

func TestCalendarRoutes(t *testing.T) {
	mux := newTestMux(nil)

	rr := do(t, mux, http.MethodGet, "/v1/calendar", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode[ProgramResponse](t, rr).Days, 90)

	rr = do(t, mux, http.MethodGet, "/v1/calendar/days/90", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusOK, rr.Code)
	day := decode[CalendarDayResponse](t, rr)
	require.Equal(t, 13, day.WeekNumber)
	require.True(t, day.IsWeekend)
	require.Equal(t, []int{85, 86, 87, 88, 89, 90}, day.WeekDays)

	rr = do(t, mux, http.MethodGet, "/v1/calendar/weeks/2", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []int{8, 9, 10, 11, 12, 13, 14}, decode[WeekDaysResponse](t, rr).Days)

	rr = do(t, mux, http.MethodGet, "/v1/calendar/weeks/14", nil, auth.ScopeProgressRead)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
