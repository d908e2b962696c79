// Package api exposes HTTP handlers for the progress service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"example.com/coursetrack/internal/auth"
	"example.com/coursetrack/internal/calendar"
	"example.com/coursetrack/internal/curriculum"
	"example.com/coursetrack/internal/domain"
)

// Handler coordinates HTTP requests with the progress and curriculum services.
type Handler struct {
	progress *domain.Service
	content  *curriculum.Service
	admin    *domain.AdminService
	now      func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(progress *domain.Service, content *curriculum.Service, admin *domain.AdminService) *Handler {
	return &Handler{
		progress: progress,
		content:  content,
		admin:    admin,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", healthz)

	mux.HandleFunc("GET /v1/progress", h.withScope(auth.ScopeProgressRead, h.getProgress))
	mux.HandleFunc("GET /v1/progress/completed", h.withScope(auth.ScopeProgressRead, h.getCompletedDays))
	mux.HandleFunc("GET /v1/progress/stats", h.withScope(auth.ScopeProgressRead, h.getStats))
	mux.HandleFunc("GET /v1/progress/weeks", h.withScope(auth.ScopeProgressRead, h.getWeeks))
	mux.HandleFunc("POST /v1/progress/init", h.withScope(auth.ScopeProgressWrite, h.initProgress))
	mux.HandleFunc("POST /v1/progress/days/{day}/complete", h.withScope(auth.ScopeProgressWrite, h.completeDay))
	mux.HandleFunc("POST /v1/progress/days/{day}/incomplete", h.withScope(auth.ScopeProgressWrite, h.reopenDay))
	mux.HandleFunc("POST /v1/progress/days/{day}/quiz", h.withScope(auth.ScopeProgressWrite, h.submitQuiz))

	mux.HandleFunc("GET /v1/calendar", h.withScope(auth.ScopeProgressRead, h.program))
	mux.HandleFunc("GET /v1/calendar/days/{day}", h.withScope(auth.ScopeProgressRead, h.describeDay))
	mux.HandleFunc("GET /v1/calendar/weeks/{week}", h.withScope(auth.ScopeProgressRead, h.weekDays))
	mux.HandleFunc("GET /v1/curriculum/days/{day}", h.withScope(auth.ScopeProgressRead, h.dayView))

	mux.HandleFunc("GET /v1/admin/plans", h.withScope(auth.ScopeContentAdmin, h.listPlans))
	mux.HandleFunc("POST /v1/admin/plans", h.withScope(auth.ScopeContentAdmin, h.createPlan))
	mux.HandleFunc("POST /v1/admin/plans/{id}/activate", h.withScope(auth.ScopeContentAdmin, h.activatePlan))
	mux.HandleFunc("DELETE /v1/admin/plans/{id}", h.withScope(auth.ScopeContentAdmin, h.deletePlan))
	mux.HandleFunc("PUT /v1/admin/content/days/{day}", h.withScope(auth.ScopeContentAdmin, h.saveDayContent))
	mux.HandleFunc("GET /v1/admin/overview", h.withScope(auth.ScopeContentAdmin, h.overview))
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type claimsHandler func(w http.ResponseWriter, r *http.Request, claims *auth.Claims)

// withScope resolves the caller's claims and enforces scope. Write scope
// implies read scope.
func (h *Handler) withScope(scope string, next claimsHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		allowed := claims.HasScope(scope)
		if scope == auth.ScopeProgressRead && claims.HasScope(auth.ScopeProgressWrite) {
			allowed = true
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
			return
		}
		next(w, r, claims)
	}
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	records, err := h.progress.GetProgress(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items := make([]ProgressView, 0, len(records))
	for _, rec := range records {
		items = append(items, toProgressView(rec))
	}
	writeJSON(w, http.StatusOK, ProgressListResponse{Items: items})
}

func (h *Handler) getCompletedDays(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	days, err := h.progress.GetCompletedDays(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompletedDaysResponse{Days: days.Sorted()})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	stats, err := h.progress.GetUserStats(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsView(stats))
}

func (h *Handler) getWeeks(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	weeks, err := h.progress.GetWeeklyProgress(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items := make([]WeekView, 0, len(weeks))
	for _, wk := range weeks {
		items = append(items, WeekView(wk))
	}
	writeJSON(w, http.StatusOK, WeeksResponse{Weeks: items})
}

func (h *Handler) initProgress(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	seeded, err := h.progress.EnsureInitialProgress(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if seeded {
		status = http.StatusCreated
	}
	writeJSON(w, status, InitResponse{Seeded: seeded})
}

func (h *Handler) completeDay(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	var req CompleteDayRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	rec, err := h.progress.MarkDayComplete(r.Context(), claims.Subject, day, domain.CompletionInput{
		TimeSpentMinutes: req.TimeSpentMinutes,
		QuizScore:        req.QuizScore,
		Notes:            req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressView(rec))
}

func (h *Handler) reopenDay(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	rec, err := h.progress.MarkDayIncomplete(r.Context(), claims.Subject, day)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressView(rec))
}

func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	var req QuizSubmissionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	view, err := h.content.DayView(r.Context(), day)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	result, err := curriculum.ScoreQuiz(view.Quiz, req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := QuizResultResponse{
		Score:   result.Score,
		Total:   result.Total,
		Passed:  result.Passed,
		Correct: result.Correct,
	}
	if result.Passed {
		score := result.Score
		rec, err := h.progress.MarkDayComplete(r.Context(), claims.Subject, day, domain.CompletionInput{
			TimeSpentMinutes: req.TimeSpentMinutes,
			QuizScore:        &score,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		pv := toProgressView(rec)
		resp.Progress = &pv
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) program(w http.ResponseWriter, _ *http.Request, _ *auth.Claims) {
	writeJSON(w, http.StatusOK, ProgramResponse{Days: calendar.Program()})
}

func (h *Handler) describeDay(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	desc, err := calendar.Describe(day)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	weekDays, err := calendar.CurrentWeekDays(day)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarDayResponse{DayDescriptor: desc, WeekDays: weekDays})
}

func (h *Handler) weekDays(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	week, err := strconv.Atoi(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "week must be an integer")
		return
	}
	days, err := calendar.WeekDays(week)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WeekDaysResponse{Week: week, Days: days})
}

// pathDay parses the {day} path segment. Range checks are left to the services.
func pathDay(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "day must be an integer")
		return 0, false
	}
	return day, true
}

// decodeBody parses and validates a JSON body. An empty body is accepted when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	if optional && r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}
