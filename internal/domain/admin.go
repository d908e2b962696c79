package domain

import (
	"context"
	"sort"
	"time"

	"example.com/coursetrack/internal/calendar"
)

// ActiveWindow is how recently a learner must have written progress to count as active.
const ActiveWindow = 7 * 24 * time.Hour

// Learner status values reported by the admin overview.
const (
	StatusNotStarted = "not_started"
	StatusActive     = "active"
	StatusCompleted  = "completed"
)

// LearnerSummary describes one learner in the cohort overview.
type LearnerSummary struct {
	UserID          string
	DaysCompleted   int
	CompletedDays   []int
	ProgressPercent float64
	TotalHours      float64
	QuizScores      []int
	LastActive      *time.Time
	Status          string
}

// CohortOverview aggregates every learner with stored progress.
type CohortOverview struct {
	TotalUsers      int
	ActiveUsers     int
	CompletedUsers  int
	AverageProgress float64
	Learners        []LearnerSummary
}

// AdminService provides read-only cohort reporting.
type AdminService struct {
	store ProgressAuditStore
}

// NewAdminService constructs an AdminService.
func NewAdminService(store ProgressAuditStore) *AdminService {
	return &AdminService{store: store}
}

// Overview summarises all learners as of now.
func (a *AdminService) Overview(ctx context.Context, now time.Time) (CohortOverview, error) {
	records, err := a.store.ListAllProgress(ctx)
	if err != nil {
		return CohortOverview{}, wrapStoreError("list all progress", err)
	}
	return BuildOverview(records, now), nil
}

// BuildOverview groups records by user and derives the cohort totals.
func BuildOverview(records []ProgressRecord, now time.Time) CohortOverview {
	byUser := make(map[string][]ProgressRecord)
	for _, rec := range records {
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}

	users := make([]string, 0, len(byUser))
	for userID := range byUser {
		users = append(users, userID)
	}
	sort.Strings(users)

	overview := CohortOverview{Learners: make([]LearnerSummary, 0, len(users))}
	var progressSum float64
	for _, userID := range users {
		summary := summarizeLearner(userID, byUser[userID])
		if summary.LastActive != nil && now.Sub(*summary.LastActive) <= ActiveWindow {
			overview.ActiveUsers++
		}
		if summary.DaysCompleted >= calendar.TotalDays {
			overview.CompletedUsers++
		}
		progressSum += summary.ProgressPercent
		overview.Learners = append(overview.Learners, summary)
	}

	overview.TotalUsers = len(users)
	if overview.TotalUsers > 0 {
		overview.AverageProgress = roundTenth(progressSum / float64(overview.TotalUsers))
	}
	return overview
}

func summarizeLearner(userID string, records []ProgressRecord) LearnerSummary {
	stats := ComputeStats(records)
	summary := LearnerSummary{
		UserID:          userID,
		DaysCompleted:   stats.TotalDaysCompleted,
		CompletedDays:   CompletedDaySet(records).Sorted(),
		ProgressPercent: stats.CompletionPercent,
		TotalHours:      stats.TotalHoursLearned,
		QuizScores:      []int{},
	}

	for _, rec := range records {
		if rec.QuizScore != nil && *rec.QuizScore > 0 {
			summary.QuizScores = append(summary.QuizScores, *rec.QuizScore)
		}
		if summary.LastActive == nil || rec.UpdatedAt.After(*summary.LastActive) {
			ts := rec.UpdatedAt
			summary.LastActive = &ts
		}
	}

	switch {
	case summary.DaysCompleted >= calendar.TotalDays:
		summary.Status = StatusCompleted
	case summary.DaysCompleted > 0:
		summary.Status = StatusActive
	default:
		summary.Status = StatusNotStarted
	}
	return summary
}
