package api

import (
	"time"

	"example.com/coursetrack/internal/calendar"
	"example.com/coursetrack/internal/curriculum"
	"example.com/coursetrack/internal/domain"
)

// CompleteDayRequest is the optional payload for POST /v1/progress/days/{day}/complete.
type CompleteDayRequest struct {
	TimeSpentMinutes *int    `json:"time_spent_minutes" validate:"omitempty,gte=0"`
	QuizScore        *int    `json:"quiz_score" validate:"omitempty,gte=0"`
	Notes            *string `json:"notes" validate:"omitempty,max=4000"`
}

// QuizSubmissionRequest carries the selected option index for each question.
type QuizSubmissionRequest struct {
	Answers          []int `json:"answers" validate:"required,min=1,dive,gte=0"`
	TimeSpentMinutes *int  `json:"time_spent_minutes" validate:"omitempty,gte=0"`
}

// CreatePlanRequest is the payload for POST /v1/admin/plans.
type CreatePlanRequest struct {
	Name      string                     `json:"name" validate:"required"`
	TotalDays int                        `json:"total_days" validate:"gt=0"`
	Days      map[int][]curriculum.Video `json:"days" validate:"required,min=1"`
}

// ProgressView exposes a stored progress record.
type ProgressView struct {
	Day              int        `json:"day"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TimeSpentMinutes *int       `json:"time_spent_minutes,omitempty"`
	QuizScore        *int       `json:"quiz_score,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ProgressListResponse packages the caller's records.
type ProgressListResponse struct {
	Items []ProgressView `json:"items"`
}

// CompletedDaysResponse lists completed days in ascending order.
type CompletedDaysResponse struct {
	Days []int `json:"days"`
}

// StatsView is the JSON form of domain.UserStats.
type StatsView struct {
	TotalDaysCompleted    int     `json:"total_days_completed"`
	TotalHoursLearned     float64 `json:"total_hours_learned"`
	CurrentStreak         int     `json:"current_streak"`
	LongestStreak         int     `json:"longest_streak"`
	AverageQuizScore      float64 `json:"average_quiz_score"`
	CompletionPercent     float64 `json:"completion_percent"`
	PlannedHoursCompleted int     `json:"planned_hours_completed"`
}

// WeekView mirrors domain.WeekProgress field for field.
type WeekView struct {
	Week           int   `json:"week"`
	Days           []int `json:"days"`
	CompletedDays  []int `json:"completed_days"`
	PlannedHours   int   `json:"planned_hours"`
	CompletedHours int   `json:"completed_hours"`
}

// WeeksResponse lists every program week.
type WeeksResponse struct {
	Weeks []WeekView `json:"weeks"`
}

// InitResponse reports whether the starter days were written.
type InitResponse struct {
	Seeded bool `json:"seeded"`
}

// QuizResultResponse is returned after grading a submission. Progress is set
// when the pass mark was reached and the day got completed.
type QuizResultResponse struct {
	Score    int           `json:"score"`
	Total    int           `json:"total"`
	Passed   bool          `json:"passed"`
	Correct  []bool        `json:"correct"`
	Progress *ProgressView `json:"progress,omitempty"`
}

// ProgramResponse lists every program day.
type ProgramResponse struct {
	Days []calendar.DayDescriptor `json:"days"`
}

// CalendarDayResponse describes a day and the days of its week.
type CalendarDayResponse struct {
	calendar.DayDescriptor
	WeekDays []int `json:"week_days"`
}

// WeekDaysResponse lists the days of one program week.
type WeekDaysResponse struct {
	Week int   `json:"week"`
	Days []int `json:"days"`
}

// DayContentView is everything a learner sees for one day.
type DayContentView struct {
	Day                 int                       `json:"day"`
	WeekNumber          int                       `json:"week_number"`
	WeekdayName         string                    `json:"weekday_name"`
	IsWeekend           bool                      `json:"is_weekend"`
	TimeAllocationHours int                       `json:"time_allocation_hours"`
	PlanID              string                    `json:"plan_id,omitempty"`
	Videos              []curriculum.Video        `json:"videos"`
	Summary             string                    `json:"summary"`
	KeyPoints           []string                  `json:"key_points"`
	Quiz                []curriculum.QuizQuestion `json:"quiz"`
	Fallback            bool                      `json:"fallback"`
}

// PlanView exposes a learning plan.
type PlanView struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	TotalDays int                        `json:"total_days"`
	Days      map[int][]curriculum.Video `json:"days"`
	IsActive  bool                       `json:"is_active"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// PlanListResponse packages plans, newest first.
type PlanListResponse struct {
	Items []PlanView `json:"items"`
}

// LearnerView summarises one learner for administrators.
type LearnerView struct {
	UserID          string     `json:"user_id"`
	DaysCompleted   int        `json:"days_completed"`
	CompletedDays   []int      `json:"completed_days"`
	ProgressPercent float64    `json:"progress_percent"`
	TotalHours      float64    `json:"total_hours"`
	QuizScores      []int      `json:"quiz_scores"`
	LastActive      *time.Time `json:"last_active,omitempty"`
	Status          string     `json:"status"`
}

// OverviewView is the cohort report.
type OverviewView struct {
	TotalUsers      int           `json:"total_users"`
	ActiveUsers     int           `json:"active_users"`
	CompletedUsers  int           `json:"completed_users"`
	AverageProgress float64       `json:"average_progress"`
	Learners        []LearnerView `json:"learners"`
}

func toProgressView(rec domain.ProgressRecord) ProgressView {
	return ProgressView{
		Day:              rec.Day,
		Completed:        rec.Completed,
		CompletedAt:      rec.CompletedAt,
		TimeSpentMinutes: rec.TimeSpentMinutes,
		QuizScore:        rec.QuizScore,
		Notes:            rec.Notes,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func toStatsView(stats domain.UserStats) StatsView {
	return StatsView(stats)
}

func toDayView(view curriculum.DayView) DayContentView {
	return DayContentView{
		Day:                 view.Day,
		WeekNumber:          view.WeekNumber,
		WeekdayName:         view.WeekdayName,
		IsWeekend:           view.IsWeekend,
		TimeAllocationHours: view.TimeAllocationHours,
		PlanID:              view.PlanID,
		Videos:              view.Videos,
		Summary:             view.Summary,
		KeyPoints:           view.KeyPoints,
		Quiz:                view.Quiz,
		Fallback:            view.Fallback,
	}
}

func toPlanView(plan curriculum.LearningPlan) PlanView {
	return PlanView{
		ID:        plan.ID,
		Name:      plan.Name,
		TotalDays: plan.TotalDays,
		Days:      plan.Days,
		IsActive:  plan.IsActive,
		CreatedAt: plan.CreatedAt,
		UpdatedAt: plan.UpdatedAt,
	}
}

func toOverviewView(overview domain.CohortOverview) OverviewView {
	out := OverviewView{
		TotalUsers:      overview.TotalUsers,
		ActiveUsers:     overview.ActiveUsers,
		CompletedUsers:  overview.CompletedUsers,
		AverageProgress: overview.AverageProgress,
		Learners:        make([]LearnerView, 0, len(overview.Learners)),
	}
	for _, l := range overview.Learners {
		out.Learners = append(out.Learners, LearnerView(l))
	}
	return out
}
