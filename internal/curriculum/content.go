// Package curriculum manages learning plans and per-day study content.
package curriculum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/coursetrack/internal/calendar"
)

var (
	// ErrPlanNotFound is returned when no plan matches the request.
	ErrPlanNotFound = errors.New("learning plan not found")
	// ErrInvalidContent indicates a plan or generated content failed validation.
	ErrInvalidContent = errors.New("invalid curriculum content")
	// ErrInvalidAnswers indicates a quiz submission does not match the quiz.
	ErrInvalidAnswers = errors.New("answers do not match quiz")
)

// Video is a single study resource attached to a day.
type Video struct {
	Title string `json:"title" validate:"required"`
	Link  string `json:"link" validate:"required,url"`
}

// LearningPlan maps program days onto study videos.
type LearningPlan struct {
	ID        string
	Name      string          `validate:"required"`
	TotalDays int             `validate:"gt=0,lte=90"`
	Days      map[int][]Video `validate:"required,min=1,dive,min=1,dive"`
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the plan shape and that every day key is a program day.
func (p LearningPlan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	for day := range p.Days {
		if err := calendar.ValidateDay(day); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
		if day > p.TotalDays {
			return fmt.Errorf("%w: day %d exceeds plan length %d", ErrInvalidContent, day, p.TotalDays)
		}
	}
	return nil
}

// QuizQuestion is a multiple choice question; CorrectAnswer indexes Options.
type QuizQuestion struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"min=2,dive,required"`
	CorrectAnswer int      `json:"correct_answer" validate:"gte=0"`
	Explanation   string   `json:"explanation,omitempty"`
}

// GeneratedContent is the structured output of the content generator for one day.
type GeneratedContent struct {
	Summary   string         `json:"summary" validate:"required"`
	KeyPoints []string       `json:"key_points" validate:"min=1,dive,required"`
	Quiz      []QuizQuestion `json:"quiz" validate:"dive"`
}

// Validate reports whether the content is well formed.
func (c GeneratedContent) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return nil
}

// DaySummary is the stored summary for a day.
type DaySummary struct {
	Day       int
	Summary   string
	KeyPoints []string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DayQuiz is the stored quiz for a day.
type DayQuiz struct {
	Day       int
	Questions []QuizQuestion
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DayView is everything a learner sees for one day.
type DayView struct {
	calendar.DayDescriptor
	PlanID    string
	Videos    []Video
	Summary   string
	KeyPoints []string
	Quiz      []QuizQuestion
	Fallback  bool
}

// Store persists plans and day content.
type Store interface {
	ActivePlan(ctx context.Context) (*LearningPlan, error)
	ListPlans(ctx context.Context) ([]LearningPlan, error)
	// CreatePlan inserts plan as the only active plan.
	CreatePlan(ctx context.Context, plan LearningPlan) error
	SetActivePlan(ctx context.Context, id string) error
	DeletePlan(ctx context.Context, id string) error
	// SaveDayContent upserts the summary and quiz keyed by day.
	SaveDayContent(ctx context.Context, summary DaySummary, quiz DayQuiz) error
	// DayContent returns nil values for a day without stored content.
	DayContent(ctx context.Context, day int) (*DaySummary, *DayQuiz, error)
}
