// Package events defines the progress event payloads published through the outbox.
package events

import "time"

// Event type names carried in the outbox and the event_type Kafka header.
const (
	TypeDayCompleted = "progress.day_completed"
	TypeDayReopened  = "progress.day_reopened"
	TypeSeeded       = "progress.seeded"
)

// DayCompleted is emitted when a day transitions to completed.
type DayCompleted struct {
	UserID           string    `json:"user_id"`
	Day              int       `json:"day"`
	WeekNumber       int       `json:"week_number"`
	CompletedAt      time.Time `json:"completed_at"`
	TimeSpentMinutes *int      `json:"time_spent_minutes,omitempty"`
	QuizScore        *int      `json:"quiz_score,omitempty"`
}

// DayReopened is emitted when a completed day is marked incomplete again.
type DayReopened struct {
	UserID     string    `json:"user_id"`
	Day        int       `json:"day"`
	WeekNumber int       `json:"week_number"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Seeded is emitted once when a new learner receives the baseline days.
type Seeded struct {
	UserID     string    `json:"user_id"`
	Days       []int     `json:"days"`
	OccurredAt time.Time `json:"occurred_at"`
}
