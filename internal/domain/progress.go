package domain

import (
	"context"
	"fmt"
	"time"

	"example.com/coursetrack/internal/calendar"
)

// ProgressRecord is one user's engagement with one program day.
type ProgressRecord struct {
	UserID           string
	Day              int
	Completed        bool
	CompletedAt      *time.Time
	TimeSpentMinutes *int
	QuizScore        *int
	Notes            *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProgressFields is the payload of an upsert keyed on (user, day).
//
// Completed and CompletedAt are always written. TimeSpentMinutes, QuizScore and
// Notes overwrite the stored value when set and leave it untouched when nil.
type ProgressFields struct {
	Completed        bool
	CompletedAt      *time.Time
	TimeSpentMinutes *int
	QuizScore        *int
	Notes            *string
	UpdatedAt        time.Time
}

// Validate enforces the record constraints for day.
func (f ProgressFields) Validate(day int) error {
	if err := calendar.ValidateDay(day); err != nil {
		return err
	}
	if f.TimeSpentMinutes != nil && *f.TimeSpentMinutes < 0 {
		return fmt.Errorf("%w: time_spent_minutes must be >= 0", ErrInvalidProgress)
	}
	if f.QuizScore != nil && *f.QuizScore < 0 {
		return fmt.Errorf("%w: quiz_score must be >= 0", ErrInvalidProgress)
	}
	if f.Completed != (f.CompletedAt != nil) {
		return fmt.Errorf("%w: completed_at must be set iff completed", ErrInvalidProgress)
	}
	return nil
}

// Apply merges the fields onto existing (nil for a new row) and returns the resulting record.
func (f ProgressFields) Apply(userID string, day int, existing *ProgressRecord, now time.Time) ProgressRecord {
	updatedAt := f.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	rec := ProgressRecord{UserID: userID, Day: day, CreatedAt: updatedAt}
	if existing != nil {
		rec = *existing
	}

	rec.Completed = f.Completed
	rec.CompletedAt = nil
	if f.CompletedAt != nil {
		ts := f.CompletedAt.UTC()
		rec.CompletedAt = &ts
	}
	if f.TimeSpentMinutes != nil {
		v := *f.TimeSpentMinutes
		rec.TimeSpentMinutes = &v
	}
	if f.QuizScore != nil {
		v := *f.QuizScore
		rec.QuizScore = &v
	}
	if f.Notes != nil {
		v := *f.Notes
		rec.Notes = &v
	}
	rec.UpdatedAt = updatedAt
	return rec
}

// ProgressStore is the persistence boundary for progress records.
type ProgressStore interface {
	// ListProgress returns every record of the user ordered by day ascending.
	ListProgress(ctx context.Context, userID string) ([]ProgressRecord, error)
	// UpsertProgress writes exactly one row for (userID, day).
	UpsertProgress(ctx context.Context, userID string, day int, fields ProgressFields) (ProgressRecord, error)
}

// ProgressSeeder is implemented by stores able to write the initial baseline atomically.
type ProgressSeeder interface {
	// SeedProgress upserts fields for each day in a single unit of work.
	SeedProgress(ctx context.Context, userID string, days []int, fields ProgressFields) error
}

// ProgressAuditStore exposes cross-user reads for the admin overview.
type ProgressAuditStore interface {
	ListAllProgress(ctx context.Context) ([]ProgressRecord, error)
}
