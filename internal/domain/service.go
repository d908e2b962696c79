// Package domain defines progress bookkeeping for the 90-day program.
package domain

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"example.com/coursetrack/internal/calendar"
	"example.com/coursetrack/internal/observability"
)

// InitialCompletedDays is the number of leading days a new learner starts with.
const InitialCompletedDays = 13

// CompletionInput carries optional metadata attached to a completion.
type CompletionInput struct {
	TimeSpentMinutes *int
	QuizScore        *int
	Notes            *string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for workflow diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service orchestrates progress workflows over a ProgressStore.
type Service struct {
	store  ProgressStore
	now    func() time.Time
	logger *log.Logger
}

// NewService constructs a Service.
func NewService(store ProgressStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrMissingUser
	}
	return userID, nil
}

// GetProgress returns the user's records ordered by day.
func (s *Service) GetProgress(ctx context.Context, userID string) ([]ProgressRecord, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListProgress(ctx, userID)
	if err != nil {
		return nil, wrapStoreError("list progress", err)
	}
	return records, nil
}

// GetCompletedDays returns the set of completed days.
func (s *Service) GetCompletedDays(ctx context.Context, userID string) (DaySet, error) {
	records, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return CompletedDaySet(records), nil
}

// GetUserStats returns the aggregate snapshot for the user.
func (s *Service) GetUserStats(ctx context.Context, userID string) (UserStats, error) {
	records, err := s.GetProgress(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}
	return ComputeStats(records), nil
}

// GetWeeklyProgress returns completion grouped by program week.
func (s *Service) GetWeeklyProgress(ctx context.Context, userID string) ([]WeekProgress, error) {
	records, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return WeeklyBreakdown(records), nil
}

// MarkDayComplete records day as completed. Repeating the call leaves a single
// completed row; nil metadata keeps whatever the row already holds.
func (s *Service) MarkDayComplete(ctx context.Context, userID string, day int, input CompletionInput) (ProgressRecord, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return ProgressRecord{}, err
	}
	now := s.now().UTC()
	fields := ProgressFields{
		Completed:        true,
		CompletedAt:      &now,
		TimeSpentMinutes: input.TimeSpentMinutes,
		QuizScore:        input.QuizScore,
		Notes:            input.Notes,
		UpdatedAt:        now,
	}
	if err := fields.Validate(day); err != nil {
		return ProgressRecord{}, err
	}

	rec, err := s.store.UpsertProgress(ctx, userID, day, fields)
	if err != nil {
		return ProgressRecord{}, wrapStoreError("mark day complete", err)
	}
	observability.RecordDayTransition(true)
	s.logger.Printf("user %s completed day %d", userID, day)
	return rec, nil
}

// MarkDayIncomplete clears the completion of day. Other fields are preserved.
func (s *Service) MarkDayIncomplete(ctx context.Context, userID string, day int) (ProgressRecord, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return ProgressRecord{}, err
	}
	fields := ProgressFields{Completed: false, UpdatedAt: s.now().UTC()}
	if err := fields.Validate(day); err != nil {
		return ProgressRecord{}, err
	}

	rec, err := s.store.UpsertProgress(ctx, userID, day, fields)
	if err != nil {
		return ProgressRecord{}, wrapStoreError("mark day incomplete", err)
	}
	observability.RecordDayTransition(false)
	s.logger.Printf("user %s reopened day %d", userID, day)
	return rec, nil
}

// EnsureInitialProgress seeds days 1 through InitialCompletedDays as completed
// for a user with no records. It reports whether seeding happened.
func (s *Service) EnsureInitialProgress(ctx context.Context, userID string) (bool, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return false, err
	}
	existing, err := s.store.ListProgress(ctx, userID)
	if err != nil {
		return false, wrapStoreError("ensure initial progress", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	now := s.now().UTC()
	fields := ProgressFields{Completed: true, CompletedAt: &now, UpdatedAt: now}
	days := make([]int, 0, InitialCompletedDays)
	for day := 1; day <= InitialCompletedDays && day <= calendar.TotalDays; day++ {
		days = append(days, day)
	}

	if seeder, ok := s.store.(ProgressSeeder); ok {
		if err := seeder.SeedProgress(ctx, userID, days, fields); err != nil {
			return false, wrapStoreError("seed progress", err)
		}
	} else {
		for _, day := range days {
			if _, err := s.store.UpsertProgress(ctx, userID, day, fields); err != nil {
				return false, wrapStoreError("seed progress", err)
			}
		}
	}

	observability.RecordSeeded()
	s.logger.Printf("seeded %d days for user %s", len(days), userID)
	return true, nil
}
