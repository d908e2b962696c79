// Package memory provides an in-process store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/coursetrack/internal/curriculum"
	"example.com/coursetrack/internal/domain"
	"example.com/coursetrack/internal/observability"
)

type progressKey struct {
	userID string
	day    int
}

// Store keeps progress and curriculum content in maps guarded by a single lock.
type Store struct {
	mu        sync.RWMutex
	progress  map[progressKey]domain.ProgressRecord
	plans     map[string]curriculum.LearningPlan
	summaries map[int]curriculum.DaySummary
	quizzes   map[int]curriculum.DayQuiz
	now       func() time.Time
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		progress:  make(map[progressKey]domain.ProgressRecord),
		plans:     make(map[string]curriculum.LearningPlan),
		summaries: make(map[int]curriculum.DaySummary),
		quizzes:   make(map[int]curriculum.DayQuiz),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListProgress implements domain.ProgressStore.
func (s *Store) ListProgress(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreUnavailable("list progress", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProgressRecord, 0)
	for key, rec := range s.progress {
		if key.userID == userID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// ListAllProgress implements domain.ProgressAuditStore.
func (s *Store) ListAllProgress(ctx context.Context) ([]domain.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreUnavailable("list all progress", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProgressRecord, 0, len(s.progress))
	for _, rec := range s.progress {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Day < out[j].Day
	})
	return out, nil
}

// UpsertProgress implements domain.ProgressStore.
func (s *Store) UpsertProgress(ctx context.Context, userID string, day int, fields domain.ProgressFields) (domain.ProgressRecord, error) {
	if err := fields.Validate(day); err != nil {
		return domain.ProgressRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ProgressRecord{}, domain.NewStoreUnavailable("upsert progress", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.upsertLocked(userID, day, fields)
	observability.RecordProgressPersisted(rec.UpdatedAt)
	return cloneRecord(rec), nil
}

// SeedProgress implements domain.ProgressSeeder.
func (s *Store) SeedProgress(ctx context.Context, userID string, days []int, fields domain.ProgressFields) error {
	for _, day := range days {
		if err := fields.Validate(day); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.NewStoreUnavailable("seed progress", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, day := range days {
		s.upsertLocked(userID, day, fields)
	}
	observability.RecordProgressPersisted(fields.UpdatedAt)
	return nil
}

func (s *Store) upsertLocked(userID string, day int, fields domain.ProgressFields) domain.ProgressRecord {
	key := progressKey{userID: userID, day: day}
	var existing *domain.ProgressRecord
	if rec, ok := s.progress[key]; ok {
		existing = &rec
	}
	rec := fields.Apply(userID, day, existing, s.now())
	s.progress[key] = rec
	return rec
}

func cloneRecord(rec domain.ProgressRecord) domain.ProgressRecord {
	out := rec
	if rec.CompletedAt != nil {
		v := *rec.CompletedAt
		out.CompletedAt = &v
	}
	if rec.TimeSpentMinutes != nil {
		v := *rec.TimeSpentMinutes
		out.TimeSpentMinutes = &v
	}
	if rec.QuizScore != nil {
		v := *rec.QuizScore
		out.QuizScore = &v
	}
	if rec.Notes != nil {
		v := *rec.Notes
		out.Notes = &v
	}
	return out
}
