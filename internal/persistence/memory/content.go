package memory

import (
	"context"
	"sort"

	"example.com/coursetrack/internal/curriculum"
)

// ActivePlan implements curriculum.Store.
func (s *Store) ActivePlan(ctx context.Context) (*curriculum.LearningPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, plan := range s.plans {
		if plan.IsActive {
			out := plan
			return &out, nil
		}
	}
	return nil, nil
}

// ListPlans implements curriculum.Store.
func (s *Store) ListPlans(ctx context.Context) ([]curriculum.LearningPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]curriculum.LearningPlan, 0, len(s.plans))
	for _, plan := range s.plans {
		out = append(out, plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreatePlan implements curriculum.Store.
func (s *Store) CreatePlan(ctx context.Context, plan curriculum.LearningPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivateLocked()
	plan.IsActive = true
	s.plans[plan.ID] = plan
	return nil
}

// SetActivePlan implements curriculum.Store.
func (s *Store) SetActivePlan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return curriculum.ErrPlanNotFound
	}
	s.deactivateLocked()
	plan.IsActive = true
	plan.UpdatedAt = s.now()
	s.plans[id] = plan
	return nil
}

// DeletePlan implements curriculum.Store.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return curriculum.ErrPlanNotFound
	}
	delete(s.plans, id)
	return nil
}

func (s *Store) deactivateLocked() {
	for id, plan := range s.plans {
		if plan.IsActive {
			plan.IsActive = false
			s.plans[id] = plan
		}
	}
}

// SaveDayContent implements curriculum.Store.
func (s *Store) SaveDayContent(ctx context.Context, summary curriculum.DaySummary, quiz curriculum.DayQuiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.summaries[summary.Day]; ok {
		summary.CreatedAt = prev.CreatedAt
	}
	s.summaries[summary.Day] = summary
	if prev, ok := s.quizzes[quiz.Day]; ok {
		quiz.CreatedAt = prev.CreatedAt
	}
	s.quizzes[quiz.Day] = quiz
	return nil
}

// DayContent implements curriculum.Store.
func (s *Store) DayContent(ctx context.Context, day int) (*curriculum.DaySummary, *curriculum.DayQuiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		summary *curriculum.DaySummary
		quiz    *curriculum.DayQuiz
	)
	if v, ok := s.summaries[day]; ok {
		summary = &v
	}
	if v, ok := s.quizzes[day]; ok {
		quiz = &v
	}
	return summary, quiz, nil
}
