package curriculum

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/coursetrack/internal/calendar"
)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service manages plans and day content.
type Service struct {
	store  Store
	now    func() time.Time
	logger *log.Logger
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
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

// ActivePlan returns the plan currently shown to learners.
func (s *Service) ActivePlan(ctx context.Context) (LearningPlan, error) {
	plan, err := s.store.ActivePlan(ctx)
	if err != nil {
		return LearningPlan{}, err
	}
	if plan == nil {
		return LearningPlan{}, ErrPlanNotFound
	}
	return *plan, nil
}

// ListPlans returns every stored plan, newest first.
func (s *Service) ListPlans(ctx context.Context) ([]LearningPlan, error) {
	return s.store.ListPlans(ctx)
}

// CreatePlan validates plan and stores it as the active plan.
func (s *Service) CreatePlan(ctx context.Context, plan LearningPlan) (LearningPlan, error) {
	plan.Name = strings.TrimSpace(plan.Name)
	if err := plan.Validate(); err != nil {
		return LearningPlan{}, err
	}
	now := s.now().UTC()
	plan.ID = uuid.NewString()
	plan.IsActive = true
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return LearningPlan{}, err
	}
	s.logger.Printf("created learning plan %s (%s)", plan.ID, plan.Name)
	return plan, nil
}

// SetActivePlan makes id the only active plan.
func (s *Service) SetActivePlan(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrPlanNotFound
	}
	return s.store.SetActivePlan(ctx, id)
}

// DeletePlan removes a plan.
func (s *Service) DeletePlan(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrPlanNotFound
	}
	return s.store.DeletePlan(ctx, id)
}

// SaveGeneratedContent stores the summary and quiz for day.
func (s *Service) SaveGeneratedContent(ctx context.Context, day int, content GeneratedContent, createdBy string) error {
	if err := calendar.ValidateDay(day); err != nil {
		return err
	}
	if err := content.Validate(); err != nil {
		return err
	}
	now := s.now().UTC()
	summary := DaySummary{
		Day:       day,
		Summary:   content.Summary,
		KeyPoints: content.KeyPoints,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	quiz := DayQuiz{
		Day:       day,
		Questions: content.Quiz,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveDayContent(ctx, summary, quiz); err != nil {
		return err
	}
	s.logger.Printf("saved content for day %d by %s", day, createdBy)
	return nil
}

// DayView assembles the calendar attributes, videos and content for day.
// Days without stored content fall back to generated defaults.
func (s *Service) DayView(ctx context.Context, day int) (DayView, error) {
	desc, err := calendar.Describe(day)
	if err != nil {
		return DayView{}, err
	}
	view := DayView{DayDescriptor: desc, Videos: []Video{}}

	plan, err := s.store.ActivePlan(ctx)
	if err != nil {
		return DayView{}, err
	}
	if plan != nil {
		view.PlanID = plan.ID
		if videos := plan.Days[day]; videos != nil {
			view.Videos = videos
		}
	}

	summary, quiz, err := s.store.DayContent(ctx, day)
	if err != nil {
		return DayView{}, err
	}
	if summary != nil {
		view.Summary = summary.Summary
		view.KeyPoints = summary.KeyPoints
	} else {
		view.Summary, view.KeyPoints = DefaultSummary(day)
		view.Fallback = true
	}
	if quiz != nil && len(quiz.Questions) > 0 {
		view.Quiz = quiz.Questions
	} else {
		view.Quiz = DefaultQuiz(day)
		view.Fallback = true
	}
	return view, nil
}

// DefaultSummary is shown for days without stored content.
func DefaultSummary(day int) (string, []string) {
	return fmt.Sprintf("Day %d focuses on fundamental AI concepts and practical applications.", day),
		[]string{
			"Understanding core AI principles",
			"Practical implementation techniques",
			"Real-world applications and examples",
		}
}

// DefaultQuiz is shown for days without a stored quiz.
func DefaultQuiz(day int) []QuizQuestion {
	return []QuizQuestion{{
		Question:      fmt.Sprintf("What is the main focus of Day %d?", day),
		Options:       []string{"Basic concepts", "Advanced techniques", "Practical applications", "All of the above"},
		CorrectAnswer: 3,
		Explanation:   "Each day combines theory with hands-on practice.",
	}}
}

// PassThresholdPercent is the minimum share of correct answers needed to pass a quiz.
const PassThresholdPercent = 60

// QuizResult is the outcome of grading a quiz submission.
type QuizResult struct {
	Score   int
	Total   int
	Passed  bool
	Correct []bool
}

// ScoreQuiz grades answers against questions positionally.
func ScoreQuiz(questions []QuizQuestion, answers []int) (QuizResult, error) {
	if len(questions) == 0 {
		return QuizResult{}, fmt.Errorf("%w: quiz has no questions", ErrInvalidAnswers)
	}
	if len(answers) != len(questions) {
		return QuizResult{}, fmt.Errorf("%w: got %d answers for %d questions", ErrInvalidAnswers, len(answers), len(questions))
	}
	result := QuizResult{Total: len(questions), Correct: make([]bool, len(questions))}
	for i, q := range questions {
		if answers[i] == q.CorrectAnswer {
			result.Score++
			result.Correct[i] = true
		}
	}
	result.Passed = result.Score*100 >= PassThresholdPercent*result.Total
	return result, nil
}
