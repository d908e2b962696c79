package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/coursetrack/internal/curriculum"
)

const planColumns = `id, name, total_days, plan_data, is_active, created_at, updated_at`

// ContentRepository stores learning plans and per-day summaries and quizzes.
type ContentRepository struct {
	pool *pgxpool.Pool
}

// NewContentRepository constructs a ContentRepository.
func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{pool: pool}
}

// ActivePlan implements curriculum.Store.
func (r *ContentRepository) ActivePlan(ctx context.Context) (*curriculum.LearningPlan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM learning_plans WHERE is_active LIMIT 1`)
	plan, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("active plan", err)
	}
	return &plan, nil
}

// ListPlans implements curriculum.Store.
func (r *ContentRepository) ListPlans(ctx context.Context) ([]curriculum.LearningPlan, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+planColumns+` FROM learning_plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, classify("list plans", err)
	}
	defer rows.Close()

	plans := make([]curriculum.LearningPlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, classify("list plans", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list plans", err)
	}
	return plans, nil
}

// CreatePlan implements curriculum.Store.
func (r *ContentRepository) CreatePlan(ctx context.Context, plan curriculum.LearningPlan) error {
	data, err := json.Marshal(plan.Days)
	if err != nil {
		return err
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE learning_plans SET is_active = FALSE, updated_at = $1 WHERE is_active`, plan.UpdatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO learning_plans (`+planColumns+`) VALUES ($1,$2,$3,$4,TRUE,$5,$6)`,
			plan.ID, plan.Name, plan.TotalDays, data, plan.CreatedAt, plan.UpdatedAt,
		)
		return err
	})
	return classify("create plan", err)
}

// SetActivePlan implements curriculum.Store.
func (r *ContentRepository) SetActivePlan(ctx context.Context, id string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM learning_plans WHERE id::text = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return curriculum.ErrPlanNotFound
		}
		if _, err := tx.Exec(ctx, `UPDATE learning_plans SET is_active = FALSE, updated_at = NOW() WHERE is_active AND id::text <> $1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE learning_plans SET is_active = TRUE, updated_at = NOW() WHERE id::text = $1`, id)
		return err
	})
	if errors.Is(err, curriculum.ErrPlanNotFound) {
		return err
	}
	return classify("set active plan", err)
}

// DeletePlan implements curriculum.Store.
func (r *ContentRepository) DeletePlan(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM learning_plans WHERE id::text = $1`, id)
	if err != nil {
		return classify("delete plan", err)
	}
	if tag.RowsAffected() == 0 {
		return curriculum.ErrPlanNotFound
	}
	return nil
}

// SaveDayContent implements curriculum.Store.
func (r *ContentRepository) SaveDayContent(ctx context.Context, summary curriculum.DaySummary, quiz curriculum.DayQuiz) error {
	keyPoints, err := json.Marshal(summary.KeyPoints)
	if err != nil {
		return err
	}
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO day_summaries (day, summary, key_points, created_by, created_at, updated_at)
             VALUES ($1,$2,$3,$4,$5,$6)
             ON CONFLICT (day) DO UPDATE SET
                 summary = EXCLUDED.summary,
                 key_points = EXCLUDED.key_points,
                 created_by = EXCLUDED.created_by,
                 updated_at = EXCLUDED.updated_at`,
			summary.Day, summary.Summary, keyPoints, summary.CreatedBy, summary.CreatedAt, summary.UpdatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO day_quizzes (day, questions, created_by, created_at, updated_at)
             VALUES ($1,$2,$3,$4,$5)
             ON CONFLICT (day) DO UPDATE SET
                 questions = EXCLUDED.questions,
                 created_by = EXCLUDED.created_by,
                 updated_at = EXCLUDED.updated_at`,
			quiz.Day, questions, quiz.CreatedBy, quiz.CreatedAt, quiz.UpdatedAt,
		)
		return err
	})
	return classify("save day content", err)
}

// DayContent implements curriculum.Store.
func (r *ContentRepository) DayContent(ctx context.Context, day int) (*curriculum.DaySummary, *curriculum.DayQuiz, error) {
	var (
		summary   curriculum.DaySummary
		keyPoints []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT day, summary, key_points, created_by, created_at, updated_at FROM day_summaries WHERE day=$1`, day,
	).Scan(&summary.Day, &summary.Summary, &keyPoints, &summary.CreatedBy, &summary.CreatedAt, &summary.UpdatedAt)
	summaryFound := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, classify("day summary", err)
	}
	if summaryFound {
		if err := json.Unmarshal(keyPoints, &summary.KeyPoints); err != nil {
			return nil, nil, classify("day summary", err)
		}
	}

	var (
		quiz      curriculum.DayQuiz
		questions []byte
	)
	err = r.pool.QueryRow(ctx,
		`SELECT day, questions, created_by, created_at, updated_at FROM day_quizzes WHERE day=$1`, day,
	).Scan(&quiz.Day, &questions, &quiz.CreatedBy, &quiz.CreatedAt, &quiz.UpdatedAt)
	quizFound := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, classify("day quiz", err)
	}
	if quizFound {
		if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
			return nil, nil, classify("day quiz", err)
		}
	}

	var (
		summaryOut *curriculum.DaySummary
		quizOut    *curriculum.DayQuiz
	)
	if summaryFound {
		summaryOut = &summary
	}
	if quizFound {
		quizOut = &quiz
	}
	return summaryOut, quizOut, nil
}

func scanPlan(row pgx.Row) (curriculum.LearningPlan, error) {
	var (
		plan curriculum.LearningPlan
		data []byte
	)
	if err := row.Scan(&plan.ID, &plan.Name, &plan.TotalDays, &data, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return curriculum.LearningPlan{}, err
	}
	if err := json.Unmarshal(data, &plan.Days); err != nil {
		return curriculum.LearningPlan{}, err
	}
	return plan, nil
}
