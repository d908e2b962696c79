// Package postgres implements the progress and curriculum stores on Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/coursetrack/internal/calendar"
	"example.com/coursetrack/internal/domain"
	"example.com/coursetrack/internal/events"
	"example.com/coursetrack/internal/observability"
	"example.com/coursetrack/internal/outbox"
)

const progressColumns = `user_id, day, completed, completed_at, time_spent_minutes, quiz_score, notes, created_at, updated_at`

const upsertProgress = `INSERT INTO user_progress (user_id, day, completed, completed_at, time_spent_minutes, quiz_score, notes, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
        ON CONFLICT (user_id, day) DO UPDATE SET
            completed = EXCLUDED.completed,
            completed_at = EXCLUDED.completed_at,
            time_spent_minutes = COALESCE(EXCLUDED.time_spent_minutes, user_progress.time_spent_minutes),
            quiz_score = COALESCE(EXCLUDED.quiz_score, user_progress.quiz_score),
            notes = COALESCE(EXCLUDED.notes, user_progress.notes),
            updated_at = EXCLUDED.updated_at
        RETURNING ` + progressColumns

// ProgressRepository stores progress rows and appends progress events to the outbox in the same transaction.
type ProgressRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// ListProgress implements domain.ProgressStore.
func (r *ProgressRepository) ListProgress(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE user_id=$1 ORDER BY day`, userID)
	if err != nil {
		return nil, classify("list progress", err)
	}
	records, err := collectProgress(rows)
	if err != nil {
		return nil, classify("list progress", err)
	}
	return records, nil
}

// ListAllProgress implements domain.ProgressAuditStore.
func (r *ProgressRepository) ListAllProgress(ctx context.Context) ([]domain.ProgressRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+progressColumns+` FROM user_progress ORDER BY user_id, day`)
	if err != nil {
		return nil, classify("list all progress", err)
	}
	records, err := collectProgress(rows)
	if err != nil {
		return nil, classify("list all progress", err)
	}
	return records, nil
}

// UpsertProgress implements domain.ProgressStore. A completion state change also records an outbox event.
func (r *ProgressRepository) UpsertProgress(ctx context.Context, userID string, day int, fields domain.ProgressFields) (domain.ProgressRecord, error) {
	if err := fields.Validate(day); err != nil {
		return domain.ProgressRecord{}, err
	}
	if fields.UpdatedAt.IsZero() {
		fields.UpdatedAt = r.now()
	}

	var rec domain.ProgressRecord
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var wasCompleted bool
		err := tx.QueryRow(ctx, `SELECT completed FROM user_progress WHERE user_id=$1 AND day=$2 FOR UPDATE`, userID, day).Scan(&wasCompleted)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		rec, err = upsertRow(ctx, tx, userID, day, fields)
		if err != nil {
			return err
		}
		if rec.Completed == wasCompleted {
			return nil
		}
		return enqueueTransition(ctx, tx, rec)
	})
	if err != nil {
		return domain.ProgressRecord{}, classify("upsert progress", err)
	}
	observability.RecordProgressPersisted(rec.UpdatedAt)
	return rec, nil
}

// SeedProgress implements domain.ProgressSeeder.
func (r *ProgressRepository) SeedProgress(ctx context.Context, userID string, days []int, fields domain.ProgressFields) error {
	for _, day := range days {
		if err := fields.Validate(day); err != nil {
			return err
		}
	}
	if fields.UpdatedAt.IsZero() {
		fields.UpdatedAt = r.now()
	}

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		for _, day := range days {
			if _, err := upsertRow(ctx, tx, userID, day, fields); err != nil {
				return err
			}
		}
		return outbox.Enqueue(ctx, tx, outbox.Event{
			AggregateType: "user_progress",
			AggregateID:   userID,
			EventType:     events.TypeSeeded,
			PartitionKey:  userID,
			DedupeKey:     fmt.Sprintf("%s:%s", userID, events.TypeSeeded),
			Payload:       events.Seeded{UserID: userID, Days: days, OccurredAt: fields.UpdatedAt},
		})
	})
	if err != nil {
		return classify("seed progress", err)
	}
	observability.RecordProgressPersisted(fields.UpdatedAt)
	return nil
}

func (r *ProgressRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func upsertRow(ctx context.Context, tx pgx.Tx, userID string, day int, fields domain.ProgressFields) (domain.ProgressRecord, error) {
	var completedAt *time.Time
	if fields.CompletedAt != nil {
		ts := fields.CompletedAt.UTC()
		completedAt = &ts
	}
	row := tx.QueryRow(ctx, upsertProgress,
		userID,
		day,
		fields.Completed,
		completedAt,
		fields.TimeSpentMinutes,
		fields.QuizScore,
		fields.Notes,
		fields.UpdatedAt,
	)
	return scanProgress(row)
}

func enqueueTransition(ctx context.Context, tx pgx.Tx, rec domain.ProgressRecord) error {
	week, err := calendar.WeekNumber(rec.Day)
	if err != nil {
		return err
	}

	evt := outbox.Event{
		AggregateType: "user_progress",
		AggregateID:   fmt.Sprintf("%s:%d", rec.UserID, rec.Day),
		PartitionKey:  rec.UserID,
	}
	if rec.Completed {
		evt.EventType = events.TypeDayCompleted
		evt.Payload = events.DayCompleted{
			UserID:           rec.UserID,
			Day:              rec.Day,
			WeekNumber:       week,
			CompletedAt:      *rec.CompletedAt,
			TimeSpentMinutes: rec.TimeSpentMinutes,
			QuizScore:        rec.QuizScore,
		}
	} else {
		evt.EventType = events.TypeDayReopened
		evt.Payload = events.DayReopened{
			UserID:     rec.UserID,
			Day:        rec.Day,
			WeekNumber: week,
			OccurredAt: rec.UpdatedAt,
		}
	}
	evt.DedupeKey = fmt.Sprintf("%s:%s:%d", evt.AggregateID, evt.EventType, rec.UpdatedAt.UnixNano())
	return outbox.Enqueue(ctx, tx, evt)
}

func scanProgress(row pgx.Row) (domain.ProgressRecord, error) {
	var rec domain.ProgressRecord
	err := row.Scan(&rec.UserID, &rec.Day, &rec.Completed, &rec.CompletedAt, &rec.TimeSpentMinutes, &rec.QuizScore, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func collectProgress(rows pgx.Rows) ([]domain.ProgressRecord, error) {
	defer rows.Close()
	records := make([]domain.ProgressRecord, 0)
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
