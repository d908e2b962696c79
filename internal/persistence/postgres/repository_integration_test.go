//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/coursetrack/internal/curriculum"
	"example.com/coursetrack/internal/domain"
	"example.com/coursetrack/internal/persistence/migrations"
)

func TestProgressRepositoryUpsertSemantics(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := NewProgressRepository(pool)
	svc := domain.NewService(repo)
	userID := uuid.NewString()

	score, minutes, note := 4, 30, "note"
	_, err := svc.MarkDayComplete(ctx, userID, 5, domain.CompletionInput{TimeSpentMinutes: &minutes, QuizScore: &score, Notes: &note})
	require.NoError(t, err)
	_, err = svc.MarkDayComplete(ctx, userID, 5, domain.CompletionInput{})
	require.NoError(t, err)

	records, err := repo.ListProgress(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].Completed)
	require.Equal(t, 30, *records[0].TimeSpentMinutes)
	require.Equal(t, 4, *records[0].QuizScore)
	require.Equal(t, "note", *records[0].Notes)

	_, err = svc.MarkDayIncomplete(ctx, userID, 5)
	require.NoError(t, err)
	records, err = repo.ListProgress(ctx, userID)
	require.NoError(t, err)
	require.False(t, records[0].Completed)
	require.Nil(t, records[0].CompletedAt)
	require.Equal(t, 4, *records[0].QuizScore)

	// complete then reopen; the repeated complete is not a transition
	var events int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE partition_key = $1`, userID).Scan(&events))
	require.Equal(t, 2, events)
}

func TestProgressRepositorySeedsAtomically(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := NewProgressRepository(pool)
	svc := domain.NewService(repo)
	userID := uuid.NewString()

	seeded, err := svc.EnsureInitialProgress(ctx, userID)
	require.NoError(t, err)
	require.True(t, seeded)
	seeded, err = svc.EnsureInitialProgress(ctx, userID)
	require.NoError(t, err)
	require.False(t, seeded)

	stats, err := svc.GetUserStats(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 13, stats.TotalDaysCompleted)

	var eventType string
	require.NoError(t, pool.QueryRow(ctx, `SELECT event_type FROM outbox WHERE aggregate_id = $1`, userID).Scan(&eventType))
	require.Equal(t, "progress.seeded", eventType)

	all, err := repo.ListAllProgress(ctx)
	require.NoError(t, err)
	require.Len(t, all, 13)
}

func TestProgressRepositoryReportsUnavailableStore(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	pool.Close()

	_, err := NewProgressRepository(pool).ListProgress(ctx, "u1")
	require.Error(t, err)
	var pe *domain.PersistenceError
	require.ErrorAs(t, err, &pe)
}

func TestContentRepositoryPlansAndContent(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	svc := curriculum.NewService(NewContentRepository(pool))

	plan := curriculum.LearningPlan{
		Name:      "core",
		TotalDays: 90,
		Days:      map[int][]curriculum.Video{1: {{Title: "Intro", Link: "https://example.com/1"}}},
	}
	first, err := svc.CreatePlan(ctx, plan)
	require.NoError(t, err)
	second, err := svc.CreatePlan(ctx, plan)
	require.NoError(t, err)

	active, err := svc.ActivePlan(ctx)
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)
	require.Equal(t, "Intro", active.Days[1][0].Title)

	require.NoError(t, svc.SetActivePlan(ctx, first.ID))
	require.ErrorIs(t, svc.SetActivePlan(ctx, uuid.NewString()), curriculum.ErrPlanNotFound)
	require.ErrorIs(t, svc.DeletePlan(ctx, uuid.NewString()), curriculum.ErrPlanNotFound)

	require.NoError(t, svc.SaveGeneratedContent(ctx, 1, curriculum.GeneratedContent{
		Summary:   "Intro to ML",
		KeyPoints: []string{"supervised", "unsupervised"},
		Quiz:      []curriculum.QuizQuestion{{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 0}},
	}, "admin"))

	view, err := svc.DayView(ctx, 1)
	require.NoError(t, err)
	require.False(t, view.Fallback)
	require.Equal(t, first.ID, view.PlanID)
	require.Equal(t, []string{"supervised", "unsupervised"}, view.KeyPoints)
	require.Len(t, view.Quiz, 1)
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("coursetrack"),
		postgrescontainer.WithUsername("coursetrack"),
		postgrescontainer.WithPassword("coursetrack"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))
	require.NoError(t, migrations.Up(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
