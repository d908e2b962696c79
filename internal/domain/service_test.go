package domain

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	rows        map[string]map[int]ProgressRecord
	listCalls   int
	upsertCalls int
	err         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]map[int]ProgressRecord)}
}

func (f *fakeStore) ListProgress(_ context.Context, userID string) ([]ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ProgressRecord, 0, len(f.rows[userID]))
	for _, rec := range f.rows[userID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (f *fakeStore) UpsertProgress(_ context.Context, userID string, day int, fields ProgressFields) (ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.err != nil {
		return ProgressRecord{}, f.err
	}
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[int]ProgressRecord)
	}
	var existing *ProgressRecord
	if rec, ok := f.rows[userID][day]; ok {
		existing = &rec
	}
	rec := fields.Apply(userID, day, existing, time.Now().UTC())
	f.rows[userID][day] = rec
	return rec, nil
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func fixedClock(ts time.Time) Option { return WithClock(func() time.Time { return ts }) }

func TestMarkDayCompleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewService(store)

	_, err := svc.MarkDayComplete(ctx, "u1", 5, CompletionInput{})
	require.NoError(t, err)
	_, err = svc.MarkDayComplete(ctx, "u1", 5, CompletionInput{})
	require.NoError(t, err)

	records, err := svc.GetProgress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].Completed)
	require.NotNil(t, records[0].CompletedAt)

	_, err = svc.MarkDayIncomplete(ctx, "u1", 5)
	require.NoError(t, err)
	_, err = svc.MarkDayIncomplete(ctx, "u1", 5)
	require.NoError(t, err)

	records, err = svc.GetProgress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.False(t, records[0].Completed)
	require.Nil(t, records[0].CompletedAt)
}

func TestCompletionMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	svc := NewService(newFakeStore(), fixedClock(ts))

	_, err := svc.MarkDayComplete(ctx, "u1", 5, CompletionInput{
		TimeSpentMinutes: intPtr(30),
		QuizScore:        intPtr(4),
		Notes:            strPtr("note"),
	})
	require.NoError(t, err)

	records, err := svc.GetProgress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	require.Equal(t, 5, rec.Day)
	require.True(t, rec.Completed)
	require.Equal(t, ts, *rec.CompletedAt)
	require.Equal(t, 30, *rec.TimeSpentMinutes)
	require.Equal(t, 4, *rec.QuizScore)
	require.Equal(t, "note", *rec.Notes)
}

func TestMarkIncompleteKeepsMetadata(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeStore())

	_, err := svc.MarkDayComplete(ctx, "u1", 7, CompletionInput{QuizScore: intPtr(5), Notes: strPtr("keep")})
	require.NoError(t, err)
	rec, err := svc.MarkDayIncomplete(ctx, "u1", 7)
	require.NoError(t, err)
	require.False(t, rec.Completed)
	require.Equal(t, 5, *rec.QuizScore)
	require.Equal(t, "keep", *rec.Notes)

	rec, err = svc.MarkDayComplete(ctx, "u1", 7, CompletionInput{})
	require.NoError(t, err)
	require.Equal(t, 5, *rec.QuizScore)
}

func TestInvalidDaysNeverReachStore(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewService(store)

	for _, day := range []int{0, 91, -3} {
		_, err := svc.MarkDayComplete(ctx, "u1", day, CompletionInput{})
		var dayErr *InvalidDayError
		require.ErrorAs(t, err, &dayErr)
		require.Equal(t, day, dayErr.Day)

		_, err = svc.MarkDayIncomplete(ctx, "u1", day)
		require.ErrorAs(t, err, &dayErr)
	}
	require.Zero(t, store.upsertCalls)
	require.Zero(t, store.listCalls)
}

func TestNegativeMetadataRejected(t *testing.T) {
	svc := NewService(newFakeStore())
	_, err := svc.MarkDayComplete(context.Background(), "u1", 3, CompletionInput{TimeSpentMinutes: intPtr(-1)})
	require.ErrorIs(t, err, ErrInvalidProgress)
	_, err = svc.MarkDayComplete(context.Background(), "u1", 3, CompletionInput{QuizScore: intPtr(-2)})
	require.ErrorIs(t, err, ErrInvalidProgress)
}

func TestMissingUserRejected(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	_, err := svc.GetUserStats(context.Background(), "  ")
	require.ErrorIs(t, err, ErrMissingUser)
	_, err = svc.EnsureInitialProgress(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingUser)
	require.Zero(t, store.listCalls)
}

func TestEnsureInitialProgressSeedsOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewService(store)

	seeded, err := svc.EnsureInitialProgress(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, seeded)

	days, err := svc.GetCompletedDays(ctx, "fresh")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, days.Sorted())

	writes := store.upsertCalls
	seeded, err = svc.EnsureInitialProgress(ctx, "fresh")
	require.NoError(t, err)
	require.False(t, seeded)
	require.Equal(t, writes, store.upsertCalls)
}

func TestEnsureInitialProgressSkipsUserWithAnyRecord(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewService(store)

	_, err := svc.MarkDayIncomplete(ctx, "u1", 40)
	require.NoError(t, err)

	seeded, err := svc.EnsureInitialProgress(ctx, "u1")
	require.NoError(t, err)
	require.False(t, seeded)

	days, err := svc.GetCompletedDays(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, days.Len())
}

func TestStoreFailuresSurfaceAsPersistenceError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk full")
	svc := NewService(store)

	_, err := svc.MarkDayComplete(context.Background(), "u1", 2, CompletionInput{})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	require.False(t, errors.Is(err, ErrStoreUnavailable))

	store.err = NewStoreUnavailable("list progress", errors.New("connection refused"))
	_, err = svc.GetUserStats(context.Background(), "u1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "list progress", pe.Op)
}
