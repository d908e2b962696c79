package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"example.com/coursetrack/internal/domain"
)

func TestClassifyFlagsConnectivityFailures(t *testing.T) {
	cases := []error{
		context.DeadlineExceeded,
		&pgconn.PgError{Code: "08006"},
		&pgconn.PgError{Code: "57P01"},
	}
	for _, err := range cases {
		got := classify("list progress", err)
		require.ErrorIs(t, got, domain.ErrStoreUnavailable, "%v", err)
	}
}

func TestClassifyKeepsOtherFailuresGeneric(t *testing.T) {
	got := classify("upsert progress", &pgconn.PgError{Code: "23514"})
	var pe *domain.PersistenceError
	require.ErrorAs(t, got, &pe)
	require.Equal(t, "upsert progress", pe.Op)
	require.False(t, errors.Is(got, domain.ErrStoreUnavailable))

	dayErr := &domain.InvalidDayError{Day: 0}
	require.Same(t, error(dayErr), classify("upsert progress", dayErr))
	require.NoError(t, classify("noop", nil))
}
