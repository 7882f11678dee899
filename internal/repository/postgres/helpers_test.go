package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func strPtr(s string) *string { return &s }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var (
	errUnique     = &pgconn.PgError{Code: codeUniqueViolation}
	errForeignKey = &pgconn.PgError{Code: codeForeignKeyViolation}
)
