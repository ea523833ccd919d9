package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/focustodo/internal/observability"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repositories use, so tests can hand
// in a pgxmock pool instead.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

type observer struct {
	prom *observability.Prom
}

// observe times and traces one statement; a nil prom only traces.
func (o observer) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return o.prom.ObserveDB(ctx, op, fn)
}
