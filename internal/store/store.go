// Package store reads the dashboard tables the sweep depends on. It never
// writes.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
	"github.com/Avisafety/avisafe-sub001/internal/expiry"
)

// ErrNotFound is returned by single row lookups that match nothing.
var ErrNotFound = stderrors.New("record not found")

type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	loc          *time.Location
}

// New builds a store. loc is the report timezone: expiry timestamps are
// read as calendar dates in it. A nil loc keeps the zone the driver returns.
func New(db *sql.DB, queryTimeout time.Duration, loc *time.Location) *Store {
	return &Store{db: db, queryTimeout: queryTimeout, loc: loc}
}

// dateOf returns the calendar date of t in the report timezone.
func (s *Store) dateOf(t time.Time) civil.Date {
	if s.loc == nil {
		return civil.DateOf(t)
	}
	return expiry.Today(t, s.loc)
}

func (s *Store) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// wrapErr classifies a driver error for the named query.
func wrapErr(ctx context.Context, query string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(query, err)
	}
	return errors.NewQueryExecutionFailedError(query, err)
}
