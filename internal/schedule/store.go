// Package schedule is the calendar rules store: weekly business hours per
// weekday plus blocked calendar dates. Both are administered externally and
// read-only here.
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrInvalidHours marks a misconfigured business_hours row (open >= close or
// a time outside the day). It is an operational alert, never a quiet
// empty-slot day.
var ErrInvalidHours = errors.New("schedule: invalid business hours configuration")

// DayHours is the configured opening window for one weekday.
type DayHours struct {
	Weekday   string
	IsOpen    bool
	OpenTime  string // HH:MM:SS
	CloseTime string // HH:MM:SS
}

// Querier is the subset of the pgx pool the store needs, so tests can inject
// pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads business hours and blocked dates from Postgres.
type Store struct {
	pool Querier
}

// NewStore creates a schedule store backed by a pgx pool.
func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &Store{pool: pool}
}

// Hours returns the configured hours for a weekday name (Sunday..Saturday),
// or nil when no row exists, which callers treat the same as a closed day.
func (s *Store) Hours(ctx context.Context, weekday string) (*DayHours, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT day_of_week, is_open, COALESCE(open_time::text, ''), COALESCE(close_time::text, '')
		FROM business_hours
		WHERE day_of_week = $1`, weekday)

	var h DayHours
	err := row.Scan(&h.Weekday, &h.IsOpen, &h.OpenTime, &h.CloseTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: load hours for %s: %w", weekday, err)
	}
	return &h, nil
}

// Blocked reports whether the date (YYYY-MM-DD) is in the blocked-dates set.
func (s *Store) Blocked(ctx context.Context, date string) (bool, error) {
	var blocked bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE blocked_date = $1::date)`, date).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("schedule: check blocked date %s: %w", date, err)
	}
	return blocked, nil
}
