// Package appointments owns the appointment ledger and the booking
// transaction. The ledger is the single shared resource in the system;
// creation serializes per date so two clients can never race onto the same
// slot.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/clinic-booking-api/internal/availability"
)

var (
	// ErrSlotTaken is returned when the requested interval overlaps an
	// existing non-cancelled appointment (including a race lost to a
	// concurrent booking).
	ErrSlotTaken = errors.New("appointments: slot already booked")

	// ErrDateBlocked is returned when the date is in the blocked-dates set.
	ErrDateBlocked = errors.New("appointments: date not bookable")
)

// Appointment statuses. Cancellation happens outside this API.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// NewAppointment carries a validated, normalized booking ready to insert.
// EndTime has already been derived from the service duration.
type NewAppointment struct {
	FullName  string
	Email     string
	Phone     string
	ServiceID string
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM:SS
	EndTime   string // HH:MM:SS
	Notes     string
}

// PgxPool is the subset of pgxpool.Pool the store needs, so tests can inject
// pgxmock.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments in Postgres.
type Store struct {
	pool PgxPool
}

// NewStore creates an appointment store backed by a pgx pool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Store{pool: pool}
}

// BookedIntervals returns the [start, end) intervals of every non-cancelled
// appointment on the date, in minutes since midnight. Reads take no locks;
// they are advisory snapshots and the booking transaction re-checks.
func (s *Store) BookedIntervals(ctx context.Context, date string) ([]availability.Interval, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT start_time::text, end_time::text
		FROM appointments
		WHERE appointment_date = $1::date AND status <> 'cancelled'`, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: load day %s: %w", date, err)
	}
	defer rows.Close()

	var intervals []availability.Interval
	for rows.Next() {
		var startStr, endStr string
		if err := rows.Scan(&startStr, &endStr); err != nil {
			return nil, fmt.Errorf("appointments: scan interval: %w", err)
		}
		start, err := availability.ParseClock(startStr)
		if err != nil {
			return nil, fmt.Errorf("appointments: stored start time: %w", err)
		}
		end, err := availability.ParseClock(endStr)
		if err != nil {
			return nil, fmt.Errorf("appointments: stored end time: %w", err)
		}
		intervals = append(intervals, availability.Interval{Start: start, End: end})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate day %s: %w", date, err)
	}
	return intervals, nil
}

// Create inserts a confirmed appointment under a per-date advisory lock.
// The blocked-date and overlap checks run inside the same transaction as the
// insert, so concurrent creations for the same date serialize and exactly
// one of two overlapping requests succeeds. Either the full row is committed
// or nothing is.
func (s *Store) Create(ctx context.Context, appt NewAppointment) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("appointments: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serializes all bookings for this calendar date. Released at
	// commit/rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, appt.Date); err != nil {
		return uuid.Nil, fmt.Errorf("appointments: acquire date lock: %w", err)
	}

	var blocked bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE blocked_date = $1::date)`, appt.Date).Scan(&blocked)
	if err != nil {
		return uuid.Nil, fmt.Errorf("appointments: re-check blocked date: %w", err)
	}
	if blocked {
		return uuid.Nil, ErrDateBlocked
	}

	// Half-open overlap: candidate.start < existing.end AND candidate.end >
	// existing.start, the same predicate the availability engine uses.
	var conflict bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE appointment_date = $1::date
			  AND status <> 'cancelled'
			  AND start_time < $3::time
			  AND end_time > $2::time
		)`, appt.Date, appt.StartTime, appt.EndTime).Scan(&conflict)
	if err != nil {
		return uuid.Nil, fmt.Errorf("appointments: re-check overlap: %w", err)
	}
	if conflict {
		return uuid.Nil, ErrSlotTaken
	}

	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, full_name, email, phone, service_id, appointment_date, start_time, end_time, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7::time, $8::time, $9, $10, $11)`,
		id, appt.FullName, appt.Email, appt.Phone, appt.ServiceID,
		appt.Date, appt.StartTime, appt.EndTime, StatusConfirmed, appt.Notes, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("appointments: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("appointments: commit: %w", err)
	}
	return id, nil
}
