package availability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-booking-api/internal/catalog"
	"github.com/wolfman30/clinic-booking-api/internal/schedule"
	"github.com/wolfman30/clinic-booking-api/pkg/logging"
)

var availabilityTracer = otel.Tracer("clinicbooking.internal.availability")

// DefaultGridMinutes is the candidate start-time spacing.
const DefaultGridMinutes = 30

// Reasons for an empty slot list that are more specific than "all taken".
const (
	ReasonDateBlocked = "date_blocked"
	ReasonClosed      = "closed"
)

// Rules supplies the calendar rules the engine evaluates against.
type Rules interface {
	Hours(ctx context.Context, weekday string) (*schedule.DayHours, error)
	Blocked(ctx context.Context, date string) (bool, error)
}

// Services resolves service ids to active catalog rows.
type Services interface {
	Active(ctx context.Context, id string) (*catalog.Service, error)
}

// Ledger returns the busy intervals already committed for a date.
type Ledger interface {
	BookedIntervals(ctx context.Context, date string) ([]Interval, error)
}

// DayAvailability is the engine's answer for one date: either an ordered
// slot list, or an empty list with a reason distinguishing "blocked" and
// "closed" from "no free slot".
type DayAvailability struct {
	Date   Date
	Slots  []string
	Reason string
}

// Engine turns business hours, blocked dates, service duration, and existing
// appointments into a conflict-free set of offerable start times. It holds
// no mutable state; every computation is a snapshot of its sources.
type Engine struct {
	rules    Rules
	services Services
	ledger   Ledger
	logger   *logging.Logger

	grid  int
	today func() Date
}

// NewEngine constructs an availability engine with the default 30-minute
// grid.
func NewEngine(rules Rules, services Services, ledger Ledger, logger *logging.Logger) *Engine {
	if rules == nil || services == nil || ledger == nil {
		panic("availability: rules, services, and ledger sources required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		rules:    rules,
		services: services,
		ledger:   ledger,
		logger:   logger,
		grid:     DefaultGridMinutes,
		today:    Today,
	}
}

// WithGrid overrides the candidate spacing. Values below one minute keep the
// default.
func (e *Engine) WithGrid(minutes int) *Engine {
	if minutes >= 1 {
		e.grid = minutes
	}
	return e
}

// WithToday overrides the "today" source, used by tests and by callers that
// pin a reference day.
func (e *Engine) WithToday(today func() Date) *Engine {
	if today != nil {
		e.today = today
	}
	return e
}

// Today returns the current calendar date in the process's local calendar.
// It is the only place the engine touches the wall clock, and its result is
// only ever used for "before today" comparisons, never weekday math.
func Today() Date {
	now := time.Now()
	return Date{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}
}

// SlotsForDate computes the offerable start times for a service on a date.
// Unknown or inactive services return catalog.ErrServiceNotFound; a
// misconfigured business_hours row returns schedule.ErrInvalidHours.
func (e *Engine) SlotsForDate(ctx context.Context, date Date, serviceID string) (*DayAvailability, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.slots_for_date")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.date", date.String()),
		attribute.String("booking.service_id", serviceID),
	)

	svc, err := e.services.Active(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return e.slotsForService(ctx, date, svc)
}

// DatesInMonth returns the day numbers of the month that have at least one
// offerable slot for the service, excluding days before today.
func (e *Engine) DatesInMonth(ctx context.Context, year, month int, serviceID string) ([]int, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.dates_in_month")
	defer span.End()
	span.SetAttributes(
		attribute.Int("booking.year", year),
		attribute.Int("booking.month", month),
		attribute.String("booking.service_id", serviceID),
	)

	if month < 1 || month > 12 {
		return nil, fmt.Errorf("availability: month %d out of range", month)
	}
	svc, err := e.services.Active(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	today := e.today()
	days := make([]int, 0, DaysInMonth(year, month))
	for day := 1; day <= DaysInMonth(year, month); day++ {
		date := Date{Year: year, Month: month, Day: day}
		if date.Before(today) {
			continue
		}
		avail, err := e.slotsForService(ctx, date, svc)
		if err != nil {
			return nil, err
		}
		if len(avail.Slots) > 0 {
			days = append(days, day)
		}
	}
	return days, nil
}

func (e *Engine) slotsForService(ctx context.Context, date Date, svc *catalog.Service) (*DayAvailability, error) {
	blocked, err := e.rules.Blocked(ctx, date.String())
	if err != nil {
		return nil, err
	}
	if blocked {
		return &DayAvailability{Date: date, Slots: []string{}, Reason: ReasonDateBlocked}, nil
	}

	hours, err := e.rules.Hours(ctx, date.Weekday())
	if err != nil {
		return nil, err
	}
	if hours == nil || !hours.IsOpen {
		return &DayAvailability{Date: date, Slots: []string{}, Reason: ReasonClosed}, nil
	}

	open, close, err := OpeningWindow(hours)
	if err != nil {
		e.logger.Error("business hours misconfigured",
			"weekday", hours.Weekday,
			"open", hours.OpenTime,
			"close", hours.CloseTime,
			"error", err,
		)
		return nil, err
	}

	busy, err := e.ledger.BookedIntervals(ctx, date.String())
	if err != nil {
		return nil, err
	}

	slots := enumerate(open, close, svc.DurationMinutes, e.grid, busy)
	return &DayAvailability{Date: date, Slots: slots}, nil
}

// OpeningWindow parses and validates a business-hours row into open/close
// minutes. Any violation of 0 <= open < close <= 1440 is ErrInvalidHours.
func OpeningWindow(hours *schedule.DayHours) (int, int, error) {
	open, err := ParseClock(hours.OpenTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s open %q", schedule.ErrInvalidHours, hours.Weekday, hours.OpenTime)
	}
	close, err := ParseClock(hours.CloseTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s close %q", schedule.ErrInvalidHours, hours.Weekday, hours.CloseTime)
	}
	if open >= close {
		return 0, 0, fmt.Errorf("%w: %s open %s not before close %s",
			schedule.ErrInvalidHours, hours.Weekday, hours.OpenTime, hours.CloseTime)
	}
	return open, close, nil
}

// enumerate walks the candidate grid and keeps every start whose service
// interval fits within hours and overlaps no busy interval. The last slot's
// end may fall between grid points for durations that are not a grid
// multiple; it only has to satisfy end <= close.
func enumerate(open, close, duration, grid int, busy []Interval) []string {
	slots := []string{}
	for start := open; start+duration <= close; start += grid {
		candidate := Interval{Start: start, End: start + duration}
		if overlapsAny(candidate, busy) {
			continue
		}
		slots = append(slots, FormatClock(start))
	}
	return slots
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
