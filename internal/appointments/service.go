package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-booking-api/internal/availability"
	"github.com/wolfman30/clinic-booking-api/internal/catalog"
	"github.com/wolfman30/clinic-booking-api/internal/notify"
	"github.com/wolfman30/clinic-booking-api/pkg/logging"
)

var bookingTracer = otel.Tracer("clinicbooking.internal.appointments")

// ErrOutsideHours is returned when the requested time does not fit the
// configured business hours for that weekday (including closed days).
var ErrOutsideHours = errors.New("appointments: requested time is outside business hours")

// Ledger is the persistence surface the booking service writes through.
type Ledger interface {
	Create(ctx context.Context, appt NewAppointment) (uuid.UUID, error)
}

// ServiceSource resolves service ids to active catalog rows.
type ServiceSource interface {
	Active(ctx context.Context, id string) (*catalog.Service, error)
}

// Confirmer delivers the post-commit confirmation email. Implementations
// must be best-effort: a false return never unwinds the booking.
type Confirmer interface {
	Send(ctx context.Context, c notify.Confirmation) bool
}

// CreateRequest is a booking that already passed boundary validation: the
// date is a real calendar date inside the booking window and the time is
// normalized HH:MM:SS.
type CreateRequest struct {
	FullName  string
	Email     string
	Phone     string
	ServiceID string
	Date      availability.Date
	StartTime string
	Notes     string
}

// CreateResult reports a committed booking. ConfirmationSent is advisory;
// the appointment exists either way.
type CreateResult struct {
	AppointmentID    uuid.UUID
	BookedDate       string
	StartTime        string
	EndTime          string
	ConfirmationSent bool
}

// Service runs the booking transaction: resolve the service, derive the end
// time, verify the request against the same calendar rules the availability
// engine uses, and commit through the ledger's conflict check.
type Service struct {
	ledger       Ledger
	services     ServiceSource
	rules        availability.Rules
	confirmer    Confirmer
	emailTimeout time.Duration
	logger       *logging.Logger
}

// NewService constructs a booking service. confirmer may be nil when email
// is disabled.
func NewService(ledger Ledger, services ServiceSource, rules availability.Rules, confirmer Confirmer, emailTimeout time.Duration, logger *logging.Logger) *Service {
	if ledger == nil || services == nil || rules == nil {
		panic("appointments: ledger, services, and rules required")
	}
	if emailTimeout <= 0 {
		emailTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		ledger:       ledger,
		services:     services,
		rules:        rules,
		confirmer:    confirmer,
		emailTimeout: emailTimeout,
		logger:       logger,
	}
}

// Create books the appointment. Failure modes surface as typed errors:
// catalog.ErrServiceNotFound, ErrOutsideHours, ErrDateBlocked, ErrSlotTaken,
// schedule.ErrInvalidHours; anything else is infrastructure.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.date", req.Date.String()),
		attribute.String("booking.service_id", req.ServiceID),
	)

	svc, err := s.services.Active(ctx, req.ServiceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start, err := availability.ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	end := start + svc.DurationMinutes
	endTime := availability.FormatClock(end)

	hours, err := s.rules.Hours(ctx, req.Date.Weekday())
	if err != nil {
		return nil, err
	}
	if hours == nil || !hours.IsOpen {
		return nil, ErrOutsideHours
	}
	open, close, err := availability.OpeningWindow(hours)
	if err != nil {
		s.logger.Error("business hours misconfigured during booking",
			"weekday", req.Date.Weekday(), "error", err)
		return nil, err
	}
	if start < open || end > close {
		return nil, ErrOutsideHours
	}

	id, err := s.ledger.Create(ctx, NewAppointment{
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		ServiceID: req.ServiceID,
		Date:      req.Date.String(),
		StartTime: req.StartTime,
		EndTime:   endTime,
		Notes:     req.Notes,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &CreateResult{
		AppointmentID: id,
		BookedDate:    req.Date.String(),
		StartTime:     req.StartTime,
		EndTime:       endTime,
	}
	s.logger.Info("appointment booked",
		"appointment_id", id,
		"service_id", req.ServiceID,
		"date", result.BookedDate,
		"start", req.StartTime,
		"end", endTime,
	)

	// Post-commit, timeout-bounded, best-effort. The booking is already
	// durable; only the advisory flag depends on the outcome.
	if s.confirmer != nil {
		emailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.emailTimeout)
		defer cancel()
		result.ConfirmationSent = s.confirmer.Send(emailCtx, notify.Confirmation{
			FullName:    req.FullName,
			Email:       req.Email,
			ServiceName: svc.Name,
			Date:        result.BookedDate,
			StartTime:   req.StartTime,
		})
	}

	return result, nil
}
