package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking-api/internal/availability"
	"github.com/wolfman30/clinic-booking-api/internal/catalog"
	"github.com/wolfman30/clinic-booking-api/internal/notify"
	"github.com/wolfman30/clinic-booking-api/internal/schedule"
)

type stubLedger struct {
	created *NewAppointment
	err     error
}

func (s *stubLedger) Create(_ context.Context, appt NewAppointment) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	s.created = &appt
	return uuid.New(), nil
}

type stubCatalog struct {
	svc *catalog.Service
}

func (s *stubCatalog) Active(_ context.Context, id string) (*catalog.Service, error) {
	if s.svc == nil || s.svc.ID != id {
		return nil, catalog.ErrServiceNotFound
	}
	return s.svc, nil
}

type stubRules struct {
	hours   map[string]*schedule.DayHours
	blocked map[string]bool
}

func (s *stubRules) Hours(_ context.Context, weekday string) (*schedule.DayHours, error) {
	return s.hours[weekday], nil
}

func (s *stubRules) Blocked(_ context.Context, date string) (bool, error) {
	return s.blocked[date], nil
}

type stubConfirmer struct {
	sent bool
	ok   bool
}

func (s *stubConfirmer) Send(_ context.Context, _ notify.Confirmation) bool {
	s.sent = true
	return s.ok
}

func weekdayHours() *stubRules {
	open := func(day string) *schedule.DayHours {
		return &schedule.DayHours{Weekday: day, IsOpen: true, OpenTime: "09:00:00", CloseTime: "17:00:00"}
	}
	return &stubRules{
		hours: map[string]*schedule.DayHours{
			"Monday": open("Monday"), "Tuesday": open("Tuesday"), "Wednesday": open("Wednesday"),
			"Thursday": open("Thursday"), "Friday": open("Friday"),
		},
		blocked: map[string]bool{},
	}
}

func validRequest() CreateRequest {
	return CreateRequest{
		FullName:  "Dana Reyes",
		Email:     "dana@example.com",
		Phone:     "5551234567",
		ServiceID: "filling",
		Date:      availability.Date{Year: 2026, Month: 3, Day: 2}, // Monday
		StartTime: "14:00:00",
	}
}

func newTestService(ledger *stubLedger, confirmer Confirmer) *Service {
	cat := &stubCatalog{svc: &catalog.Service{ID: "filling", Name: "Filling", DurationMinutes: 45, IsActive: true}}
	return NewService(ledger, cat, weekdayHours(), confirmer, time.Second, nil)
}

func TestCreateComputesEndFromDuration(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(ledger, nil)

	result, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if result.EndTime != "14:45:00" {
		t.Fatalf("end time = %q, want 14:45:00 (45-minute duration)", result.EndTime)
	}
	if ledger.created == nil {
		t.Fatal("expected ledger insert")
	}
	if ledger.created.EndTime != "14:45:00" || ledger.created.StartTime != "14:00:00" {
		t.Fatalf("persisted interval %s-%s wrong", ledger.created.StartTime, ledger.created.EndTime)
	}
	if result.BookedDate != "2026-03-02" {
		t.Fatalf("booked date = %q", result.BookedDate)
	}
	if result.AppointmentID == uuid.Nil {
		t.Fatal("expected assigned appointment id")
	}
}

func TestCreateUnknownService(t *testing.T) {
	svc := newTestService(&stubLedger{}, nil)
	req := validRequest()
	req.ServiceID = "retired"

	_, err := svc.Create(context.Background(), req)
	if !errors.Is(err, catalog.ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestCreateOutsideHours(t *testing.T) {
	svc := newTestService(&stubLedger{}, nil)

	// Ends past close.
	req := validRequest()
	req.StartTime = "16:30:00" // 45m duration ends 17:15
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, ErrOutsideHours) {
		t.Fatalf("expected ErrOutsideHours past close, got %v", err)
	}

	// Closed weekday.
	req = validRequest()
	req.Date = availability.Date{Year: 2026, Month: 3, Day: 1} // Sunday
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, ErrOutsideHours) {
		t.Fatalf("expected ErrOutsideHours on closed day, got %v", err)
	}
}

func TestCreateConflictPropagates(t *testing.T) {
	svc := newTestService(&stubLedger{err: ErrSlotTaken}, nil)

	_, err := svc.Create(context.Background(), validRequest())
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestCreateConfirmationAdvisory(t *testing.T) {
	ledger := &stubLedger{}
	confirmer := &stubConfirmer{ok: false}
	svc := newTestService(ledger, confirmer)

	result, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Create returned error despite email failure: %v", err)
	}
	if !confirmer.sent {
		t.Fatal("expected confirmation attempt")
	}
	if result.ConfirmationSent {
		t.Fatal("failed email must report confirmationSent=false")
	}
	if ledger.created == nil {
		t.Fatal("booking must persist regardless of email outcome")
	}

	confirmer = &stubConfirmer{ok: true}
	svc = newTestService(&stubLedger{}, confirmer)
	result, err = svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !result.ConfirmationSent {
		t.Fatal("successful email must report confirmationSent=true")
	}
}

func TestCreateInvalidHoursSurfaceAsConfigError(t *testing.T) {
	cat := &stubCatalog{svc: &catalog.Service{ID: "filling", Name: "Filling", DurationMinutes: 45, IsActive: true}}
	rules := &stubRules{
		hours: map[string]*schedule.DayHours{
			"Monday": {Weekday: "Monday", IsOpen: true, OpenTime: "17:00:00", CloseTime: "09:00:00"},
		},
		blocked: map[string]bool{},
	}
	svc := NewService(&stubLedger{}, cat, rules, nil, time.Second, nil)

	_, err := svc.Create(context.Background(), validRequest())
	if !errors.Is(err, schedule.ErrInvalidHours) {
		t.Fatalf("expected ErrInvalidHours, got %v", err)
	}
}
