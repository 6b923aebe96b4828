package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/clinic-booking-api/internal/appointments"
	"github.com/wolfman30/clinic-booking-api/internal/availability"
	"github.com/wolfman30/clinic-booking-api/internal/catalog"
	"github.com/wolfman30/clinic-booking-api/internal/http/csrf"
	"github.com/wolfman30/clinic-booking-api/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-api/internal/schedule"
	"github.com/wolfman30/clinic-booking-api/internal/validate"
	"github.com/wolfman30/clinic-booking-api/pkg/logging"
)

// How far back an availability query may look. Bookings themselves only go
// forward from today.
const availabilityLookbackDays = 365

// SlotEngine is the availability computation the handler fronts.
type SlotEngine interface {
	SlotsForDate(ctx context.Context, date availability.Date, serviceID string) (*availability.DayAvailability, error)
	DatesInMonth(ctx context.Context, year, month int, serviceID string) ([]int, error)
}

// Booker runs the booking transaction.
type Booker interface {
	Create(ctx context.Context, req appointments.CreateRequest) (*appointments.CreateResult, error)
}

// BookingHandler serves the public /booking endpoints.
type BookingHandler struct {
	engine     SlotEngine
	bookings   Booker
	csrf       *csrf.Minter
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
	windowDays int
	today      func() availability.Date
}

// NewBookingHandler wires the booking endpoints. csrfMinter and m may be nil.
func NewBookingHandler(engine SlotEngine, bookings Booker, csrfMinter *csrf.Minter, m *metrics.BookingMetrics, windowDays int, logger *logging.Logger) *BookingHandler {
	if engine == nil || bookings == nil {
		panic("handlers: engine and bookings required")
	}
	if windowDays <= 0 {
		windowDays = 365
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{
		engine:     engine,
		bookings:   bookings,
		csrf:       csrfMinter,
		metrics:    m,
		logger:     logger,
		windowDays: windowDays,
		today:      availability.Today,
	}
}

// WithToday overrides the "today" source for tests.
func (h *BookingHandler) WithToday(today func() availability.Date) *BookingHandler {
	if today != nil {
		h.today = today
	}
	return h
}

// AvailableSlots handles GET /booking/available-slots?date=&serviceId=.
func (h *BookingHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	serviceID := r.URL.Query().Get("serviceId")

	if errs := validate.SlotQuery(dateStr, serviceID); errs != nil {
		h.metrics.ObserveSlotQuery("validation_failed")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid query", "fields": errs})
		return
	}

	date, err := availability.ParseDate(dateStr)
	if err != nil {
		h.metrics.ObserveSlotQuery("validation_failed")
		writeError(w, http.StatusBadRequest, "date must be a real calendar date")
		return
	}
	diff := date.Ordinal() - h.today().Ordinal()
	if diff < -availabilityLookbackDays || diff > h.windowDays {
		h.metrics.ObserveSlotQuery("validation_failed")
		writeError(w, http.StatusBadRequest, "date is outside the bookable window")
		return
	}

	start := time.Now()
	avail, err := h.engine.SlotsForDate(r.Context(), date, serviceID)
	h.metrics.ObserveSlotLatency(time.Since(start).Seconds())
	if err != nil {
		h.respondEngineError(w, err, "available slots", dateStr, serviceID)
		return
	}

	switch avail.Reason {
	case availability.ReasonDateBlocked:
		h.metrics.ObserveSlotQuery("blocked")
		writeJSON(w, http.StatusOK, map[string]any{
			"availableSlots": []string{},
			"requestedDate":  dateStr,
			"message":        "This date is not available for booking.",
		})
	case availability.ReasonClosed:
		h.metrics.ObserveSlotQuery("closed")
		writeJSON(w, http.StatusOK, map[string]any{
			"availableSlots": []string{},
			"requestedDate":  dateStr,
			"message":        "The office is closed on this day.",
		})
	default:
		h.metrics.ObserveSlotQuery("ok")
		writeJSON(w, http.StatusOK, map[string]any{
			"availableSlots": avail.Slots,
			"requestedDate":  dateStr,
		})
	}
}

// AvailableDates handles GET /booking/available-dates?year=&month=&serviceId=.
func (h *BookingHandler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		writeError(w, http.StatusBadRequest, "year must be a four-digit year")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12")
		return
	}
	serviceID := r.URL.Query().Get("serviceId")
	if errs := validate.SlotQuery("2000-01-01", serviceID); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid query", "fields": errs})
		return
	}

	days, err := h.engine.DatesInMonth(r.Context(), year, month, serviceID)
	if err != nil {
		h.respondEngineError(w, err, "available dates", "", serviceID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"availableDates": days})
}

// Create handles POST /booking/create.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req validate.BookingRequest
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.metrics.ObserveBooking("validation_failed")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, errs := validate.Booking(req)
	if errs != nil {
		h.metrics.ObserveBooking("validation_failed")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": errs})
		return
	}

	date, err := availability.ParseDate(req.Date)
	if err != nil {
		h.metrics.ObserveBooking("validation_failed")
		writeError(w, http.StatusBadRequest, "date must be a real calendar date")
		return
	}
	diff := date.Ordinal() - h.today().Ordinal()
	if diff < 0 {
		h.metrics.ObserveBooking("validation_failed")
		writeError(w, http.StatusBadRequest, "appointments cannot be booked in the past")
		return
	}
	if diff > h.windowDays {
		h.metrics.ObserveBooking("validation_failed")
		writeError(w, http.StatusBadRequest, "date is beyond the booking window")
		return
	}

	result, err := h.bookings.Create(r.Context(), appointments.CreateRequest{
		FullName:  req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		ServiceID: req.Service,
		Date:      date,
		StartTime: req.Time,
		Notes:     req.Notes,
	})
	if err != nil {
		h.respondBookingError(w, err, date.String(), req.Service)
		return
	}

	h.metrics.ObserveBooking("created")
	h.metrics.ObserveConfirmation(result.ConfirmationSent)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":          true,
		"appointmentId":    result.AppointmentID.String(),
		"bookedDate":       result.BookedDate,
		"startTime":        result.StartTime,
		"endTime":          result.EndTime,
		"confirmationSent": result.ConfirmationSent,
	})
}

// CSRFToken handles GET /booking/csrf-token.
func (h *BookingHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	if h.csrf == nil {
		writeJSON(w, http.StatusOK, map[string]string{"csrfToken": ""})
		return
	}
	token, err := h.csrf.Issue()
	if err != nil {
		h.logger.Error("csrf token mint failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (h *BookingHandler) respondEngineError(w http.ResponseWriter, err error, op, date, serviceID string) {
	switch {
	case errors.Is(err, catalog.ErrServiceNotFound):
		h.metrics.ObserveSlotQuery("not_found")
		writeError(w, http.StatusNotFound, "service not found")
	case errors.Is(err, schedule.ErrInvalidHours):
		h.metrics.ObserveSlotQuery("config_error")
		h.logger.Error("business hours configuration error", "op", op, "date", date, "service_id", serviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		h.metrics.ObserveSlotQuery("error")
		h.logger.Error("availability query failed", "op", op, "date", date, "service_id", serviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *BookingHandler) respondBookingError(w http.ResponseWriter, err error, date, serviceID string) {
	switch {
	case errors.Is(err, catalog.ErrServiceNotFound):
		h.metrics.ObserveBooking("not_found")
		writeError(w, http.StatusNotFound, "invalid or inactive service")
	case errors.Is(err, appointments.ErrSlotTaken):
		h.metrics.ObserveBooking("conflict")
		writeError(w, http.StatusConflict, "this time slot is no longer available")
	case errors.Is(err, appointments.ErrDateBlocked):
		h.metrics.ObserveBooking("conflict")
		writeError(w, http.StatusConflict, "this date is not available for booking")
	case errors.Is(err, appointments.ErrOutsideHours):
		h.metrics.ObserveBooking("conflict")
		writeError(w, http.StatusConflict, "requested time is outside business hours")
	case errors.Is(err, schedule.ErrInvalidHours):
		h.metrics.ObserveBooking("config_error")
		h.logger.Error("business hours configuration error during booking", "date", date, "service_id", serviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		h.metrics.ObserveBooking("error")
		h.logger.Error("booking failed", "date", date, "service_id", serviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
