package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-api/internal/appointments"
	"github.com/wolfman30/clinic-booking-api/internal/availability"
	"github.com/wolfman30/clinic-booking-api/internal/catalog"
)

type stubEngine struct {
	avail *availability.DayAvailability
	days  []int
	err   error
}

func (s *stubEngine) SlotsForDate(_ context.Context, date availability.Date, _ string) (*availability.DayAvailability, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.avail
	out.Date = date
	return &out, nil
}

func (s *stubEngine) DatesInMonth(_ context.Context, _, _ int, _ string) ([]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.days, nil
}

type stubBooker struct {
	result  *appointments.CreateResult
	err     error
	lastReq *appointments.CreateRequest
}

func (s *stubBooker) Create(_ context.Context, req appointments.CreateRequest) (*appointments.CreateResult, error) {
	s.lastReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func fixedToday() availability.Date {
	return availability.Date{Year: 2026, Month: 3, Day: 1}
}

func newHandler(engine SlotEngine, booker Booker) *BookingHandler {
	return NewBookingHandler(engine, booker, nil, nil, 365, nil).WithToday(fixedToday)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAvailableSlotsOK(t *testing.T) {
	engine := &stubEngine{avail: &availability.DayAvailability{Slots: []string{"09:00:00", "09:30:00"}}}
	h := newHandler(engine, &stubBooker{})

	req := httptest.NewRequest(http.MethodGet, "/booking/available-slots?date=2026-03-02&serviceId=checkup", nil)
	rec := httptest.NewRecorder()
	h.AvailableSlots(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "2026-03-02", body["requestedDate"])
	require.Len(t, body["availableSlots"], 2)
	require.NotContains(t, body, "message")
}

func TestAvailableSlotsBlockedVsClosed(t *testing.T) {
	blocked := &stubEngine{avail: &availability.DayAvailability{Slots: []string{}, Reason: availability.ReasonDateBlocked}}
	h := newHandler(blocked, &stubBooker{})
	req := httptest.NewRequest(http.MethodGet, "/booking/available-slots?date=2026-12-25&serviceId=checkup", nil)
	rec := httptest.NewRecorder()
	h.AvailableSlots(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Empty(t, body["availableSlots"])
	require.Contains(t, body["message"], "not available")

	closed := &stubEngine{avail: &availability.DayAvailability{Slots: []string{}, Reason: availability.ReasonClosed}}
	h = newHandler(closed, &stubBooker{})
	req = httptest.NewRequest(http.MethodGet, "/booking/available-slots?date=2026-03-08&serviceId=checkup", nil)
	rec = httptest.NewRecorder()
	h.AvailableSlots(rec, req)
	body = decodeBody(t, rec)
	require.Contains(t, body["message"], "closed")
}

func TestAvailableSlotsValidation(t *testing.T) {
	h := newHandler(&stubEngine{avail: &availability.DayAvailability{}}, &stubBooker{})

	cases := []string{
		"/booking/available-slots?serviceId=checkup",              // missing date
		"/booking/available-slots?date=junk&serviceId=checkup",    // not a date
		"/booking/available-slots?date=2026-02-30&serviceId=chk",  // impossible date
		"/booking/available-slots?date=2031-01-01&serviceId=chk3", // beyond window
	}
	for _, url := range cases {
		rec := httptest.NewRecorder()
		h.AvailableSlots(rec, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestAvailableSlotsServiceNotFound(t *testing.T) {
	h := newHandler(&stubEngine{err: catalog.ErrServiceNotFound}, &stubBooker{})
	req := httptest.NewRequest(http.MethodGet, "/booking/available-slots?date=2026-03-02&serviceId=unknown_svc", nil)
	rec := httptest.NewRecorder()
	h.AvailableSlots(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailableDates(t *testing.T) {
	h := newHandler(&stubEngine{days: []int{16, 23, 30}}, &stubBooker{})
	req := httptest.NewRequest(http.MethodGet, "/booking/available-dates?year=2026&month=3&serviceId=checkup", nil)
	rec := httptest.NewRecorder()
	h.AvailableDates(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Len(t, body["availableDates"], 3)

	rec = httptest.NewRecorder()
	h.AvailableDates(rec, httptest.NewRequest(http.MethodGet, "/booking/available-dates?year=2026&month=13&serviceId=checkup", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func validCreateBody() string {
	return `{
		"service": "filling",
		"date": "2026-03-02",
		"time": "14:00",
		"name": "Dana Reyes",
		"email": "dana@example.com",
		"phone": "(555) 123-4567",
		"notes": "first visit"
	}`
}

func TestCreateBooking(t *testing.T) {
	booker := &stubBooker{result: &appointments.CreateResult{
		AppointmentID:    uuid.New(),
		BookedDate:       "2026-03-02",
		StartTime:        "14:00:00",
		EndTime:          "14:45:00",
		ConfirmationSent: true,
	}}
	h := newHandler(&stubEngine{avail: &availability.DayAvailability{}}, booker)

	req := httptest.NewRequest(http.MethodPost, "/booking/create", strings.NewReader(validCreateBody()))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, "2026-03-02", body["bookedDate"])
	require.Equal(t, true, body["confirmationSent"])

	// Time was normalized before reaching the booking service.
	require.Equal(t, "14:00:00", booker.lastReq.StartTime)
	require.Equal(t, "5551234567", booker.lastReq.Phone)
}

func TestCreateBookingValidation(t *testing.T) {
	h := newHandler(&stubEngine{avail: &availability.DayAvailability{}}, &stubBooker{})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/booking/create", strings.NewReader("{not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/booking/create", strings.NewReader(`{"service":"filling"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body, "fields")

	// A time off the minute boundary is a field error, not a server error,
	// and must never reach the booking service.
	booker := &stubBooker{}
	h = newHandler(&stubEngine{avail: &availability.DayAvailability{}}, booker)
	offGrid := strings.Replace(validCreateBody(), `"14:00"`, `"14:00:30"`, 1)
	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/booking/create", strings.NewReader(offGrid)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decodeBody(t, rec)
	require.Contains(t, body["fields"], "time")
	require.Nil(t, booker.lastReq)

	// Past date.
	past := strings.Replace(validCreateBody(), "2026-03-02", "2026-02-02", 1)
	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/booking/create", strings.NewReader(past)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{catalog.ErrServiceNotFound, http.StatusNotFound},
		{appointments.ErrSlotTaken, http.StatusConflict},
		{appointments.ErrDateBlocked, http.StatusConflict},
		{appointments.ErrOutsideHours, http.StatusConflict},
	}
	for _, tc := range cases {
		h := newHandler(&stubEngine{avail: &availability.DayAvailability{}}, &stubBooker{err: tc.err})
		rec := httptest.NewRecorder()
		h.Create(rec, httptest.NewRequest(http.MethodPost, "/booking/create", strings.NewReader(validCreateBody())))
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		body := decodeBody(t, rec)
		require.NotEmpty(t, body["error"])
	}
}

func TestCSRFTokenEndpoint(t *testing.T) {
	h := newHandler(&stubEngine{avail: &availability.DayAvailability{}}, &stubBooker{})
	rec := httptest.NewRecorder()
	h.CSRFToken(rec, httptest.NewRequest(http.MethodGet, "/booking/csrf-token", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	_, ok := body["csrfToken"]
	require.True(t, ok)
}
