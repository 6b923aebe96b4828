package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flows.
type BookingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	slotQueriesTotal *prometheus.CounterVec
	slotLatency      prometheus.Histogram
	confirmations    *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking creation attempts by outcome",
		}, []string{"outcome"}),
		slotQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "slot_queries_total",
			Help:      "Available-slot queries by outcome",
		}, []string{"outcome"}),
		slotLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "slot_query_latency_seconds",
			Help:      "Latency of availability computations",
			Buckets:   prometheus.DefBuckets,
		}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "confirmation_emails_total",
			Help:      "Confirmation email attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotQueriesTotal, m.slotLatency, m.confirmations)
	return m
}

// ObserveBooking records a booking attempt outcome, e.g. "created",
// "conflict", "validation_failed".
func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSlotQuery records an available-slots query outcome.
func (m *BookingMetrics) ObserveSlotQuery(outcome string) {
	if m == nil {
		return
	}
	m.slotQueriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSlotLatency records availability computation latency in seconds.
func (m *BookingMetrics) ObserveSlotLatency(seconds float64) {
	if m == nil {
		return
	}
	m.slotLatency.Observe(seconds)
}

// ObserveConfirmation records whether a confirmation email went out.
func (m *BookingMetrics) ObserveConfirmation(sent bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if sent {
		outcome = "sent"
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}
