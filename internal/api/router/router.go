package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking-api/internal/http/csrf"
	"github.com/wolfman30/clinic-booking-api/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-api/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	BookingHandler  *handlers.BookingHandler
	ServicesHandler *handlers.ServicesHandler
	HealthHandler   http.HandlerFunc
	MetricsHandler  http.Handler

	// CSRFMinter guards POST /booking/create when non-nil.
	CSRFMinter *csrf.Minter

	// RateLimit applies to the /booking subtree. Optional; either the
	// Redis-backed limiter or the in-process one satisfies it.
	RateLimit func(http.Handler) http.Handler

	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(httpmiddleware.SecurityHeaders())
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	if cfg.ServicesHandler != nil {
		r.Get("/services", cfg.ServicesHandler.List)
	}

	if cfg.BookingHandler != nil {
		r.Route("/booking", func(b chi.Router) {
			if cfg.RateLimit != nil {
				b.Use(cfg.RateLimit)
			}
			b.Get("/available-slots", cfg.BookingHandler.AvailableSlots)
			b.Get("/available-dates", cfg.BookingHandler.AvailableDates)
			b.Get("/csrf-token", cfg.BookingHandler.CSRFToken)
			b.With(csrf.Require(cfg.CSRFMinter)).Post("/create", cfg.BookingHandler.Create)
		})
	}

	return r
}
