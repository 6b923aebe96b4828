package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking-api/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking-api/internal/api/router"
	"github.com/wolfman30/clinic-booking-api/internal/appointments"
	"github.com/wolfman30/clinic-booking-api/internal/availability"
	"github.com/wolfman30/clinic-booking-api/internal/catalog"
	appconfig "github.com/wolfman30/clinic-booking-api/internal/config"
	"github.com/wolfman30/clinic-booking-api/internal/http/csrf"
	"github.com/wolfman30/clinic-booking-api/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-api/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-api/internal/notify"
	"github.com/wolfman30/clinic-booking-api/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-api/internal/schedule"
	"github.com/wolfman30/clinic-booking-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-booking-api server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	// Two handles on the same database: the pgx pool drives the booking
	// transaction and schedule reads, database/sql serves the catalog.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	scheduleStore := schedule.NewStore(pool)
	catalogStore := catalog.NewStore(db)
	apptStore := appointments.NewStore(pool)

	engine := availability.NewEngine(scheduleStore, catalogStore, apptStore, logger).
		WithGrid(cfg.SlotGridMinutes)

	confirmer := notify.NewConfirmations(buildEmailSender(cfg, logger), cfg.ClinicName, logger)
	bookingService := appointments.NewService(apptStore, catalogStore, scheduleStore, confirmer, cfg.EmailSendTimeout, logger)

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	var minter *csrf.Minter
	if cfg.CSRFSecret != "" {
		minter = csrf.NewMinter(cfg.CSRFSecret, cfg.CSRFTokenTTL)
	} else {
		logger.Warn("CSRF_SECRET not set, booking form CSRF protection disabled")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     handlers.NewBookingHandler(engine, bookingService, minter, bookingMetrics, cfg.BookingWindowDays, logger),
		ServicesHandler:    handlers.NewServicesHandler(catalogStore, logger),
		HealthHandler:      handlers.Health(db),
		MetricsHandler:     promhttp.Handler(),
		CSRFMinter:         minter,
		RateLimit:          buildRateLimiter(cfg, logger),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the confirmation transport from config. With no
// provider configured bookings still succeed, confirmations are logged only.
func buildEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but not configured, falling back to stub sender")
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to load AWS config, falling back to stub sender", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("ses selected but not configured, falling back to stub sender")
	}
	return notify.NewStubEmailSender(logger)
}

// buildRateLimiter prefers the Redis fixed-window limiter so limits hold
// across replicas; without Redis it falls back to the in-process bucket.
func buildRateLimiter(cfg *appconfig.Config, logger *logging.Logger) func(http.Handler) http.Handler {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb := redis.NewClient(opts)
		logger.Info("rate limiting via redis", "addr", cfg.RedisAddr, "per_minute", cfg.RateLimitPerMinute)
		return httpmiddleware.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, logger).Middleware()
	}
	logger.Info("rate limiting in process", "per_minute", cfg.RateLimitPerMinute, "burst", cfg.RateLimitBurst)
	return httpmiddleware.NewRateLimiter(float64(cfg.RateLimitPerMinute)/60.0, cfg.RateLimitBurst).Middleware()
}
