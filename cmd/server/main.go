package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/almonzer-fadl/teramotors/internal/api"
	"github.com/almonzer-fadl/teramotors/internal/config"
	"github.com/almonzer-fadl/teramotors/internal/events"
	"github.com/almonzer-fadl/teramotors/internal/metrics"
	"github.com/almonzer-fadl/teramotors/internal/model"
	"github.com/almonzer-fadl/teramotors/internal/notify"
	"github.com/almonzer-fadl/teramotors/internal/reminder"
	"github.com/almonzer-fadl/teramotors/internal/scheduler"
	"github.com/almonzer-fadl/teramotors/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(configPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	cal, err := cfg.BusinessCalendar()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid business calendar")
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	bus := events.NewBus()
	subscribeLogging(bus, &logger)

	engine := scheduler.New(db, cal, cfg.Booking.MaxAdvanceDays, bus, &logger)

	var dispatcher *reminder.Dispatcher
	if cfg.Reminders.Enabled {
		var notifier notify.Notifier
		if cfg.Reminders.WebhookURL != "" {
			notifier = notify.NewWebhookNotifier(cfg.Reminders.WebhookURL, cfg.Reminders.RatePerSecond, cfg.Reminders.Burst)
		} else {
			notifier = notify.NewLogNotifier(&logger)
		}

		var dedupe reminder.DedupeStore
		if redisClient != nil {
			dedupe = reminder.NewRedisDedupe(redisClient, cfg.DedupeTTL())
		} else {
			logger.Warn().Msg("redis not configured, reminder dedupe is in-memory only")
			dedupe = reminder.NewMemoryDedupe()
		}

		dispatcher = reminder.NewDispatcher(db, notifier, dedupe, bus, cfg.Reminders.MaxConcurrentSends, &logger)
		go dispatcher.RunDaily(ctx, cfg.Reminders.DispatchHour)
	}

	var runner api.ReminderRunner
	if dispatcher != nil {
		runner = dispatcher
	}
	apiServer := api.NewServer(engine, runner, &logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go runHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, redisClient, &logger)
	if cfg.Monitoring.PrometheusEnabled {
		go runMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}

func configPath() string {
	if path := os.Getenv("TERAMOTORS_CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}

func subscribeLogging(bus *events.Bus, logger *zerolog.Logger) {
	log := func(ev events.Event) {
		appt, ok := ev.Payload.(*model.Appointment)
		if !ok {
			return
		}
		logger.Info().
			Str("event", ev.Type).
			Str("appointment_id", appt.ID).
			Str("mechanic_id", appt.MechanicID).
			Msg("lifecycle event")
	}
	for _, eventType := range []string{
		events.TypeAppointmentScheduled,
		events.TypeAppointmentInProgress,
		events.TypeAppointmentCompleted,
		events.TypeAppointmentCancelled,
		events.TypeReminderDispatched,
	} {
		bus.Subscribe(eventType, log)
	}
}

func runHealthServer(ctx context.Context, port int, db *store.Store, redisClient *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(checkCtx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(checkCtx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ready")
	})
	serveUntilDone(ctx, port, mux, "health server", logger)
}

func runMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serveUntilDone(ctx, port, mux, "metrics server", logger)
}

func serveUntilDone(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Info().Int("port", port).Msg(name + " listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg(name + " failed")
	}
}
