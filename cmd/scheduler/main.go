package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vakwerk_backend/internal/catalog"
	"vakwerk_backend/internal/config"
	"vakwerk_backend/internal/email"
	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/jobs"
	matchingrepo "vakwerk_backend/internal/matching/repository"
	"vakwerk_backend/internal/notification"
	"vakwerk_backend/internal/providers"
	"vakwerk_backend/internal/scheduler"
	"vakwerk_backend/platform/db"
	"vakwerk_backend/platform/logger"
	"vakwerk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	var sender email.Sender = email.NopSender{}
	if cfg.EmailEnabled {
		sender = email.NewSMTPSender(cfg)
	}

	// Worker-side module wiring (no HTTP handlers required).
	catalogModule := catalog.NewModule(pool, log)
	jobsModule := jobs.NewModule(pool, catalogModule.Repository(), eventBus, val, log)
	providersModule := providers.NewModule(pool, eventBus, val, log)
	assignments := matchingrepo.New(pool)

	// Penalties and expulsions raised by the sweeps mail like any other.
	notification.NewModule(
		sender,
		providersModule.Repository(),
		jobsModule.Repository(),
		assignments,
		cfg,
		eventBus,
		log,
	)

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = reminderClient.Close() }()

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker, err := scheduler.NewWorker(
		cfg,
		providersModule.Repository(),
		providersModule.Scoring(),
		assignments,
		jobsModule.Repository(),
		reminderClient,
		eventBus,
		log,
	)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
