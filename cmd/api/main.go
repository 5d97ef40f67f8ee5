package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vakwerk_backend/internal/catalog"
	"vakwerk_backend/internal/config"
	"vakwerk_backend/internal/email"
	"vakwerk_backend/internal/escalation"
	"vakwerk_backend/internal/events"
	apphttp "vakwerk_backend/internal/http"
	"vakwerk_backend/internal/http/router"
	"vakwerk_backend/internal/jobs"
	"vakwerk_backend/internal/matching"
	"vakwerk_backend/internal/notification"
	"vakwerk_backend/internal/pricing"
	"vakwerk_backend/internal/providers"
	"vakwerk_backend/internal/weather"
	"vakwerk_backend/platform/db"
	"vakwerk_backend/platform/logger"
	"vakwerk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, cfg.MigrationsDir)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var sender email.Sender = email.NopSender{}
	if cfg.EmailEnabled {
		sender = email.NewSMTPSender(cfg)
		log.Info("email sender initialized", "host", cfg.SMTPHost)
	} else {
		log.Warn("email disabled; transactional mail is discarded")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	catalogModule := catalog.NewModule(pool, log)
	jobsModule := jobs.NewModule(pool, catalogModule.Repository(), eventBus, val, log)
	providersModule := providers.NewModule(pool, eventBus, val, log)

	matchingModule := matching.NewModule(
		pool,
		jobsModule.Repository(),
		catalogModule.Repository(),
		providersModule.Repository(),
		eventBus,
		val,
		log,
	)

	escalationModule := escalation.NewModule(pool, jobsModule.Repository(), eventBus, val, log)

	// No live weather feed is wired yet; the flag stays calm until one is.
	weatherSvc := weather.New(calmWeatherSource(), redisClient, cfg, log)
	pricingModule := pricing.NewModule(pool, jobsModule.Repository(), weatherSvc, eventBus, val, log)

	// Notification module subscribes to domain events (not HTTP-facing)
	notification.NewModule(
		sender,
		providersModule.Repository(),
		jobsModule.Repository(),
		matchingModule.Repository(),
		cfg,
		eventBus,
		log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			catalogModule,
			jobsModule,
			providersModule,
			matchingModule,
			escalationModule,
			pricingModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not configured; weather cache disabled")
		return nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		return nil
	}
	return redis.NewClient(opt)
}

func calmWeatherSource() weather.Source {
	return weather.SourceFunc(func(context.Context, float64, float64) (bool, error) {
		return false, nil
	})
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
