package scheduler

import (
	"context"
	"fmt"

	"vakwerk_backend/platform/config"
	"vakwerk_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Cron specs for the periodic sweeps.
const (
	normalizeSpec     = "0 3 * * 1"
	slaSweepSpec      = "@every 5m"
	startReminderSpec = "@every 15m"
)

// Periodic registers the recurring sweep tasks on an asynq scheduler.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	sched := asynq.NewScheduler(opt, nil)

	entries := []struct {
		spec string
		task string
	}{
		{normalizeSpec, TaskNormalizeWeekly},
		{slaSweepSpec, TaskSLASweep},
		{startReminderSpec, TaskStartReminderSweep},
	}
	for _, entry := range entries {
		if _, err := sched.Register(entry.spec, asynq.NewTask(entry.task, nil), asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register %s: %w", entry.task, err)
		}
	}

	return &Periodic{scheduler: sched, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}
