// Package scheduler runs the background work of the marketplace: the weekly
// score normalization, the SLA deadline sweep, and job-start reminders.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/jobs/domain"
	jobsrepo "vakwerk_backend/internal/jobs/repository"
	matchingrepo "vakwerk_backend/internal/matching/repository"
	providersrepo "vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/internal/providers/scoring"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/config"
	"vakwerk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	normalizeConcurrency = 8

	// Reminder lead time before the requested start.
	startReminderLead = 30 * time.Minute

	// Sweep window for upcoming scheduled jobs.
	startReminderWindow = time.Hour
)

type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	providers   providersrepo.ProviderStore
	scoring     *scoring.Service
	assignments matchingrepo.Store
	jobs        jobsrepo.Repository
	reminders   ReminderScheduler
	bus         events.Bus
	log         *logger.Logger
	now         func() time.Time
}

func NewWorker(
	cfg config.SchedulerConfig,
	providers providersrepo.ProviderStore,
	scoringSvc *scoring.Service,
	assignments matchingrepo.Store,
	jobs jobsrepo.Repository,
	reminders ReminderScheduler,
	bus events.Bus,
	log *logger.Logger,
) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:      server,
		mux:         mux,
		providers:   providers,
		scoring:     scoringSvc,
		assignments: assignments,
		jobs:        jobs,
		reminders:   reminders,
		bus:         bus,
		log:         log,
		now:         time.Now,
	}

	mux.HandleFunc(TaskNormalizeWeekly, w.handleNormalizeWeekly)
	mux.HandleFunc(TaskSLASweep, w.handleSLASweep)
	mux.HandleFunc(TaskStartReminderSweep, w.handleStartReminderSweep)
	mux.HandleFunc(TaskStartReminderSend, w.handleStartReminderSend)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleNormalizeWeekly walks every active provider and applies the weekly
// score recovery. Per-provider failures are logged and do not abort the run;
// the sweep is idempotent because recovery recomputes from the penalty
// history.
func (w *Worker) handleNormalizeWeekly(ctx context.Context, _ *asynq.Task) error {
	ids, err := w.providers.ListActiveIDs(ctx)
	if err != nil {
		return err
	}

	var recovered atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(normalizeConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			result, err := w.scoring.Normalize(gctx, id)
			if err != nil {
				w.log.Warn("normalization failed", "provider_id", id.String(), "error", err)
				return nil
			}
			if result.PointsRecovered > 0 {
				recovered.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.log.Info("weekly normalization complete",
		"providers", len(ids),
		"recovered", recovered.Load(),
	)
	return nil
}

// handleSLASweep expires stale offers and cancels accepted assignments whose
// arrival deadline passed, penalizing the provider and returning the job to
// the matching pool.
func (w *Worker) handleSLASweep(ctx context.Context, _ *asynq.Task) error {
	now := w.now()

	offered, err := w.assignments.ListOfferedPastRespondBy(ctx, now)
	if err != nil {
		return err
	}
	for _, assignment := range offered {
		w.expireOffer(ctx, assignment)
	}

	accepted, err := w.assignments.ListAcceptedPastArriveBy(ctx, now)
	if err != nil {
		return err
	}
	for _, assignment := range accepted {
		w.cancelMissedArrival(ctx, assignment)
	}

	w.log.Info("sla sweep complete", "expired", len(offered), "no_shows", len(accepted))
	return nil
}

func (w *Worker) expireOffer(ctx context.Context, assignment matchingrepo.Assignment) {
	if err := w.assignments.Expire(ctx, assignment.ID); err != nil {
		// Conflict means the provider responded while the sweep ran.
		if !apperr.Is(err, apperr.KindConflict) {
			w.log.Warn("expire assignment failed", "assignment_id", assignment.ID.String(), "error", err)
		}
		return
	}

	reason := "response deadline missed"
	if _, err := w.scoring.ApplyPenalty(ctx, assignment.ProviderID, scoring.PenaltyResponseTimeout, &assignment.JobID, &reason); err != nil {
		w.log.Warn("response timeout penalty failed", "provider_id", assignment.ProviderID.String(), "error", err)
	}

	if _, err := w.jobs.UpdateStatus(ctx, assignment.JobID, domain.StatusMatched, domain.StatusPendingMatch); err != nil {
		if !apperr.Is(err, apperr.KindConflict) {
			w.log.Warn("return job to pool failed", "job_id", assignment.JobID.String(), "error", err)
		}
	}

	if w.bus != nil {
		w.bus.Publish(ctx, events.AssignmentCancelled{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: assignment.ID,
			JobID:        assignment.JobID,
			ProviderID:   assignment.ProviderID,
			Reason:       reason,
		})
	}
}

func (w *Worker) cancelMissedArrival(ctx context.Context, assignment matchingrepo.Assignment) {
	job, err := w.jobs.GetByID(ctx, assignment.JobID)
	if err != nil {
		w.log.Warn("sla sweep job lookup failed", "job_id", assignment.JobID.String(), "error", err)
		return
	}

	// A provider that already started is not a no-show even if the
	// arrival timestamp was never recorded.
	switch job.Status {
	case domain.StatusProviderAccepted, domain.StatusPendingPriceAgreement, domain.StatusScheduled, domain.StatusProviderEnRoute:
	default:
		return
	}

	reason := "arrival deadline missed"
	if err := w.assignments.Cancel(ctx, assignment.ID, reason); err != nil {
		if !apperr.Is(err, apperr.KindConflict) {
			w.log.Warn("cancel assignment failed", "assignment_id", assignment.ID.String(), "error", err)
		}
		return
	}

	if _, err := w.scoring.ApplyPenalty(ctx, assignment.ProviderID, scoring.PenaltyNoShow, &assignment.JobID, &reason); err != nil {
		w.log.Warn("no-show penalty failed", "provider_id", assignment.ProviderID.String(), "error", err)
	}

	// Internal pool move, not an actor-driven lifecycle transition.
	if _, err := w.jobs.UpdateStatus(ctx, assignment.JobID, job.Status, domain.StatusPendingMatch); err != nil {
		if !apperr.Is(err, apperr.KindConflict) {
			w.log.Warn("return job to pool failed", "job_id", assignment.JobID.String(), "error", err)
		}
	}

	if w.bus != nil {
		w.bus.Publish(ctx, events.AssignmentCancelled{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: assignment.ID,
			JobID:        assignment.JobID,
			ProviderID:   assignment.ProviderID,
			Reason:       reason,
		})
	}
}

// startReminderEligible reports whether a job should receive a start
// reminder. Jobs that negotiated a price wait in SCHEDULED; level 1 and 2
// jobs skip negotiation and sit in PROVIDER_ACCEPTED until the start.
func startReminderEligible(job jobsrepo.Job) bool {
	if job.RequestedFor == nil {
		return false
	}
	return job.Status == domain.StatusScheduled || job.Status == domain.StatusProviderAccepted
}

// handleStartReminderSweep enqueues a deduplicated reminder task for every
// upcoming job starting within the next hour.
func (w *Worker) handleStartReminderSweep(ctx context.Context, _ *asynq.Task) error {
	if w.reminders == nil {
		return nil
	}

	now := w.now()
	upcoming, err := w.jobs.ListScheduledBetween(ctx, now, now.Add(startReminderWindow))
	if err != nil {
		return err
	}

	enqueued := 0
	for _, job := range upcoming {
		if !startReminderEligible(job) {
			continue
		}
		runAt := job.RequestedFor.Add(-startReminderLead)
		if runAt.Before(now) {
			runAt = now
		}
		payload := StartReminderPayload{JobID: job.ID.String()}
		if err := w.reminders.ScheduleStartReminder(ctx, payload, runAt); err != nil {
			w.log.Warn("schedule start reminder failed", "job_id", job.ID.String(), "error", err)
			continue
		}
		enqueued++
	}

	w.log.Info("start reminder sweep complete", "scanned", len(upcoming), "enqueued", enqueued)
	return nil
}

func (w *Worker) handleStartReminderSend(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseStartReminderPayload(task)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return err
	}

	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if !startReminderEligible(job) {
		return nil
	}

	w.bus.Publish(ctx, events.JobStartDue{
		BaseEvent:     events.NewBaseEvent(),
		JobID:         job.ID,
		ReferenceCode: job.ReferenceCode,
		StartsAt:      *job.RequestedFor,
	})
	return nil
}
