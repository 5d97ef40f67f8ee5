// Package service implements keyword-driven escalation checks and the admin
// review workflow.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"vakwerk_backend/internal/escalation/domain"
	"vakwerk_backend/internal/escalation/repository"
	"vakwerk_backend/internal/events"
	jobsrepo "vakwerk_backend/internal/jobs/repository"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/logger"
)

// JobStore is the slice of the jobs repository the escalation service needs.
type JobStore interface {
	GetDetail(ctx context.Context, id uuid.UUID) (jobsrepo.Detail, error)
	SetEmergency(ctx context.Context, id uuid.UUID) error
}

// CheckResult reports a keyword check: the detection outcome plus the
// escalation record, when one was created.
type CheckResult struct {
	domain.Detection
	Escalation *repository.JobEscalation `json:"escalation,omitempty"`
}

// Service provides business logic for escalation detection and review.
type Service struct {
	repo repository.Store
	jobs JobStore
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new escalation service.
func New(repo repository.Store, jobs JobStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, jobs: jobs, bus: bus, log: log}
}

// Check scans text against the keyword table for a job. All matches are
// reported; a pending escalation is created only when the highest matched
// level exceeds the job's task level. Repeated checks create new records.
func (s *Service) Check(ctx context.Context, jobID uuid.UUID, text string) (CheckResult, error) {
	if strings.TrimSpace(text) == "" {
		return CheckResult{}, apperr.Validation("text is required")
	}

	job, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return CheckResult{}, err
	}

	detection := domain.Detect(text, job.TaskLevel)
	result := CheckResult{Detection: detection}
	if !detection.ShouldEscalate {
		return result, nil
	}

	created, err := s.repo.Create(ctx, repository.JobEscalation{
		JobID:          jobID,
		FromLevel:      job.TaskLevel,
		ToLevel:        detection.ToLevel,
		TriggerKeyword: detection.TriggerKeywords[0],
		Keywords:       detection.TriggerKeywords,
		SourceText:     text,
	})
	if err != nil {
		return CheckResult{}, err
	}
	result.Escalation = &created

	s.log.EscalationDetected(jobID.String(), created.TriggerKeyword, job.TaskLevel, detection.ToLevel)
	s.bus.Publish(ctx, events.EscalationRaised{
		BaseEvent:      events.NewBaseEvent(),
		EscalationID:   created.ID,
		JobID:          jobID,
		FromLevel:      job.TaskLevel,
		ToLevel:        detection.ToLevel,
		TriggerKeyword: created.TriggerKeyword,
	})
	return result, nil
}

// Approve resolves a pending escalation in favor of the raise. A level-4
// approval flags the job as an emergency; the task's own level is never
// touched.
func (s *Service) Approve(ctx context.Context, escalationID, adminID uuid.UUID) (repository.JobEscalation, error) {
	resolved, err := s.repo.Resolve(ctx, escalationID, repository.StatusApproved, adminID, nil)
	if err != nil {
		return repository.JobEscalation{}, err
	}

	isEmergency := resolved.ToLevel == 4
	if isEmergency {
		if err := s.jobs.SetEmergency(ctx, resolved.JobID); err != nil {
			return repository.JobEscalation{}, err
		}
	}

	s.bus.Publish(ctx, events.EscalationApproved{
		BaseEvent:    events.NewBaseEvent(),
		EscalationID: resolved.ID,
		JobID:        resolved.JobID,
		ToLevel:      resolved.ToLevel,
		IsEmergency:  isEmergency,
	})
	return resolved, nil
}

// Reject resolves a pending escalation without touching the job. The reason
// is mandatory.
func (s *Service) Reject(ctx context.Context, escalationID, adminID uuid.UUID, reason string) (repository.JobEscalation, error) {
	if strings.TrimSpace(reason) == "" {
		return repository.JobEscalation{}, apperr.Validation("rejection reason is required")
	}
	return s.repo.Resolve(ctx, escalationID, repository.StatusRejected, adminID, &reason)
}

// Get retrieves an escalation by ID.
func (s *Service) Get(ctx context.Context, escalationID uuid.UUID) (repository.JobEscalation, error) {
	return s.repo.GetByID(ctx, escalationID)
}

// ListByJob returns a job's escalations, newest first.
func (s *Service) ListByJob(ctx context.Context, jobID uuid.UUID) ([]repository.JobEscalation, error) {
	return s.repo.ListByJob(ctx, jobID)
}

// ListPending returns the admin review queue, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]repository.JobEscalation, error) {
	return s.repo.ListPending(ctx)
}
