package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	catalogrepo "vakwerk_backend/internal/catalog/repository"
	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/jobs/domain"
	"vakwerk_backend/internal/jobs/repository"
	"vakwerk_backend/internal/jobs/transport"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/logger"
	"vakwerk_backend/platform/phone"
)

// slaSnapshot holds the per-level SLA targets frozen onto a job at creation.
type slaSnapshot struct {
	responseMinutes   int
	arrivalMinutes    int
	completionMinutes int
	penaltyCents      int64
}

// slaDefaults is the SLA table by task level. Emergency jobs take the
// level-4 row regardless of task level.
var slaDefaults = map[int]slaSnapshot{
	1: {responseMinutes: 240, arrivalMinutes: 2880, completionMinutes: 10080, penaltyCents: 2500},
	2: {responseMinutes: 120, arrivalMinutes: 1440, completionMinutes: 4320, penaltyCents: 5000},
	3: {responseMinutes: 60, arrivalMinutes: 720, completionMinutes: 2880, penaltyCents: 10000},
	4: {responseMinutes: 15, arrivalMinutes: 120, completionMinutes: 720, penaltyCents: 25000},
}

// TaskReader is the slice of the catalog the jobs service needs.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (catalogrepo.ServiceTask, error)
}

// Service provides business logic for job creation and lifecycle transitions.
type Service struct {
	repo  repository.Repository
	tasks TaskReader
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new jobs service.
func New(repo repository.Repository, tasks TaskReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, tasks: tasks, bus: bus, log: log}
}

// Create creates a job in DRAFT with its immutable SLA and price snapshot.
func (s *Service) Create(ctx context.Context, customerID uuid.UUID, req transport.CreateJobRequest) (transport.JobResponse, error) {
	task, err := s.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	if !task.IsActive {
		return transport.JobResponse{}, apperr.Validation("task is not bookable")
	}
	if req.IsEmergency && !task.EmergencyEligible {
		return transport.JobResponse{}, apperr.Validation("task is not eligible for emergency requests")
	}

	sla := slaDefaults[task.Level]
	priority := "normal"
	if req.IsEmergency {
		sla = slaDefaults[4]
		priority = "emergency"
	}

	quoted := (task.BasePriceMinCents + task.BasePriceMaxCents) / 2

	job, err := s.repo.Create(ctx, repository.CreateParams{
		CustomerID:           customerID,
		TaskID:               task.ID,
		ReferenceCode:        newReferenceCode(),
		Priority:             priority,
		IsEmergency:          req.IsEmergency,
		Lat:                  req.Lat,
		Lng:                  req.Lng,
		Address:              strings.TrimSpace(req.Address),
		ContactPhone:         phone.NormalizeE164(req.ContactPhone),
		RequestedFor:         req.RequestedFor,
		SLAResponseMinutes:   sla.responseMinutes,
		SLAArrivalMinutes:    sla.arrivalMinutes,
		SLACompletionMinutes: sla.completionMinutes,
		SLAPenaltyCents:      sla.penaltyCents,
		QuotedPriceCents:     &quoted,
	})
	if err != nil {
		return transport.JobResponse{}, err
	}

	s.log.Info("job created", "id", job.ID, "reference", job.ReferenceCode, "task", task.Slug)
	return ToResponse(job), nil
}

// Submit moves a draft job into matching.
func (s *Service) Submit(ctx context.Context, jobID uuid.UUID, actor domain.ActorType) (transport.JobResponse, error) {
	job, err := s.Transition(ctx, jobID, domain.StatusPendingMatch, actor)
	if err != nil {
		return transport.JobResponse{}, err
	}

	detail, detailErr := s.repo.GetDetail(ctx, jobID)
	level := 0
	if detailErr == nil {
		level = detail.TaskLevel
	}
	s.bus.Publish(ctx, events.JobSubmitted{
		BaseEvent:     events.NewBaseEvent(),
		JobID:         jobID,
		ReferenceCode: job.ReferenceCode,
		TaskLevel:     level,
	})

	return job, nil
}

// Transition validates and applies a lifecycle transition for the actor.
func (s *Service) Transition(ctx context.Context, jobID uuid.UUID, target domain.Status, actor domain.ActorType) (transport.JobResponse, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}

	if err := domain.Validate(job.Status, target, actor); err != nil {
		return transport.JobResponse{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, jobID, job.Status, target)
	if err != nil {
		return transport.JobResponse{}, err
	}

	s.bus.Publish(ctx, events.JobStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		JobID:      jobID,
		FromStatus: string(job.Status),
		ToStatus:   string(target),
		ActorType:  string(actor),
	})

	return ToResponse(updated), nil
}

// ValidTargets lists the transitions the actor may drive from the job's
// current status, for UI affordance.
func (s *Service) ValidTargets(ctx context.Context, jobID uuid.UUID, actor domain.ActorType) (transport.ValidTargetsResponse, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return transport.ValidTargetsResponse{}, err
	}

	targets := domain.ValidTargets(job.Status, actor)
	names := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, string(target))
	}

	return transport.ValidTargetsResponse{Current: string(job.Status), Targets: names}, nil
}

// Get retrieves a job by ID.
func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (transport.JobResponse, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	return ToResponse(job), nil
}

// ListByCustomer retrieves the customer's jobs.
func (s *Service) ListByCustomer(ctx context.Context, customerID uuid.UUID) (transport.JobListResponse, error) {
	jobs, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return transport.JobListResponse{}, err
	}

	items := make([]transport.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, ToResponse(job))
	}
	return transport.JobListResponse{Items: items, Total: len(items)}, nil
}

// ToResponse maps a repository job to its API shape.
func ToResponse(job repository.Job) transport.JobResponse {
	return transport.JobResponse{
		ID:                   job.ID,
		ReferenceCode:        job.ReferenceCode,
		CustomerID:           job.CustomerID,
		TaskID:               job.TaskID,
		Status:               string(job.Status),
		Priority:             job.Priority,
		IsEmergency:          job.IsEmergency,
		Lat:                  job.Lat,
		Lng:                  job.Lng,
		Address:              job.Address,
		ContactPhone:         job.ContactPhone,
		RequestedFor:         job.RequestedFor,
		SLAResponseMinutes:   job.SLAResponseMinutes,
		SLAArrivalMinutes:    job.SLAArrivalMinutes,
		SLACompletionMinutes: job.SLACompletionMinutes,
		SLAPenaltyCents:      job.SLAPenaltyCents,
		QuotedPriceCents:     job.QuotedPriceCents,
		FinalPriceCents:      job.FinalPriceCents,
		ProposedPriceCents:   job.ProposedPriceCents,
		PriceAgreedAt:        job.PriceAgreedAt,
		StartedAt:            job.StartedAt,
		CompletedAt:          job.CompletedAt,
		CancelledAt:          job.CancelledAt,
		CreatedAt:            job.CreatedAt,
	}
}

func newReferenceCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("VW-%08X", uuid.New().ID())
	}
	return "VW-" + strings.ToUpper(hex.EncodeToString(buf))
}
