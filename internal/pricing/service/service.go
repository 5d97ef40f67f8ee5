// Package service implements the pricing engine: dynamic estimates, price
// breakdowns, and the proposal negotiation flow for level-3/4 jobs.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/jobs/domain"
	jobsrepo "vakwerk_backend/internal/jobs/repository"
	"vakwerk_backend/internal/pricing/repository"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/logger"
)

// negotiationMinLevel is the lowest task level that prices through proposals.
const negotiationMinLevel = 3

// JobStore is the slice of the jobs repository the pricing engine needs.
type JobStore interface {
	GetDetail(ctx context.Context, id uuid.UUID) (jobsrepo.Detail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (jobsrepo.Job, error)
	ClearAgreedPrice(ctx context.Context, id uuid.UUID) error
}

// WeatherFlag reports extreme weather at a location.
type WeatherFlag interface {
	IsExtreme(ctx context.Context, lat, lng float64) bool
}

// PriceBreakdown reconstructs a job's current price picture.
type PriceBreakdown struct {
	JobID            uuid.UUID  `json:"jobId"`
	Source           string     `json:"source"`
	PriceCents       int64      `json:"priceCents"`
	Multiplier       float64    `json:"multiplier"`
	QuotedPriceCents *int64     `json:"quotedPriceCents,omitempty"`
	FinalPriceCents  *int64     `json:"finalPriceCents,omitempty"`
	PriceAgreedAt    *time.Time `json:"priceAgreedAt,omitempty"`
}

// Service is the pricing engine.
type Service struct {
	proposals repository.ProposalStore
	history   repository.EventStore
	jobs      JobStore
	weather   WeatherFlag
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new pricing service.
func New(proposals repository.ProposalStore, history repository.EventStore, jobs JobStore, weather WeatherFlag, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		proposals: proposals,
		history:   history,
		jobs:      jobs,
		weather:   weather,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the time source; used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Estimate prices a job from its catalog base range and current conditions.
func (s *Service) Estimate(ctx context.Context, jobID uuid.UUID, country string) (PriceEstimate, error) {
	job, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return PriceEstimate{}, err
	}

	return s.estimate(ctx, EstimateInput{
		Country:      country,
		BaseMinCents: job.BasePriceMinCents,
		BaseMaxCents: job.BasePriceMaxCents,
		Lat:          job.Lat,
		Lng:          job.Lng,
		Schedule:     job.RequestedFor,
		IsEmergency:  job.IsEmergency,
	}), nil
}

// Breakdown reconstructs the job's price picture from the latest pricing
// event, falling back to the job's stored price fields.
func (s *Service) Breakdown(ctx context.Context, jobID uuid.UUID) (PriceBreakdown, error) {
	job, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return PriceBreakdown{}, err
	}

	breakdown := PriceBreakdown{
		JobID:            jobID,
		QuotedPriceCents: job.QuotedPriceCents,
		FinalPriceCents:  job.FinalPriceCents,
		PriceAgreedAt:    job.PriceAgreedAt,
	}

	latest, err := s.history.Latest(ctx, jobID)
	switch {
	case err == nil:
		breakdown.Source = latest.EventType
		breakdown.PriceCents = latest.PriceCents
		breakdown.Multiplier = latest.Multiplier
	case apperr.Is(err, apperr.KindNotFound):
		breakdown.Source = "job"
		breakdown.Multiplier = 1.0
		if job.FinalPriceCents != nil {
			breakdown.PriceCents = *job.FinalPriceCents
		} else if job.QuotedPriceCents != nil {
			breakdown.PriceCents = *job.QuotedPriceCents
		}
	default:
		return PriceBreakdown{}, err
	}
	return breakdown, nil
}

// CreateProposal opens a negotiation step on a level-3/4 job awaiting price
// agreement.
func (s *Service) CreateProposal(ctx context.Context, jobID, proposerID uuid.UUID, role string, priceCents int64, description *string) (repository.PriceProposal, error) {
	if priceCents <= 0 {
		return repository.PriceProposal{}, apperr.Validation("price must be positive")
	}

	job, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return repository.PriceProposal{}, err
	}
	if job.TaskLevel < negotiationMinLevel {
		return repository.PriceProposal{}, apperr.Validation(
			fmt.Sprintf("price negotiation applies to level %d tasks and up", negotiationMinLevel))
	}
	if job.Status != domain.StatusPendingPriceAgreement {
		return repository.PriceProposal{}, apperr.InvalidState(
			fmt.Sprintf("job in status %s is not awaiting price agreement", job.Status))
	}

	proposal, err := s.proposals.Create(ctx, repository.PriceProposal{
		JobID:       jobID,
		ProposerID:  proposerID,
		Role:        role,
		PriceCents:  priceCents,
		Description: description,
	})
	if err != nil {
		return repository.PriceProposal{}, err
	}

	if _, err := s.history.Append(ctx, repository.PricingEvent{
		JobID:      jobID,
		EventType:  repository.EventPriceProposed,
		PriceCents: priceCents,
		Multiplier: 1.0,
		Detail:     description,
	}); err != nil {
		return repository.PriceProposal{}, err
	}

	s.bus.Publish(ctx, events.PriceProposed{
		BaseEvent:  events.NewBaseEvent(),
		ProposalID: proposal.ID,
		JobID:      jobID,
		PriceCents: priceCents,
	})
	return proposal, nil
}

// Respond answers a pending proposal. Acceptance locks the price onto the
// job, schedules it, and appends the history entry in one transaction;
// rejection only flips the proposal status.
func (s *Service) Respond(ctx context.Context, proposalID, responderID uuid.UUID, accept bool) (repository.PriceProposal, error) {
	if !accept {
		proposal, err := s.proposals.Respond(ctx, proposalID, repository.ProposalRejected, responderID)
		if err != nil {
			return repository.PriceProposal{}, err
		}
		if _, err := s.history.Append(ctx, repository.PricingEvent{
			JobID:      proposal.JobID,
			EventType:  repository.EventPriceRejected,
			PriceCents: proposal.PriceCents,
			Multiplier: 1.0,
		}); err != nil {
			return repository.PriceProposal{}, err
		}
		return proposal, nil
	}

	pending, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return repository.PriceProposal{}, err
	}
	job, err := s.jobs.GetDetail(ctx, pending.JobID)
	if err != nil {
		return repository.PriceProposal{}, err
	}

	proposal, err := s.proposals.Accept(ctx, proposalID, responderID, string(job.Status), s.now())
	if err != nil {
		return repository.PriceProposal{}, err
	}

	s.bus.Publish(ctx, events.PriceAccepted{
		BaseEvent:  events.NewBaseEvent(),
		ProposalID: proposal.ID,
		JobID:      proposal.JobID,
		PriceCents: proposal.PriceCents,
	})
	return proposal, nil
}

// Adjust reprices a job after an on-site scope change: every open proposal
// is superseded, the agreed price is dropped, and the job returns to price
// agreement with a fresh pending proposal.
func (s *Service) Adjust(ctx context.Context, jobID, proposerID uuid.UUID, newPriceCents int64, reason string) (repository.PriceProposal, error) {
	if newPriceCents <= 0 {
		return repository.PriceProposal{}, apperr.Validation("price must be positive")
	}
	if strings.TrimSpace(reason) == "" {
		return repository.PriceProposal{}, apperr.Validation("adjustment reason is required")
	}

	job, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return repository.PriceProposal{}, err
	}
	if job.TaskLevel < negotiationMinLevel {
		return repository.PriceProposal{}, apperr.Validation(
			fmt.Sprintf("price negotiation applies to level %d tasks and up", negotiationMinLevel))
	}

	if err := s.proposals.SupersedeByJob(ctx, jobID); err != nil {
		return repository.PriceProposal{}, err
	}
	if err := s.jobs.ClearAgreedPrice(ctx, jobID); err != nil {
		return repository.PriceProposal{}, err
	}
	if job.Status != domain.StatusPendingPriceAgreement {
		if _, err := s.jobs.UpdateStatus(ctx, jobID, job.Status, domain.StatusPendingPriceAgreement); err != nil {
			return repository.PriceProposal{}, err
		}
	}

	proposal, err := s.proposals.Create(ctx, repository.PriceProposal{
		JobID:       jobID,
		ProposerID:  proposerID,
		Role:        "provider",
		PriceCents:  newPriceCents,
		Description: &reason,
	})
	if err != nil {
		return repository.PriceProposal{}, err
	}

	if _, err := s.history.Append(ctx, repository.PricingEvent{
		JobID:      jobID,
		EventType:  repository.EventPriceAdjusted,
		PriceCents: newPriceCents,
		Multiplier: 1.0,
		Detail:     &reason,
	}); err != nil {
		return repository.PriceProposal{}, err
	}

	s.log.Info("price adjusted on site",
		"job_id", jobID,
		"proposer_id", proposerID,
		"price_cents", newPriceCents,
		"reason", reason,
	)
	s.bus.Publish(ctx, events.PriceProposed{
		BaseEvent:  events.NewBaseEvent(),
		ProposalID: proposal.ID,
		JobID:      jobID,
		PriceCents: newPriceCents,
	})
	return proposal, nil
}

// ListProposals returns a job's proposals, newest first.
func (s *Service) ListProposals(ctx context.Context, jobID uuid.UUID) ([]repository.PriceProposal, error) {
	return s.proposals.ListByJob(ctx, jobID)
}
