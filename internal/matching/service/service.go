// Package service implements the provider matching pipeline and assignment
// lifecycle: geo filtering, hard qualification, weighted ranking, and
// race-safe single-assignment offers.
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	catalogrepo "vakwerk_backend/internal/catalog/repository"
	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/geo"
	"vakwerk_backend/internal/jobs/domain"
	jobsrepo "vakwerk_backend/internal/jobs/repository"
	"vakwerk_backend/internal/matching/repository"
	providersrepo "vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/logger"
)

const (
	// maxResponseTimeMinutes is where the response-time component bottoms out.
	maxResponseTimeMinutes = 60.0
	// maxInternalScore caps the internal-score component.
	maxInternalScore = 100.0
	// neutralResponseScore is assumed when a provider has no response history.
	neutralResponseScore = 50.0

	defaultMaxResults = 10
	maxResultsCeiling = 50

	weightSumTolerance = 0.01
)

// Weights control the composite ranking. They must sum to 1.0 within a
// small tolerance.
type Weights struct {
	InternalScore float64 `json:"internalScore"`
	Distance      float64 `json:"distance"`
	ResponseTime  float64 `json:"responseTime"`
}

// DefaultWeights is the standard ranking profile.
var DefaultWeights = Weights{InternalScore: 0.6, Distance: 0.3, ResponseTime: 0.1}

// Validate checks the weight sum.
func (w Weights) Validate() error {
	sum := w.InternalScore + w.Distance + w.ResponseTime
	if math.Abs(sum-1.0) > weightSumTolerance {
		return apperr.Validation(fmt.Sprintf("ranking weights must sum to 1.0, got %.4f", sum))
	}
	return nil
}

// Options tune a matching run.
type Options struct {
	MaxResults int
	RadiusKM   *float64
	Weights    *Weights
}

// Match is one ranked candidate.
type Match struct {
	ProviderID     uuid.UUID `json:"providerId"`
	ProviderName   string    `json:"providerName"`
	ProviderLevel  int       `json:"providerLevel"`
	DistanceKM     float64   `json:"distanceKm"`
	InternalScore  float64   `json:"internalScore"`
	DistanceScore  float64   `json:"distanceScore"`
	ResponseScore  float64   `json:"responseScore"`
	CompositeScore float64   `json:"compositeScore"`
}

// MatchResult reports one matching run.
type MatchResult struct {
	JobID          uuid.UUID `json:"jobId"`
	TotalEvaluated int       `json:"totalEvaluated"`
	TotalQualified int       `json:"totalQualified"`
	Matches        []Match   `json:"matches"`
}

// JobStore is the slice of the jobs repository the matching engine needs.
type JobStore interface {
	GetDetail(ctx context.Context, id uuid.UUID) (jobsrepo.Detail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (jobsrepo.Job, error)
}

// TaskReader resolves catalog facts for qualification filtering.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (catalogrepo.ServiceTask, error)
}

// Service is the matching engine.
type Service struct {
	jobs        JobStore
	tasks       TaskReader
	providers   providersrepo.ProviderStore
	assignments repository.Store
	bus         events.Bus
	log         *logger.Logger
	now         func() time.Time
}

// New creates a new matching service.
func New(jobs JobStore, tasks TaskReader, providers providersrepo.ProviderStore, assignments repository.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		jobs:        jobs,
		tasks:       tasks,
		providers:   providers,
		assignments: assignments,
		bus:         bus,
		log:         log,
		now:         time.Now,
	}
}

// SetClock overrides the time source; used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// FindMatches runs the matching pipeline for a job: geo filter, hard
// qualification filter, component scoring, composite ranking.
func (s *Service) FindMatches(ctx context.Context, jobID uuid.UUID, opts Options) (MatchResult, error) {
	weights := DefaultWeights
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	// Bad weights are rejected before any candidate is scored.
	if err := weights.Validate(); err != nil {
		return MatchResult{}, err
	}

	maxResults := opts.MaxResults
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}
	if maxResults < 1 || maxResults > maxResultsCeiling {
		return MatchResult{}, apperr.Validation(fmt.Sprintf("maxResults must be between 1 and %d", maxResultsCeiling))
	}

	job, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return MatchResult{}, err
	}
	task, err := s.tasks.GetByID(ctx, job.TaskID)
	if err != nil {
		return MatchResult{}, err
	}

	candidates, err := s.providers.ListMatchable(ctx)
	if err != nil {
		return MatchResult{}, err
	}

	origin := geo.Point{Lat: job.Lat, Lng: job.Lng}
	result := MatchResult{JobID: jobID, Matches: make([]Match, 0)}

	for _, provider := range candidates {
		result.TotalEvaluated++

		if provider.HomeLat == nil || provider.HomeLng == nil {
			continue
		}
		location := geo.Point{Lat: *provider.HomeLat, Lng: *provider.HomeLng}

		radius := provider.ServiceRadiusKM
		if opts.RadiusKM != nil {
			radius = *opts.RadiusKM
		}
		if !geo.WithinRadius(origin, radius, location) {
			continue
		}

		if !qualifies(provider, task) {
			continue
		}
		result.TotalQualified++

		distance := geo.Distance(origin, location)
		match := Match{
			ProviderID:    provider.ID,
			ProviderName:  provider.Name,
			ProviderLevel: provider.CurrentLevel,
			DistanceKM:    distance,
			InternalScore: clampScore(provider.InternalScore),
			DistanceScore: distanceScore(distance),
			ResponseScore: responseScore(provider.AvgResponseMinutes),
		}
		match.CompositeScore = weights.InternalScore*match.InternalScore +
			weights.Distance*match.DistanceScore +
			weights.ResponseTime*match.ResponseScore
		result.Matches = append(result.Matches, match)
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.InternalScore != b.InternalScore {
			return a.InternalScore > b.InternalScore
		}
		return a.DistanceKM < b.DistanceKM
	})
	if len(result.Matches) > maxResults {
		result.Matches = result.Matches[:maxResults]
	}

	s.log.MatchRun(jobID.String(), result.TotalEvaluated, result.TotalQualified, len(result.Matches))
	return result, nil
}

// Assign offers a job to a provider: moves the job to MATCHED if needed,
// enforces the single-active-assignment rule and the provider's concurrency
// cap, and freezes SLA deadlines onto the offer.
func (s *Service) Assign(ctx context.Context, jobID, providerID uuid.UUID, matchScore *float64) (repository.Assignment, error) {
	job, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return repository.Assignment{}, err
	}

	switch job.Status {
	case domain.StatusPendingMatch:
		if _, err := s.jobs.UpdateStatus(ctx, jobID, domain.StatusPendingMatch, domain.StatusMatched); err != nil {
			return repository.Assignment{}, err
		}
	case domain.StatusMatched:
		// Already matched, e.g. during reassignment.
	default:
		return repository.Assignment{}, apperr.InvalidState(
			fmt.Sprintf("job in status %s cannot be assigned", job.Status))
	}

	if existing, err := s.assignments.GetActiveByJob(ctx, jobID); err == nil {
		return repository.Assignment{}, apperr.Conflict(
			fmt.Sprintf("job already assigned to provider %s", existing.ProviderID))
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return repository.Assignment{}, err
	}

	provider, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return repository.Assignment{}, err
	}
	if provider.Status != providersrepo.StatusActive {
		return repository.Assignment{}, apperr.InvalidState("provider is not active")
	}
	active, err := s.providers.CountActiveAssignments(ctx, providerID)
	if err != nil {
		return repository.Assignment{}, err
	}
	if provider.MaxConcurrentJobs > 0 && active >= provider.MaxConcurrentJobs {
		return repository.Assignment{}, apperr.Conflict(
			fmt.Sprintf("provider is at its concurrent job limit of %d", provider.MaxConcurrentJobs))
	}

	now := s.now()
	assignment, err := s.assignments.Create(ctx, repository.Assignment{
		JobID:      jobID,
		ProviderID: providerID,
		MatchScore: matchScore,
		RespondBy:  now.Add(time.Duration(job.SLAResponseMinutes) * time.Minute),
		ArriveBy:   now.Add(time.Duration(job.SLAArrivalMinutes) * time.Minute),
	})
	if err != nil {
		return repository.Assignment{}, err
	}

	s.bus.Publish(ctx, events.AssignmentOffered{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: assignment.ID,
		JobID:        jobID,
		ProviderID:   providerID,
		RespondBy:    assignment.RespondBy,
	})
	return assignment, nil
}

// Reassign cancels the job's active assignment, returns the job to the
// matching pool, and offers it to the new provider.
func (s *Service) Reassign(ctx context.Context, jobID, newProviderID uuid.UUID, reason string) (repository.Assignment, error) {
	if reason == "" {
		reason = "reassigned"
	}

	current, err := s.assignments.GetActiveByJob(ctx, jobID)
	if err != nil {
		return repository.Assignment{}, err
	}
	if err := s.assignments.Cancel(ctx, current.ID, reason); err != nil {
		return repository.Assignment{}, err
	}
	s.bus.Publish(ctx, events.AssignmentCancelled{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: current.ID,
		JobID:        jobID,
		ProviderID:   current.ProviderID,
		Reason:       reason,
	})

	// Internal pool move, not an actor-driven lifecycle transition.
	job, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return repository.Assignment{}, err
	}
	if job.Status != domain.StatusPendingMatch {
		if _, err := s.jobs.UpdateStatus(ctx, jobID, job.Status, domain.StatusPendingMatch); err != nil {
			return repository.Assignment{}, err
		}
	}

	return s.Assign(ctx, jobID, newProviderID, nil)
}

// Respond records the provider's answer to an offer. Acceptance moves
// level-3/4 jobs into price negotiation and lower levels straight to
// PROVIDER_ACCEPTED; a decline returns the job to the matching pool.
func (s *Service) Respond(ctx context.Context, assignmentID, providerID uuid.UUID, accept bool) (repository.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return repository.Assignment{}, err
	}
	if assignment.ProviderID != providerID {
		return repository.Assignment{}, apperr.Forbidden("assignment belongs to another provider")
	}

	job, err := s.jobs.GetDetail(ctx, assignment.JobID)
	if err != nil {
		return repository.Assignment{}, err
	}

	if !accept {
		updated, err := s.assignments.Respond(ctx, assignmentID, repository.StatusDeclined)
		if err != nil {
			return repository.Assignment{}, err
		}
		if _, err := s.jobs.UpdateStatus(ctx, assignment.JobID, job.Status, domain.StatusPendingMatch); err != nil {
			return repository.Assignment{}, err
		}
		return updated, nil
	}

	target := domain.StatusProviderAccepted
	if job.TaskLevel >= 3 {
		target = domain.StatusPendingPriceAgreement
	}
	if err := domain.Validate(job.Status, target, domain.ActorProvider); err != nil {
		return repository.Assignment{}, err
	}

	updated, err := s.assignments.Respond(ctx, assignmentID, repository.StatusAccepted)
	if err != nil {
		return repository.Assignment{}, err
	}
	if _, err := s.jobs.UpdateStatus(ctx, assignment.JobID, job.Status, target); err != nil {
		return repository.Assignment{}, err
	}
	s.bus.Publish(ctx, events.JobStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		JobID:      assignment.JobID,
		FromStatus: string(job.Status),
		ToStatus:   string(target),
		ActorType:  string(domain.ActorProvider),
	})
	return updated, nil
}

// ActiveAssignment returns the job's current active assignment.
func (s *Service) ActiveAssignment(ctx context.Context, jobID uuid.UUID) (repository.Assignment, error) {
	return s.assignments.GetActiveByJob(ctx, jobID)
}

// qualifies applies the hard qualification filter: level coverage,
// background check, and the task's regulatory requirements. Level-4 work
// additionally requires an active on-call shift.
func qualifies(provider providersrepo.Provider, task catalogrepo.ServiceTask) bool {
	if provider.Status != providersrepo.StatusActive {
		return false
	}
	if provider.CurrentLevel < task.Level {
		return false
	}
	if !provider.BackgroundCheckVerified {
		return false
	}
	if task.LicenseRequired && !provider.LicenseValid {
		return false
	}
	if (task.Regulated || task.Hazardous) && !provider.InsuranceActive {
		return false
	}
	if task.Level == 4 && !provider.OnCallActive {
		return false
	}
	return true
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > maxInternalScore {
		return maxInternalScore
	}
	return score
}

// distanceScore is 100 at the job site falling linearly to 0 at the
// maximum matching distance.
func distanceScore(distanceKM float64) float64 {
	if distanceKM <= 0 {
		return 100
	}
	if distanceKM >= geo.MaxDistanceKM {
		return 0
	}
	return 100 * (1 - distanceKM/geo.MaxDistanceKM)
}

// responseScore is 100 for instant responders falling linearly to 0 at one
// hour; providers without history score neutral.
func responseScore(avgMinutes *float64) float64 {
	if avgMinutes == nil {
		return neutralResponseScore
	}
	if *avgMinutes <= 0 {
		return 100
	}
	if *avgMinutes >= maxResponseTimeMinutes {
		return 0
	}
	return 100 * (1 - *avgMinutes/maxResponseTimeMinutes)
}
