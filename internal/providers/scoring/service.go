// Package scoring implements the provider reputation engine: per-level score
// configuration, penalty application, expulsion detection, weekly recovery,
// and audited manual adjustment.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/logger"
)

// Penalty types.
const (
	PenaltyResponseTimeout = "response_timeout"
	PenaltyCancellation    = "cancellation"
	PenaltyNoShow          = "no_show"
	PenaltyBadReview       = "bad_review"
	PenaltySLABreach       = "sla_breach"
)

const (
	// weeklyRecoveryPoints is recovered per incident-free week.
	weeklyRecoveryPoints = 5.0
	// maxIncidentFreeWeeks caps the recovery window; a provider with no
	// penalty history is treated as having been clean this long.
	maxIncidentFreeWeeks = 52
	// scoreUpdateRetries bounds optimistic-conflict retries on a
	// provider's score row.
	scoreUpdateRetries = 3
)

// LevelConfig bounds a level's score range.
type LevelConfig struct {
	Base float64
	Min  float64
	Max  float64
}

// levelConfigs is the fixed per-level score table.
var levelConfigs = map[int]LevelConfig{
	1: {Base: 70, Min: 40, Max: 90},
	2: {Base: 75, Min: 50, Max: 95},
	3: {Base: 80, Min: 60, Max: 98},
	4: {Base: 85, Min: 70, Max: 100},
}

// penaltyPoints is the fixed deduction table, keyed by penalty type then
// provider level. Absence means the type does not apply at that level.
var penaltyPoints = map[string]map[int]float64{
	PenaltyResponseTimeout: {1: -2, 2: -4, 3: -6, 4: -15},
	PenaltyCancellation:    {1: -3, 2: -6, 3: -10, 4: -25},
	PenaltyNoShow:          {1: -10, 2: -15, 3: -30, 4: -50},
	PenaltyBadReview:       {1: -5, 2: -7, 3: -10},
	PenaltySLABreach:       {4: -30},
}

// ConfigForLevel exposes the score bounds for a level.
func ConfigForLevel(level int) (LevelConfig, bool) {
	cfg, ok := levelConfigs[level]
	return cfg, ok
}

// PenaltyResult reports a penalty application.
type PenaltyResult struct {
	ProviderID    uuid.UUID `json:"providerId"`
	PenaltyType   string    `json:"penaltyType"`
	Points        float64   `json:"points"`
	PreviousScore float64   `json:"previousScore"`
	NewScore      float64   `json:"newScore"`
	IsExpelled    bool      `json:"isExpelled"`
}

// NormalizeResult reports a weekly recovery run for one provider.
type NormalizeResult struct {
	ProviderID        uuid.UUID `json:"providerId"`
	PreviousScore     float64   `json:"previousScore"`
	NewScore          float64   `json:"newScore"`
	PointsRecovered   float64   `json:"pointsRecovered"`
	IncidentFreeWeeks int       `json:"incidentFreeWeeks"`
}

// AdjustResult reports a manual score adjustment.
type AdjustResult struct {
	ProviderID    uuid.UUID `json:"providerId"`
	PreviousScore float64   `json:"previousScore"`
	NewScore      float64   `json:"newScore"`
	Delta         float64   `json:"delta"`
	AdminID       uuid.UUID `json:"adminId"`
}

// Service is the scoring engine. Score writes go through an optimistic
// guard on the current score; conflicting concurrent mutations are retried
// against a fresh read.
type Service struct {
	providers repository.ProviderStore
	penalties repository.PenaltyStore
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scoring engine.
func New(providers repository.ProviderStore, penalties repository.PenaltyStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		providers: providers,
		penalties: penalties,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the time source; used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ApplyPenalty deducts the level's points for the event type, appends an
// immutable penalty record in the same transaction as the score write, and
// suspends the provider when the score floor is reached. A level-4 no-show
// is zero tolerance: the score is forced to zero and the provider suspended
// regardless of the prior score.
func (s *Service) ApplyPenalty(ctx context.Context, providerID uuid.UUID, penaltyType string, jobID *uuid.UUID, reason *string) (PenaltyResult, error) {
	byLevel, ok := penaltyPoints[penaltyType]
	if !ok {
		return PenaltyResult{}, apperr.Validation(fmt.Sprintf("unknown penalty type %q", penaltyType))
	}

	var result PenaltyResult
	err := s.withScoreRetry(ctx, providerID, func(provider repository.Provider) error {
		cfg, ok := levelConfigs[provider.CurrentLevel]
		if !ok {
			return apperr.Validation(fmt.Sprintf("provider has unknown level %d", provider.CurrentLevel))
		}
		points, ok := byLevel[provider.CurrentLevel]
		if !ok {
			return apperr.Validation(fmt.Sprintf("penalty type %q does not apply to level %d", penaltyType, provider.CurrentLevel))
		}

		previous := provider.InternalScore
		var newScore float64
		var expelled bool

		if penaltyType == PenaltyNoShow && provider.CurrentLevel == 4 {
			// Zero tolerance: bypasses the clamp math entirely.
			newScore = 0
			expelled = true
		} else {
			newScore = clamp(previous+points, cfg.Min, cfg.Max)
			expelled = newScore <= cfg.Min
		}

		var newStatus *string
		if expelled {
			suspended := repository.StatusSuspended
			newStatus = &suspended
		}

		if _, err := s.providers.UpdateScoreWithRecord(ctx, providerID, newScore, newStatus, previous, repository.PenaltyRecord{
			ProviderID:    providerID,
			PenaltyType:   penaltyType,
			Points:        points,
			PreviousScore: previous,
			NewScore:      newScore,
			JobID:         jobID,
			Reason:        reason,
		}); err != nil {
			return err
		}

		result = PenaltyResult{
			ProviderID:    providerID,
			PenaltyType:   penaltyType,
			Points:        points,
			PreviousScore: previous,
			NewScore:      newScore,
			IsExpelled:    expelled,
		}
		return nil
	})
	if err != nil {
		return PenaltyResult{}, err
	}

	s.log.PenaltyApplied(providerID.String(), penaltyType, result.PreviousScore, result.NewScore, result.IsExpelled)
	s.bus.Publish(ctx, events.PenaltyApplied{
		BaseEvent:     events.NewBaseEvent(),
		ProviderID:    providerID,
		PenaltyType:   penaltyType,
		PreviousScore: result.PreviousScore,
		NewScore:      result.NewScore,
	})
	if result.IsExpelled {
		s.bus.Publish(ctx, events.ProviderExpelled{
			BaseEvent:  events.NewBaseEvent(),
			ProviderID: providerID,
			Reason:     penaltyType,
		})
	}

	return result, nil
}

// Normalize runs one week's worth of score recovery. Recovery applies only
// when the score sits below the level base and the provider has at least one
// fully incident-free week; schedule-driven callers accumulate recovery by
// invoking this weekly. The score never recovers past the level base.
func (s *Service) Normalize(ctx context.Context, providerID uuid.UUID) (NormalizeResult, error) {
	var result NormalizeResult
	err := s.withScoreRetry(ctx, providerID, func(provider repository.Provider) error {
		cfg, ok := levelConfigs[provider.CurrentLevel]
		if !ok {
			return apperr.Validation(fmt.Sprintf("provider has unknown level %d", provider.CurrentLevel))
		}

		weeks, err := s.incidentFreeWeeks(ctx, providerID)
		if err != nil {
			return err
		}

		result = NormalizeResult{
			ProviderID:        providerID,
			PreviousScore:     provider.InternalScore,
			NewScore:          provider.InternalScore,
			IncidentFreeWeeks: weeks,
		}

		if provider.InternalScore >= cfg.Base || weeks < 1 {
			return nil
		}

		recovered := math.Min(weeklyRecoveryPoints, cfg.Base-provider.InternalScore)
		newScore := provider.InternalScore + recovered

		if err := s.providers.UpdateScore(ctx, providerID, newScore, nil, provider.InternalScore); err != nil {
			return err
		}

		result.NewScore = newScore
		result.PointsRecovered = recovered
		return nil
	})
	if err != nil {
		return NormalizeResult{}, err
	}

	if result.PointsRecovered > 0 {
		s.log.Info("score normalized",
			"provider_id", providerID,
			"previous_score", result.PreviousScore,
			"new_score", result.NewScore,
			"incident_free_weeks", result.IncidentFreeWeeks,
		)
	}
	return result, nil
}

// AdjustManually applies an admin-driven delta, clamped to the level range.
// The reason is mandatory and the adjustment is always recorded for audit,
// regardless of direction.
func (s *Service) AdjustManually(ctx context.Context, providerID uuid.UUID, delta float64, adminID uuid.UUID, reason string) (AdjustResult, error) {
	if strings.TrimSpace(reason) == "" {
		return AdjustResult{}, apperr.Validation("adjustment reason is required")
	}

	var result AdjustResult
	err := s.withScoreRetry(ctx, providerID, func(provider repository.Provider) error {
		cfg, ok := levelConfigs[provider.CurrentLevel]
		if !ok {
			return apperr.Validation(fmt.Sprintf("provider has unknown level %d", provider.CurrentLevel))
		}

		previous := provider.InternalScore
		newScore := clamp(previous+delta, cfg.Min, cfg.Max)

		if err := s.providers.UpdateScore(ctx, providerID, newScore, nil, previous); err != nil {
			return err
		}

		result = AdjustResult{
			ProviderID:    providerID,
			PreviousScore: previous,
			NewScore:      newScore,
			Delta:         delta,
			AdminID:       adminID,
		}
		return nil
	})
	if err != nil {
		return AdjustResult{}, err
	}

	s.log.Info("score adjusted manually",
		"provider_id", providerID,
		"admin_id", adminID,
		"delta", delta,
		"previous_score", result.PreviousScore,
		"new_score", result.NewScore,
		"reason", reason,
	)
	return result, nil
}

// CheckExpulsion reports whether the provider is expelled: suspended,
// at or below the level floor, or (level 4 only) carrying any no-show.
func (s *Service) CheckExpulsion(ctx context.Context, providerID uuid.UUID) (bool, error) {
	provider, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return false, err
	}

	if provider.Status == repository.StatusSuspended {
		return true, nil
	}
	if cfg, ok := levelConfigs[provider.CurrentLevel]; ok && provider.InternalScore <= cfg.Min {
		return true, nil
	}
	if provider.CurrentLevel == 4 {
		hasNoShow, err := s.penalties.HasType(ctx, providerID, PenaltyNoShow)
		if err != nil {
			return false, err
		}
		if hasNoShow {
			return true, nil
		}
	}
	return false, nil
}

// History returns the provider's penalty records, newest first.
func (s *Service) History(ctx context.Context, providerID uuid.UUID) ([]repository.PenaltyRecord, error) {
	return s.penalties.List(ctx, providerID)
}

func (s *Service) incidentFreeWeeks(ctx context.Context, providerID uuid.UUID) (int, error) {
	last, err := s.penalties.LastAppliedAt(ctx, providerID)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return maxIncidentFreeWeeks, nil
	}

	days := s.now().Sub(*last).Hours() / 24
	weeks := int(math.Floor(days / 7))
	if weeks < 0 {
		weeks = 0
	}
	if weeks > maxIncidentFreeWeeks {
		weeks = maxIncidentFreeWeeks
	}
	return weeks, nil
}

// withScoreRetry re-reads the provider and retries fn when the optimistic
// score guard reports a concurrent mutation.
func (s *Service) withScoreRetry(ctx context.Context, providerID uuid.UUID, fn func(provider repository.Provider) error) error {
	var lastErr error
	for attempt := 0; attempt < scoreUpdateRetries; attempt++ {
		provider, err := s.providers.GetByID(ctx, providerID)
		if err != nil {
			return err
		}

		err = fn(provider)
		if err == nil {
			return nil
		}
		if !apperr.Is(err, apperr.KindConflict) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
