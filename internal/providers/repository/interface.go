package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Provider is a vetted service provider profile. The score and status
// fields are mutated only by the scoring engine; the qualification booleans
// are maintained by verification collaborators and consumed read-only here.
type Provider struct {
	ID           uuid.UUID
	Name         string
	Email        string
	ContactPhone string

	CurrentLevel  int
	InternalScore float64
	Status        string

	HomeLat         *float64
	HomeLng         *float64
	ServiceRadiusKM float64

	OnCallActive            bool
	BackgroundCheckVerified bool
	LicenseValid            bool
	InsuranceActive         bool
	MaxConcurrentJobs       int

	AvgResponseMinutes *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PenaltyRecord is one immutable penalty application. The aggregate of a
// provider's records drives expulsion checks and incident-free-week recovery.
type PenaltyRecord struct {
	ID            uuid.UUID
	ProviderID    uuid.UUID
	PenaltyType   string
	Points        float64
	PreviousScore float64
	NewScore      float64
	JobID         *uuid.UUID
	Reason        *string
	AppliedAt     time.Time
}

// ProviderStore provides persistence for provider profiles.
type ProviderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Provider, error)

	// ListMatchable returns active providers with known home coordinates,
	// the candidate pool for the matching pipeline.
	ListMatchable(ctx context.Context) ([]Provider, error)

	// ListActiveIDs returns every active provider's ID; used by the
	// weekly normalization sweep.
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)

	// UpdateScore writes a new score (and optionally status) guarded on
	// the expected current score. Concurrent penalty, adjustment, and
	// normalization calls racing on the same row surface as a conflict
	// the caller retries.
	UpdateScore(ctx context.Context, id uuid.UUID, newScore float64, newStatus *string, expectedScore float64) error

	// UpdateScoreWithRecord is the penalty write path: the guarded score
	// update and the penalty record commit together or not at all, so a
	// failed insert never leaves a deduction without history.
	UpdateScoreWithRecord(ctx context.Context, id uuid.UUID, newScore float64, newStatus *string, expectedScore float64, record PenaltyRecord) (PenaltyRecord, error)

	// CountActiveAssignments returns the provider's offered+accepted
	// assignment count, for the concurrency cap in matching.
	CountActiveAssignments(ctx context.Context, id uuid.UUID) (int, error)
}

// PenaltyStore is the durable, append-only penalty history.
type PenaltyStore interface {
	Record(ctx context.Context, record PenaltyRecord) (PenaltyRecord, error)
	List(ctx context.Context, providerID uuid.UUID) ([]PenaltyRecord, error)
	LastAppliedAt(ctx context.Context, providerID uuid.UUID) (*time.Time, error)
	HasType(ctx context.Context, providerID uuid.UUID, penaltyType string) (bool, error)
}
