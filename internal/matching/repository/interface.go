package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Assignment statuses.
const (
	StatusOffered   = "offered"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Assignment links a job to one provider. At most one assignment per job may
// be active (offered or accepted) at a time; the database enforces this with
// a partial unique index.
type Assignment struct {
	ID         uuid.UUID
	JobID      uuid.UUID
	ProviderID uuid.UUID
	Status     string
	MatchScore *float64

	// Deadlines frozen from the job's SLA snapshot at offer time.
	RespondBy time.Time
	ArriveBy  time.Time

	OfferedAt    time.Time
	RespondedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

// IsActive reports whether the assignment still binds the provider.
func (a Assignment) IsActive() bool {
	return a.Status == StatusOffered || a.Status == StatusAccepted
}

// Store provides persistence for job assignments.
type Store interface {
	// Create inserts a new offered assignment. A concurrent active
	// assignment for the same job surfaces as a conflict.
	Create(ctx context.Context, assignment Assignment) (Assignment, error)

	GetByID(ctx context.Context, id uuid.UUID) (Assignment, error)

	// GetActiveByJob returns the job's offered or accepted assignment,
	// or not-found when the job has none.
	GetActiveByJob(ctx context.Context, jobID uuid.UUID) (Assignment, error)

	// Respond moves an offered assignment to accepted or declined,
	// guarded on the current status.
	Respond(ctx context.Context, id uuid.UUID, toStatus string) (Assignment, error)

	// Cancel terminates an active assignment with a reason.
	Cancel(ctx context.Context, id uuid.UUID, reason string) error

	// Expire marks an offered assignment expired; the SLA sweep calls
	// this for offers past their response deadline.
	Expire(ctx context.Context, id uuid.UUID) error

	// ListOfferedPastRespondBy returns offered assignments whose response
	// deadline passed before the cutoff.
	ListOfferedPastRespondBy(ctx context.Context, cutoff time.Time) ([]Assignment, error)

	// ListAcceptedPastArriveBy returns accepted assignments whose arrival
	// deadline passed before the cutoff.
	ListAcceptedPastArriveBy(ctx context.Context, cutoff time.Time) ([]Assignment, error)
}
