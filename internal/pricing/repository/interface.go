package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Proposal statuses.
const (
	ProposalPending    = "pending"
	ProposalAccepted   = "accepted"
	ProposalRejected   = "rejected"
	ProposalSuperseded = "superseded"
)

// Pricing event types.
const (
	EventPriceProposed = "PRICE_PROPOSED"
	EventPriceAccepted = "PRICE_ACCEPTED"
	EventPriceRejected = "PRICE_REJECTED"
	EventPriceAdjusted = "PRICE_ADJUSTED"
)

// PriceProposal is one negotiation step on a level-3/4 job.
type PriceProposal struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	ProposerID  uuid.UUID
	Role        string
	PriceCents  int64
	Description *string
	Status      string
	RespondedBy *uuid.UUID
	CreatedAt   time.Time
	RespondedAt *time.Time
}

// PricingEvent is one append-only entry of a job's price history; the
// breakdown endpoint reconstructs from the latest entry.
type PricingEvent struct {
	ID         uuid.UUID
	JobID      uuid.UUID
	EventType  string
	PriceCents int64
	Multiplier float64
	Detail     *string
	CreatedAt  time.Time
}

// ProposalStore provides persistence for price proposals.
type ProposalStore interface {
	Create(ctx context.Context, proposal PriceProposal) (PriceProposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (PriceProposal, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]PriceProposal, error)

	// Respond moves a pending proposal to accepted or rejected, guarded
	// on the pending status.
	Respond(ctx context.Context, id uuid.UUID, status string, responderID uuid.UUID) (PriceProposal, error)

	// Accept flips a pending proposal to accepted and, in the same
	// transaction, locks the price onto the job, stamps the agreement
	// time, moves the job to SCHEDULED, and appends the PRICE_ACCEPTED
	// event. Any failing statement rolls back all of them.
	Accept(ctx context.Context, id uuid.UUID, responderID uuid.UUID, jobStatus string, agreedAt time.Time) (PriceProposal, error)

	// SupersedeByJob marks every pending or accepted proposal for the job
	// superseded; on-site adjustments call this before re-proposing.
	SupersedeByJob(ctx context.Context, jobID uuid.UUID) error
}

// EventStore is the append-only price history.
type EventStore interface {
	Append(ctx context.Context, event PricingEvent) (PricingEvent, error)

	// Latest returns the job's most recent pricing event, or not-found
	// when the job has no price history.
	Latest(ctx context.Context, jobID uuid.UUID) (PricingEvent, error)
}
