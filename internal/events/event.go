// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"vakwerk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Job Lifecycle Events
// =============================================================================

// JobSubmitted is published when a customer moves a draft job into matching.
type JobSubmitted struct {
	BaseEvent
	JobID         uuid.UUID `json:"jobId"`
	ReferenceCode string    `json:"referenceCode"`
	TaskLevel     int       `json:"taskLevel"`
}

func (e JobSubmitted) EventName() string { return "jobs.submitted" }

// JobStatusChanged is published after every successful lifecycle transition.
type JobStatusChanged struct {
	BaseEvent
	JobID      uuid.UUID `json:"jobId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorType  string    `json:"actorType"`
}

func (e JobStatusChanged) EventName() string { return "jobs.status_changed" }

// JobStartDue is published by the scheduler when a scheduled job is about
// to start; the notification module reminds the accepted provider.
type JobStartDue struct {
	BaseEvent
	JobID         uuid.UUID `json:"jobId"`
	ReferenceCode string    `json:"referenceCode"`
	StartsAt      time.Time `json:"startsAt"`
}

func (e JobStartDue) EventName() string { return "jobs.start_due" }

// =============================================================================
// Matching Events
// =============================================================================

// AssignmentOffered is published when a provider is assigned to a job.
type AssignmentOffered struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	JobID        uuid.UUID `json:"jobId"`
	ProviderID   uuid.UUID `json:"providerId"`
	RespondBy    time.Time `json:"respondBy"`
}

func (e AssignmentOffered) EventName() string { return "matching.assignment_offered" }

// AssignmentCancelled is published when an active assignment is cancelled,
// e.g. during reassignment.
type AssignmentCancelled struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	JobID        uuid.UUID `json:"jobId"`
	ProviderID   uuid.UUID `json:"providerId"`
	Reason       string    `json:"reason"`
}

func (e AssignmentCancelled) EventName() string { return "matching.assignment_cancelled" }

// =============================================================================
// Scoring Events
// =============================================================================

// PenaltyApplied is published after a penalty mutates a provider's score.
type PenaltyApplied struct {
	BaseEvent
	ProviderID    uuid.UUID `json:"providerId"`
	PenaltyType   string    `json:"penaltyType"`
	PreviousScore float64   `json:"previousScore"`
	NewScore      float64   `json:"newScore"`
}

func (e PenaltyApplied) EventName() string { return "scoring.penalty_applied" }

// ProviderExpelled is published when a provider is suspended, either
// score-driven or through the level-4 no-show zero-tolerance rule.
type ProviderExpelled struct {
	BaseEvent
	ProviderID uuid.UUID `json:"providerId"`
	Reason     string    `json:"reason"`
}

func (e ProviderExpelled) EventName() string { return "scoring.provider_expelled" }

// =============================================================================
// Escalation Events
// =============================================================================

// EscalationRaised is published when keyword detection creates an
// unresolved escalation awaiting admin review.
type EscalationRaised struct {
	BaseEvent
	EscalationID   uuid.UUID `json:"escalationId"`
	JobID          uuid.UUID `json:"jobId"`
	FromLevel      int       `json:"fromLevel"`
	ToLevel        int       `json:"toLevel"`
	TriggerKeyword string    `json:"triggerKeyword"`
}

func (e EscalationRaised) EventName() string { return "escalation.raised" }

// EscalationApproved is published when an admin approves an escalation.
type EscalationApproved struct {
	BaseEvent
	EscalationID uuid.UUID `json:"escalationId"`
	JobID        uuid.UUID `json:"jobId"`
	ToLevel      int       `json:"toLevel"`
	IsEmergency  bool      `json:"isEmergency"`
}

func (e EscalationApproved) EventName() string { return "escalation.approved" }

// =============================================================================
// Pricing Events
// =============================================================================

// PriceProposed is published when a negotiation proposal is created.
type PriceProposed struct {
	BaseEvent
	ProposalID uuid.UUID `json:"proposalId"`
	JobID      uuid.UUID `json:"jobId"`
	PriceCents int64     `json:"priceCents"`
}

func (e PriceProposed) EventName() string { return "pricing.price_proposed" }

// PriceAccepted is published when a proposal is accepted and the job is
// scheduled.
type PriceAccepted struct {
	BaseEvent
	ProposalID uuid.UUID `json:"proposalId"`
	JobID      uuid.UUID `json:"jobId"`
	PriceCents int64     `json:"priceCents"`
}

func (e PriceAccepted) EventName() string { return "pricing.price_accepted" }
