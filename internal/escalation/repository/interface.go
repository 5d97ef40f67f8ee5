package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Escalation statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// JobEscalation is one keyword-triggered escalation awaiting admin review.
// Repeated checks on the same job create new records; there is no dedup.
type JobEscalation struct {
	ID             uuid.UUID
	JobID          uuid.UUID
	FromLevel      int
	ToLevel        int
	TriggerKeyword string
	Keywords       []string
	SourceText     string
	Status         string
	ResolvedBy     *uuid.UUID
	ResolveReason  *string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
}

// Store provides persistence for job escalations.
type Store interface {
	Create(ctx context.Context, escalation JobEscalation) (JobEscalation, error)
	GetByID(ctx context.Context, id uuid.UUID) (JobEscalation, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]JobEscalation, error)
	ListPending(ctx context.Context) ([]JobEscalation, error)

	// Resolve moves a pending escalation to approved or rejected, guarded
	// on the pending status; an already-resolved escalation conflicts.
	Resolve(ctx context.Context, id uuid.UUID, status string, adminID uuid.UUID, reason *string) (JobEscalation, error)
}
