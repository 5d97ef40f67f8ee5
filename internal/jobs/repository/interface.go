package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vakwerk_backend/internal/jobs/domain"
)

// Job is a customer request for a catalog task. The SLA snapshot fields are
// captured at creation time and never recomputed; status moves only through
// the lifecycle state machine in jobs/domain.
type Job struct {
	ID            uuid.UUID
	ReferenceCode string
	CustomerID    uuid.UUID
	TaskID        uuid.UUID
	Status        domain.Status
	Priority      string
	IsEmergency   bool

	Lat          float64
	Lng          float64
	Address      string
	ContactPhone string

	RequestedFor *time.Time

	// SLA snapshot, write-once at creation.
	SLAResponseMinutes   int
	SLAArrivalMinutes    int
	SLACompletionMinutes int
	SLAPenaltyCents      int64

	QuotedPriceCents   *int64
	FinalPriceCents    *int64
	ProposedPriceCents *int64
	PriceAgreedAt      *time.Time

	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Detail is a job joined with the catalog facts the core engines consume.
type Detail struct {
	Job
	TaskSlug          string
	TaskLevel         int
	EmergencyEligible bool
	BasePriceMinCents int64
	BasePriceMaxCents int64
}

// CreateParams contains parameters for creating a job in DRAFT.
type CreateParams struct {
	CustomerID           uuid.UUID
	TaskID               uuid.UUID
	ReferenceCode        string
	Priority             string
	IsEmergency          bool
	Lat                  float64
	Lng                  float64
	Address              string
	ContactPhone         string
	RequestedFor         *time.Time
	SLAResponseMinutes   int
	SLAArrivalMinutes    int
	SLACompletionMinutes int
	SLAPenaltyCents      int64
	QuotedPriceCents     *int64
}

// Repository provides persistence for jobs.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (Job, error)
	GetDetail(ctx context.Context, id uuid.UUID) (Detail, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Job, error)

	// UpdateStatus applies from -> to with an optimistic guard on the
	// current status; it fails with a conflict when the job moved
	// concurrently. Lifecycle timestamps are stamped per target status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (Job, error)

	// SetEmergency flags the job as an emergency with emergency priority.
	// Only escalation approval calls this.
	SetEmergency(ctx context.Context, id uuid.UUID) error

	// ClearAgreedPrice drops a previously agreed price when an on-site
	// adjustment forces re-approval.
	ClearAgreedPrice(ctx context.Context, id uuid.UUID) error

	// ListScheduledBetween returns jobs whose requested schedule falls in
	// the window; used by the job-start reminder sweep.
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]Job, error)
}
