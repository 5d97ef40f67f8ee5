// Package transport defines the request/response DTOs for the jobs module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateJobRequest creates a job in DRAFT.
type CreateJobRequest struct {
	TaskID       uuid.UUID  `json:"taskId" validate:"required"`
	Lat          float64    `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng          float64    `json:"lng" validate:"required,gte=-180,lte=180"`
	Address      string     `json:"address" validate:"required,max=500"`
	ContactPhone string     `json:"contactPhone" validate:"required,max=32"`
	RequestedFor *time.Time `json:"requestedFor,omitempty"`
	IsEmergency  bool       `json:"isEmergency"`
}

// TransitionRequest moves a job to a target lifecycle status.
type TransitionRequest struct {
	Target string `json:"target" validate:"required"`
}

// JobResponse is the API shape of a job.
type JobResponse struct {
	ID            uuid.UUID  `json:"id"`
	ReferenceCode string     `json:"referenceCode"`
	CustomerID    uuid.UUID  `json:"customerId"`
	TaskID        uuid.UUID  `json:"taskId"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	IsEmergency   bool       `json:"isEmergency"`
	Lat           float64    `json:"lat"`
	Lng           float64    `json:"lng"`
	Address       string     `json:"address"`
	ContactPhone  string     `json:"contactPhone"`
	RequestedFor  *time.Time `json:"requestedFor,omitempty"`

	SLAResponseMinutes   int   `json:"slaResponseMinutes"`
	SLAArrivalMinutes    int   `json:"slaArrivalMinutes"`
	SLACompletionMinutes int   `json:"slaCompletionMinutes"`
	SLAPenaltyCents      int64 `json:"slaPenaltyCents"`

	QuotedPriceCents   *int64     `json:"quotedPriceCents,omitempty"`
	FinalPriceCents    *int64     `json:"finalPriceCents,omitempty"`
	ProposedPriceCents *int64     `json:"proposedPriceCents,omitempty"`
	PriceAgreedAt      *time.Time `json:"priceAgreedAt,omitempty"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// JobListResponse wraps a job list.
type JobListResponse struct {
	Items []JobResponse `json:"items"`
	Total int           `json:"total"`
}

// ValidTargetsResponse lists the lifecycle targets the acting party may
// drive from the job's current status.
type ValidTargetsResponse struct {
	Current string   `json:"current"`
	Targets []string `json:"targets"`
}
