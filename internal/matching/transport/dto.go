// Package transport defines the request/response DTOs for the matching module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// WeightsRequest overrides the default ranking weights.
type WeightsRequest struct {
	InternalScore float64 `json:"internalScore"`
	Distance      float64 `json:"distance"`
	ResponseTime  float64 `json:"responseTime"`
}

// FindMatchesRequest tunes a matching run.
type FindMatchesRequest struct {
	MaxResults int             `json:"maxResults" validate:"omitempty,min=1,max=50"`
	RadiusKM   *float64        `json:"radiusKm,omitempty" validate:"omitempty,gt=0,lte=50"`
	Weights    *WeightsRequest `json:"weights,omitempty"`
}

// AssignRequest offers a job to a provider.
type AssignRequest struct {
	ProviderID uuid.UUID `json:"providerId" validate:"required"`
	MatchScore *float64  `json:"matchScore,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// ReassignRequest replaces the job's active assignment.
type ReassignRequest struct {
	ProviderID uuid.UUID `json:"providerId" validate:"required"`
	Reason     string    `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// RespondRequest records a provider's answer to an offer.
type RespondRequest struct {
	Accept bool `json:"accept"`
}

// AssignmentResponse is the API shape of an assignment.
type AssignmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	JobID        uuid.UUID  `json:"jobId"`
	ProviderID   uuid.UUID  `json:"providerId"`
	Status       string     `json:"status"`
	MatchScore   *float64   `json:"matchScore,omitempty"`
	RespondBy    time.Time  `json:"respondBy"`
	ArriveBy     time.Time  `json:"arriveBy"`
	OfferedAt    time.Time  `json:"offeredAt"`
	RespondedAt  *time.Time `json:"respondedAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	CancelReason *string    `json:"cancelReason,omitempty"`
}
