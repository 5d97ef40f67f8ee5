// Package transport defines the request/response DTOs for the pricing module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateProposalRequest opens a negotiation step.
type CreateProposalRequest struct {
	PriceCents  int64   `json:"priceCents" validate:"required,gt=0"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// RespondRequest answers a pending proposal.
type RespondRequest struct {
	Accept bool `json:"accept"`
}

// AdjustRequest reprices a job after an on-site scope change.
type AdjustRequest struct {
	PriceCents int64  `json:"priceCents" validate:"required,gt=0"`
	Reason     string `json:"reason" validate:"required,max=500"`
}

// ProposalResponse is the API shape of a price proposal.
type ProposalResponse struct {
	ID          uuid.UUID  `json:"id"`
	JobID       uuid.UUID  `json:"jobId"`
	ProposerID  uuid.UUID  `json:"proposerId"`
	Role        string     `json:"role"`
	PriceCents  int64      `json:"priceCents"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	RespondedBy *uuid.UUID `json:"respondedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// ProposalListResponse wraps a proposal list.
type ProposalListResponse struct {
	Items []ProposalResponse `json:"items"`
	Total int                `json:"total"`
}
