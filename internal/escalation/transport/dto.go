// Package transport defines the request/response DTOs for the escalation module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CheckRequest scans text against the escalation keyword table.
type CheckRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// RejectRequest resolves an escalation without raising the job.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// EscalationResponse is the API shape of a job escalation.
type EscalationResponse struct {
	ID             uuid.UUID  `json:"id"`
	JobID          uuid.UUID  `json:"jobId"`
	FromLevel      int        `json:"fromLevel"`
	ToLevel        int        `json:"toLevel"`
	TriggerKeyword string     `json:"triggerKeyword"`
	Keywords       []string   `json:"keywords"`
	Status         string     `json:"status"`
	ResolvedBy     *uuid.UUID `json:"resolvedBy,omitempty"`
	ResolveReason  *string    `json:"resolveReason,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// EscalationListResponse wraps an escalation list.
type EscalationListResponse struct {
	Items []EscalationResponse `json:"items"`
	Total int                  `json:"total"`
}
