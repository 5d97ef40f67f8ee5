// Package transport defines the request/response DTOs for the providers module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ApplyPenaltyRequest applies a penalty to a provider.
type ApplyPenaltyRequest struct {
	PenaltyType string     `json:"penaltyType" validate:"required,oneof=response_timeout cancellation no_show bad_review sla_breach"`
	JobID       *uuid.UUID `json:"jobId,omitempty"`
	Reason      *string    `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// AdjustScoreRequest applies a manual, audited score adjustment.
type AdjustScoreRequest struct {
	Delta  float64 `json:"delta" validate:"required,ne=0"`
	Reason string  `json:"reason" validate:"required,max=500"`
}

// ScoreResponse is the API shape of a provider's score standing.
type ScoreResponse struct {
	ProviderID    uuid.UUID `json:"providerId"`
	CurrentLevel  int       `json:"currentLevel"`
	InternalScore float64   `json:"internalScore"`
	Status        string    `json:"status"`
	LevelBase     float64   `json:"levelBase"`
	LevelMin      float64   `json:"levelMin"`
	LevelMax      float64   `json:"levelMax"`
	IsExpelled    bool      `json:"isExpelled"`
}

// PenaltyResponse is the API shape of one penalty record.
type PenaltyResponse struct {
	ID            uuid.UUID  `json:"id"`
	PenaltyType   string     `json:"penaltyType"`
	Points        float64    `json:"points"`
	PreviousScore float64    `json:"previousScore"`
	NewScore      float64    `json:"newScore"`
	JobID         *uuid.UUID `json:"jobId,omitempty"`
	Reason        *string    `json:"reason,omitempty"`
	AppliedAt     time.Time  `json:"appliedAt"`
}

// PenaltyListResponse wraps a provider's penalty history.
type PenaltyListResponse struct {
	Items []PenaltyResponse `json:"items"`
	Total int               `json:"total"`
}
