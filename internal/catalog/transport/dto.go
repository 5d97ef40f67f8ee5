// Package transport defines the request/response DTOs for the catalog module.
package transport

import "github.com/google/uuid"

// ServiceTaskResponse is the API shape of a catalog entry.
type ServiceTaskResponse struct {
	ID                uuid.UUID `json:"id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	Level             int       `json:"level"`
	Regulated         bool      `json:"regulated"`
	LicenseRequired   bool      `json:"licenseRequired"`
	Hazardous         bool      `json:"hazardous"`
	Structural        bool      `json:"structural"`
	EmergencyEligible bool      `json:"emergencyEligible"`
	BasePriceMinCents int64     `json:"basePriceMinCents"`
	BasePriceMaxCents int64     `json:"basePriceMaxCents"`
	IsActive          bool      `json:"isActive"`
}

// ServiceTaskListResponse wraps a task list.
type ServiceTaskListResponse struct {
	Items []ServiceTaskResponse `json:"items"`
	Total int                   `json:"total"`
}
