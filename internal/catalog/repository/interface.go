package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ServiceTask is one entry of the closed service catalog. The catalog is
// read-only to the job lifecycle: levels and regulatory flags are managed
// by operations tooling, never by request handling.
type ServiceTask struct {
	ID                 uuid.UUID `db:"id"`
	Slug               string    `db:"slug"`
	Name               string    `db:"name"`
	Level              int       `db:"level"`
	Regulated          bool      `db:"regulated"`
	LicenseRequired    bool      `db:"license_required"`
	Hazardous          bool      `db:"hazardous"`
	Structural         bool      `db:"structural"`
	EmergencyEligible  bool      `db:"emergency_eligible"`
	BasePriceMinCents  int64     `db:"base_price_min_cents"`
	BasePriceMaxCents  int64     `db:"base_price_max_cents"`
	IsActive           bool      `db:"is_active"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// Repository provides read access to the service task catalog.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (ServiceTask, error)
	GetBySlug(ctx context.Context, slug string) (ServiceTask, error)
	List(ctx context.Context) ([]ServiceTask, error)
	ListActive(ctx context.Context) ([]ServiceTask, error)
}
