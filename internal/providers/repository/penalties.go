package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PenaltyRepo implements PenaltyStore with PostgreSQL. Records are
// append-only; nothing here updates or deletes.
type PenaltyRepo struct {
	pool *pgxpool.Pool
}

// NewPenaltyRepo creates a new penalty history repository.
func NewPenaltyRepo(pool *pgxpool.Pool) *PenaltyRepo {
	return &PenaltyRepo{pool: pool}
}

// Compile-time check that PenaltyRepo implements PenaltyStore.
var _ PenaltyStore = (*PenaltyRepo)(nil)

const insertPenaltyQuery = `
		INSERT INTO penalty_records (provider_id, penalty_type, points, previous_score, new_score, job_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, applied_at`

// Record appends one penalty record.
func (r *PenaltyRepo) Record(ctx context.Context, record PenaltyRecord) (PenaltyRecord, error) {
	err := r.pool.QueryRow(ctx, insertPenaltyQuery,
		record.ProviderID, record.PenaltyType, record.Points,
		record.PreviousScore, record.NewScore, record.JobID, record.Reason,
	).Scan(&record.ID, &record.AppliedAt)
	if err != nil {
		return PenaltyRecord{}, fmt.Errorf("record penalty: %w", err)
	}
	return record, nil
}

// List returns a provider's penalty history, newest first.
func (r *PenaltyRepo) List(ctx context.Context, providerID uuid.UUID) ([]PenaltyRecord, error) {
	query := `
		SELECT id, provider_id, penalty_type, points, previous_score, new_score, job_id, reason, applied_at
		FROM penalty_records
		WHERE provider_id = $1
		ORDER BY applied_at DESC`

	rows, err := r.pool.Query(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("list penalties: %w", err)
	}
	defer rows.Close()

	records := make([]PenaltyRecord, 0)
	for rows.Next() {
		record, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan penalty: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate penalties: %w", err)
	}
	return records, nil
}

// LastAppliedAt returns when the provider's most recent penalty was applied,
// or nil when no penalty was ever recorded.
func (r *PenaltyRepo) LastAppliedAt(ctx context.Context, providerID uuid.UUID) (*time.Time, error) {
	var last *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(applied_at) FROM penalty_records WHERE provider_id = $1`, providerID).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("last penalty applied at: %w", err)
	}
	return last, nil
}

// HasType reports whether the provider ever received a penalty of the type.
func (r *PenaltyRepo) HasType(ctx context.Context, providerID uuid.UUID, penaltyType string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM penalty_records WHERE provider_id = $1 AND penalty_type = $2)`,
		providerID, penaltyType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has penalty type: %w", err)
	}
	return exists, nil
}

func scanPenalty(rows pgx.Rows) (PenaltyRecord, error) {
	var record PenaltyRecord
	err := rows.Scan(
		&record.ID, &record.ProviderID, &record.PenaltyType, &record.Points,
		&record.PreviousScore, &record.NewScore, &record.JobID, &record.Reason, &record.AppliedAt,
	)
	if err != nil {
		return PenaltyRecord{}, err
	}
	return record, nil
}
