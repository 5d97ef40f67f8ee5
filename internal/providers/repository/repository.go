package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vakwerk_backend/platform/apperr"
)

const providerNotFoundMessage = "provider not found"

const providerColumns = `id, name, email, contact_phone, current_level, internal_score, status,
		home_lat, home_lng, service_radius_km,
		on_call_active, background_check_verified, license_valid, insurance_active,
		max_concurrent_jobs, avg_response_minutes, created_at, updated_at`

// Repo implements ProviderStore with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new provider repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements ProviderStore.
var _ ProviderStore = (*Repo)(nil)

// GetByID retrieves a provider by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM provider_profiles WHERE id = $1`

	provider, err := scanProvider(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Provider{}, apperr.NotFound(providerNotFoundMessage)
		}
		return Provider{}, fmt.Errorf("get provider by id: %w", err)
	}
	return provider, nil
}

// ListMatchable returns active providers with known home coordinates.
func (r *Repo) ListMatchable(ctx context.Context) ([]Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM provider_profiles
		WHERE status = 'active' AND home_lat IS NOT NULL AND home_lng IS NOT NULL`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list matchable providers: %w", err)
	}
	defer rows.Close()

	return scanProviders(rows)
}

// ListActiveIDs returns every active provider's ID.
func (r *Repo) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM provider_profiles WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("list active provider ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan provider id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider ids: %w", err)
	}
	return ids, nil
}

const updateScoreQuery = `
		UPDATE provider_profiles
		SET internal_score = $2,
			status = COALESCE($3, status),
			updated_at = now()
		WHERE id = $1 AND internal_score = $4`

// UpdateScore writes a new score and optional status, guarded on the
// expected current score so concurrent mutations surface as conflicts.
func (r *Repo) UpdateScore(ctx context.Context, id uuid.UUID, newScore float64, newStatus *string, expectedScore float64) error {
	tag, err := r.pool.Exec(ctx, updateScoreQuery, id, newScore, newStatus, expectedScore)
	if err != nil {
		return fmt.Errorf("update provider score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("provider score changed concurrently")
	}
	return nil
}

// UpdateScoreWithRecord applies the guarded score update and appends the
// penalty record in one transaction; a failed insert rolls back the
// deduction so the score and the history never diverge.
func (r *Repo) UpdateScoreWithRecord(ctx context.Context, id uuid.UUID, newScore float64, newStatus *string, expectedScore float64, record PenaltyRecord) (PenaltyRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return PenaltyRecord{}, fmt.Errorf("begin penalty transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, updateScoreQuery, id, newScore, newStatus, expectedScore)
	if err != nil {
		return PenaltyRecord{}, fmt.Errorf("update provider score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return PenaltyRecord{}, apperr.Conflict("provider score changed concurrently")
	}

	err = tx.QueryRow(ctx, insertPenaltyQuery,
		record.ProviderID, record.PenaltyType, record.Points,
		record.PreviousScore, record.NewScore, record.JobID, record.Reason,
	).Scan(&record.ID, &record.AppliedAt)
	if err != nil {
		return PenaltyRecord{}, fmt.Errorf("record penalty: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return PenaltyRecord{}, fmt.Errorf("commit penalty transaction: %w", err)
	}
	return record, nil
}

// CountActiveAssignments returns the provider's offered+accepted assignment count.
func (r *Repo) CountActiveAssignments(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_assignments WHERE provider_id = $1 AND status IN ('offered', 'accepted')`,
		id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return count, nil
}

func scanProvider(row pgx.Row) (Provider, error) {
	var p Provider
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.ContactPhone, &p.CurrentLevel, &p.InternalScore, &p.Status,
		&p.HomeLat, &p.HomeLng, &p.ServiceRadiusKM,
		&p.OnCallActive, &p.BackgroundCheckVerified, &p.LicenseValid, &p.InsuranceActive,
		&p.MaxConcurrentJobs, &p.AvgResponseMinutes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Provider{}, err
	}
	return p, nil
}

func scanProviders(rows pgx.Rows) ([]Provider, error) {
	providers := make([]Provider, 0)
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return providers, nil
}
