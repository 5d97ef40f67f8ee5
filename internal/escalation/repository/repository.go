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

const escalationColumns = `id, job_id, from_level, to_level, trigger_keyword, keywords,
		source_text, status, resolved_by, resolve_reason, resolved_at, created_at`

// Repo implements Store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new escalation repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Store.
var _ Store = (*Repo)(nil)

// Create inserts a new pending escalation.
func (r *Repo) Create(ctx context.Context, escalation JobEscalation) (JobEscalation, error) {
	query := `
		INSERT INTO job_escalations (job_id, from_level, to_level, trigger_keyword, keywords, source_text, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		escalation.JobID, escalation.FromLevel, escalation.ToLevel,
		escalation.TriggerKeyword, escalation.Keywords, escalation.SourceText,
	).Scan(&escalation.ID, &escalation.CreatedAt)
	if err != nil {
		return JobEscalation{}, fmt.Errorf("create escalation: %w", err)
	}
	escalation.Status = StatusPending
	return escalation, nil
}

// GetByID retrieves an escalation by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (JobEscalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM job_escalations WHERE id = $1`

	escalation, err := scanEscalation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobEscalation{}, apperr.NotFound("escalation not found")
		}
		return JobEscalation{}, fmt.Errorf("get escalation by id: %w", err)
	}
	return escalation, nil
}

// ListByJob returns a job's escalations, newest first.
func (r *Repo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]JobEscalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM job_escalations
		WHERE job_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, jobID)
}

// ListPending returns all unresolved escalations, oldest first.
func (r *Repo) ListPending(ctx context.Context) ([]JobEscalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM job_escalations
		WHERE status = 'pending' ORDER BY created_at ASC`
	return r.list(ctx, query)
}

// Resolve moves a pending escalation to approved or rejected.
func (r *Repo) Resolve(ctx context.Context, id uuid.UUID, status string, adminID uuid.UUID, reason *string) (JobEscalation, error) {
	if status != StatusApproved && status != StatusRejected {
		return JobEscalation{}, apperr.Validation(fmt.Sprintf("invalid resolution status %q", status))
	}

	query := `
		UPDATE job_escalations
		SET status = $2, resolved_by = $3, resolve_reason = $4, resolved_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + escalationColumns

	escalation, err := scanEscalation(r.pool.QueryRow(ctx, query, id, status, adminID, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobEscalation{}, apperr.Conflict("escalation is already resolved")
		}
		return JobEscalation{}, fmt.Errorf("resolve escalation: %w", err)
	}
	return escalation, nil
}

func (r *Repo) list(ctx context.Context, query string, args ...any) ([]JobEscalation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()

	escalations := make([]JobEscalation, 0)
	for rows.Next() {
		escalation, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		escalations = append(escalations, escalation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escalations: %w", err)
	}
	return escalations, nil
}

func scanEscalation(row pgx.Row) (JobEscalation, error) {
	var e JobEscalation
	err := row.Scan(
		&e.ID, &e.JobID, &e.FromLevel, &e.ToLevel, &e.TriggerKeyword, &e.Keywords,
		&e.SourceText, &e.Status, &e.ResolvedBy, &e.ResolveReason, &e.ResolvedAt, &e.CreatedAt,
	)
	if err != nil {
		return JobEscalation{}, err
	}
	return e, nil
}
