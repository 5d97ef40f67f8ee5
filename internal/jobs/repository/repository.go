package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vakwerk_backend/internal/jobs/domain"
	"vakwerk_backend/platform/apperr"
)

const jobNotFoundMessage = "job not found"

const jobColumns = `id, reference_code, customer_id, task_id, status, priority, is_emergency,
		lat, lng, address, contact_phone, requested_for,
		sla_response_minutes, sla_arrival_minutes, sla_completion_minutes, sla_penalty_cents,
		quoted_price_cents, final_price_cents, proposed_price_cents, price_agreed_at,
		started_at, completed_at, cancelled_at, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new jobs repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a job in DRAFT with its immutable SLA snapshot.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Job, error) {
	query := `
		INSERT INTO jobs (
			reference_code, customer_id, task_id, status, priority, is_emergency,
			lat, lng, address, contact_phone, requested_for,
			sla_response_minutes, sla_arrival_minutes, sla_completion_minutes, sla_penalty_cents,
			quoted_price_cents
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + jobColumns

	row := r.pool.QueryRow(ctx, query,
		params.ReferenceCode, params.CustomerID, params.TaskID, domain.StatusDraft,
		params.Priority, params.IsEmergency,
		params.Lat, params.Lng, params.Address, params.ContactPhone, params.RequestedFor,
		params.SLAResponseMinutes, params.SLAArrivalMinutes, params.SLACompletionMinutes,
		params.SLAPenaltyCents, params.QuotedPriceCents,
	)

	job, err := scanJob(row)
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// GetByID retrieves a job by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.NotFound(jobNotFoundMessage)
		}
		return Job{}, fmt.Errorf("get job by id: %w", err)
	}
	return job, nil
}

// GetDetail retrieves a job joined with its catalog task facts.
func (r *Repo) GetDetail(ctx context.Context, id uuid.UUID) (Detail, error) {
	query := `
		SELECT j.id, j.reference_code, j.customer_id, j.task_id, j.status, j.priority, j.is_emergency,
			j.lat, j.lng, j.address, j.contact_phone, j.requested_for,
			j.sla_response_minutes, j.sla_arrival_minutes, j.sla_completion_minutes, j.sla_penalty_cents,
			j.quoted_price_cents, j.final_price_cents, j.proposed_price_cents, j.price_agreed_at,
			j.started_at, j.completed_at, j.cancelled_at, j.created_at, j.updated_at,
			t.slug, t.level, t.emergency_eligible, t.base_price_min_cents, t.base_price_max_cents
		FROM jobs j
		JOIN service_tasks t ON t.id = j.task_id
		WHERE j.id = $1`

	var detail Detail
	var status string

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&detail.ID, &detail.ReferenceCode, &detail.CustomerID, &detail.TaskID, &status,
		&detail.Priority, &detail.IsEmergency,
		&detail.Lat, &detail.Lng, &detail.Address, &detail.ContactPhone, &detail.RequestedFor,
		&detail.SLAResponseMinutes, &detail.SLAArrivalMinutes, &detail.SLACompletionMinutes,
		&detail.SLAPenaltyCents,
		&detail.QuotedPriceCents, &detail.FinalPriceCents, &detail.ProposedPriceCents, &detail.PriceAgreedAt,
		&detail.StartedAt, &detail.CompletedAt, &detail.CancelledAt, &detail.CreatedAt, &detail.UpdatedAt,
		&detail.TaskSlug, &detail.TaskLevel, &detail.EmergencyEligible,
		&detail.BasePriceMinCents, &detail.BasePriceMaxCents,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, apperr.NotFound(jobNotFoundMessage)
		}
		return Detail{}, fmt.Errorf("get job detail: %w", err)
	}

	detail.Status = domain.Status(status)
	return detail, nil
}

// ListByCustomer retrieves a customer's jobs, newest first.
func (r *Repo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by customer: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// UpdateStatus applies from -> to guarded on the current status. Lifecycle
// timestamps are stamped in the same statement so a transition is one write.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (Job, error) {
	query := `
		UPDATE jobs
		SET status = $3,
			started_at = CASE WHEN $3 = 'IN_PROGRESS' AND started_at IS NULL THEN now() ELSE started_at END,
			completed_at = CASE WHEN $3 = 'COMPLETED' THEN now() ELSE completed_at END,
			cancelled_at = CASE WHEN $3 LIKE 'CANCELLED_%' THEN now() ELSE cancelled_at END,
			updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query, id, from, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict(fmt.Sprintf("job is no longer in %s", from))
		}
		return Job{}, fmt.Errorf("update job status: %w", err)
	}
	return job, nil
}

// SetEmergency promotes the job to emergency priority. The task's catalog
// level is never altered; only job-level flags change.
func (r *Repo) SetEmergency(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET is_emergency = true, priority = 'emergency', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set job emergency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(jobNotFoundMessage)
	}
	return nil
}

// ClearAgreedPrice drops a previously agreed price pending re-approval.
func (r *Repo) ClearAgreedPrice(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET price_agreed_at = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear job agreed price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(jobNotFoundMessage)
	}
	return nil
}

// ListScheduledBetween returns accepted or scheduled jobs whose requested
// start falls within the window.
func (r *Repo) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE requested_for BETWEEN $1 AND $2
		AND status IN ('SCHEDULED', 'PROVIDER_ACCEPTED')
		ORDER BY requested_for ASC`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list scheduled jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJob(row pgx.Row) (Job, error) {
	var job Job
	var status string

	err := row.Scan(
		&job.ID, &job.ReferenceCode, &job.CustomerID, &job.TaskID, &status, &job.Priority, &job.IsEmergency,
		&job.Lat, &job.Lng, &job.Address, &job.ContactPhone, &job.RequestedFor,
		&job.SLAResponseMinutes, &job.SLAArrivalMinutes, &job.SLACompletionMinutes, &job.SLAPenaltyCents,
		&job.QuotedPriceCents, &job.FinalPriceCents, &job.ProposedPriceCents, &job.PriceAgreedAt,
		&job.StartedAt, &job.CompletedAt, &job.CancelledAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return Job{}, err
	}

	job.Status = domain.Status(status)
	return job, nil
}

func scanJobs(rows pgx.Rows) ([]Job, error) {
	jobs := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
