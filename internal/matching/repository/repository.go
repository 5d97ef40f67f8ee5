package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vakwerk_backend/platform/apperr"
)

const uniqueViolationCode = "23505"

const assignmentColumns = `id, job_id, provider_id, status, match_score,
		respond_by, arrive_by, offered_at, responded_at, cancelled_at, cancel_reason`

// Repo implements Store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new assignment repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Store.
var _ Store = (*Repo)(nil)

// Create inserts a new offered assignment. The partial unique index on
// active assignments turns a concurrent offer into a conflict.
func (r *Repo) Create(ctx context.Context, assignment Assignment) (Assignment, error) {
	query := `
		INSERT INTO job_assignments (job_id, provider_id, status, match_score, respond_by, arrive_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, offered_at`

	err := r.pool.QueryRow(ctx, query,
		assignment.JobID, assignment.ProviderID, StatusOffered,
		assignment.MatchScore, assignment.RespondBy, assignment.ArriveBy,
	).Scan(&assignment.ID, &assignment.OfferedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Assignment{}, apperr.Conflict("job already has an active assignment")
		}
		return Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	assignment.Status = StatusOffered
	return assignment, nil
}

// GetByID retrieves an assignment by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM job_assignments WHERE id = $1`

	assignment, err := scanAssignment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, apperr.NotFound("assignment not found")
		}
		return Assignment{}, fmt.Errorf("get assignment by id: %w", err)
	}
	return assignment, nil
}

// GetActiveByJob returns the job's offered or accepted assignment.
func (r *Repo) GetActiveByJob(ctx context.Context, jobID uuid.UUID) (Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM job_assignments
		WHERE job_id = $1 AND status IN ('offered', 'accepted')`

	assignment, err := scanAssignment(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, apperr.NotFound("job has no active assignment")
		}
		return Assignment{}, fmt.Errorf("get active assignment: %w", err)
	}
	return assignment, nil
}

// Respond moves an offered assignment to accepted or declined.
func (r *Repo) Respond(ctx context.Context, id uuid.UUID, toStatus string) (Assignment, error) {
	if toStatus != StatusAccepted && toStatus != StatusDeclined {
		return Assignment{}, apperr.Validation(fmt.Sprintf("invalid response status %q", toStatus))
	}

	query := `
		UPDATE job_assignments
		SET status = $2, responded_at = now()
		WHERE id = $1 AND status = 'offered'
		RETURNING ` + assignmentColumns

	assignment, err := scanAssignment(r.pool.QueryRow(ctx, query, id, toStatus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, apperr.Conflict("assignment is no longer awaiting a response")
		}
		return Assignment{}, fmt.Errorf("respond to assignment: %w", err)
	}
	return assignment, nil
}

// Cancel terminates an active assignment with a reason.
func (r *Repo) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE job_assignments
		SET status = 'cancelled', cancelled_at = now(), cancel_reason = $2
		WHERE id = $1 AND status IN ('offered', 'accepted')`

	tag, err := r.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("cancel assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("assignment is not active")
	}
	return nil
}

// Expire marks an offered assignment expired.
func (r *Repo) Expire(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE job_assignments SET status = 'expired' WHERE id = $1 AND status = 'offered'`, id)
	if err != nil {
		return fmt.Errorf("expire assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("assignment is not awaiting a response")
	}
	return nil
}

// ListOfferedPastRespondBy returns stale offers for the SLA sweep.
func (r *Repo) ListOfferedPastRespondBy(ctx context.Context, cutoff time.Time) ([]Assignment, error) {
	return r.listPastDeadline(ctx,
		`SELECT `+assignmentColumns+` FROM job_assignments
			WHERE status = 'offered' AND respond_by < $1`, cutoff)
}

// ListAcceptedPastArriveBy returns overdue arrivals for the SLA sweep.
func (r *Repo) ListAcceptedPastArriveBy(ctx context.Context, cutoff time.Time) ([]Assignment, error) {
	return r.listPastDeadline(ctx,
		`SELECT `+assignmentColumns+` FROM job_assignments
			WHERE status = 'accepted' AND arrive_by < $1`, cutoff)
}

func (r *Repo) listPastDeadline(ctx context.Context, query string, cutoff time.Time) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list assignments past deadline: %w", err)
	}
	defer rows.Close()

	assignments := make([]Assignment, 0)
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(
		&a.ID, &a.JobID, &a.ProviderID, &a.Status, &a.MatchScore,
		&a.RespondBy, &a.ArriveBy, &a.OfferedAt, &a.RespondedAt, &a.CancelledAt, &a.CancelReason,
	)
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
