package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vakwerk_backend/platform/apperr"
)

const proposalColumns = `id, job_id, proposer_id, role, price_cents, description,
		status, responded_by, created_at, responded_at`

// ProposalRepo implements ProposalStore with PostgreSQL.
type ProposalRepo struct {
	pool *pgxpool.Pool
}

// NewProposalRepo creates a new proposal repository.
func NewProposalRepo(pool *pgxpool.Pool) *ProposalRepo {
	return &ProposalRepo{pool: pool}
}

// Compile-time check that ProposalRepo implements ProposalStore.
var _ ProposalStore = (*ProposalRepo)(nil)

// Create inserts a new pending proposal.
func (r *ProposalRepo) Create(ctx context.Context, proposal PriceProposal) (PriceProposal, error) {
	query := `
		INSERT INTO price_proposals (job_id, proposer_id, role, price_cents, description, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		proposal.JobID, proposal.ProposerID, proposal.Role, proposal.PriceCents, proposal.Description,
	).Scan(&proposal.ID, &proposal.CreatedAt)
	if err != nil {
		return PriceProposal{}, fmt.Errorf("create proposal: %w", err)
	}
	proposal.Status = ProposalPending
	return proposal, nil
}

// GetByID retrieves a proposal by its ID.
func (r *ProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (PriceProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM price_proposals WHERE id = $1`

	proposal, err := scanProposal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PriceProposal{}, apperr.NotFound("proposal not found")
		}
		return PriceProposal{}, fmt.Errorf("get proposal by id: %w", err)
	}
	return proposal, nil
}

// ListByJob returns a job's proposals, newest first.
func (r *ProposalRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]PriceProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM price_proposals
		WHERE job_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	proposals := make([]PriceProposal, 0)
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return proposals, nil
}

// Respond moves a pending proposal to accepted or rejected.
func (r *ProposalRepo) Respond(ctx context.Context, id uuid.UUID, status string, responderID uuid.UUID) (PriceProposal, error) {
	if status != ProposalAccepted && status != ProposalRejected {
		return PriceProposal{}, apperr.Validation(fmt.Sprintf("invalid proposal response %q", status))
	}

	query := `
		UPDATE price_proposals
		SET status = $2, responded_by = $3, responded_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + proposalColumns

	proposal, err := scanProposal(r.pool.QueryRow(ctx, query, id, status, responderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PriceProposal{}, apperr.InvalidState("proposal is not pending")
		}
		return PriceProposal{}, fmt.Errorf("respond to proposal: %w", err)
	}
	return proposal, nil
}

// Accept moves a pending proposal to accepted and locks the agreed price
// onto the job in one transaction, so the proposal flip, the job update,
// and the history entry commit together or not at all.
func (r *ProposalRepo) Accept(ctx context.Context, id uuid.UUID, responderID uuid.UUID, jobStatus string, agreedAt time.Time) (PriceProposal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return PriceProposal{}, fmt.Errorf("begin accept transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE price_proposals
		SET status = 'accepted', responded_by = $2, responded_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + proposalColumns

	proposal, err := scanProposal(tx.QueryRow(ctx, query, id, responderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PriceProposal{}, apperr.InvalidState("proposal is not pending")
		}
		return PriceProposal{}, fmt.Errorf("accept proposal: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE jobs
		SET proposed_price_cents = $2, price_agreed_at = $3, status = 'SCHEDULED', updated_at = now()
		WHERE id = $1 AND status = $4`,
		proposal.JobID, proposal.PriceCents, agreedAt, jobStatus)
	if err != nil {
		return PriceProposal{}, fmt.Errorf("lock agreed price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return PriceProposal{}, apperr.Conflict("job status changed concurrently")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pricing_events (job_id, event_type, price_cents, multiplier)
		VALUES ($1, $2, $3, 1.0)`,
		proposal.JobID, EventPriceAccepted, proposal.PriceCents)
	if err != nil {
		return PriceProposal{}, fmt.Errorf("append pricing event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return PriceProposal{}, fmt.Errorf("commit accept transaction: %w", err)
	}
	return proposal, nil
}

// SupersedeByJob retires every pending or accepted proposal for the job.
func (r *ProposalRepo) SupersedeByJob(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE price_proposals
		SET status = 'superseded'
		WHERE job_id = $1 AND status IN ('pending', 'accepted')`, jobID)
	if err != nil {
		return fmt.Errorf("supersede proposals: %w", err)
	}
	return nil
}

func scanProposal(row pgx.Row) (PriceProposal, error) {
	var p PriceProposal
	err := row.Scan(
		&p.ID, &p.JobID, &p.ProposerID, &p.Role, &p.PriceCents, &p.Description,
		&p.Status, &p.RespondedBy, &p.CreatedAt, &p.RespondedAt,
	)
	if err != nil {
		return PriceProposal{}, err
	}
	return p, nil
}

// EventRepo implements EventStore with PostgreSQL. Append-only.
type EventRepo struct {
	pool *pgxpool.Pool
}

// NewEventRepo creates a new pricing event repository.
func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Compile-time check that EventRepo implements EventStore.
var _ EventStore = (*EventRepo)(nil)

// Append records one pricing event.
func (r *EventRepo) Append(ctx context.Context, event PricingEvent) (PricingEvent, error) {
	query := `
		INSERT INTO pricing_events (job_id, event_type, price_cents, multiplier, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		event.JobID, event.EventType, event.PriceCents, event.Multiplier, event.Detail,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return PricingEvent{}, fmt.Errorf("append pricing event: %w", err)
	}
	return event, nil
}

// Latest returns the job's most recent pricing event.
func (r *EventRepo) Latest(ctx context.Context, jobID uuid.UUID) (PricingEvent, error) {
	query := `
		SELECT id, job_id, event_type, price_cents, multiplier, detail, created_at
		FROM pricing_events
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var e PricingEvent
	err := r.pool.QueryRow(ctx, query, jobID).Scan(
		&e.ID, &e.JobID, &e.EventType, &e.PriceCents, &e.Multiplier, &e.Detail, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PricingEvent{}, apperr.NotFound("job has no price history")
		}
		return PricingEvent{}, fmt.Errorf("latest pricing event: %w", err)
	}
	return e, nil
}
