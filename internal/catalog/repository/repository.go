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

const serviceTaskNotFoundMessage = "service task not found"

const serviceTaskColumns = `id, slug, name, level, regulated, license_required, hazardous, structural,
		emergency_eligible, base_price_min_cents, base_price_max_cents, is_active, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new service task repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a service task by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (ServiceTask, error) {
	query := `SELECT ` + serviceTaskColumns + ` FROM service_tasks WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	task, err := scanServiceTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceTask{}, apperr.NotFound(serviceTaskNotFoundMessage)
		}
		return ServiceTask{}, fmt.Errorf("get service task by id: %w", err)
	}

	return task, nil
}

// GetBySlug retrieves a service task by its slug.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (ServiceTask, error) {
	query := `SELECT ` + serviceTaskColumns + ` FROM service_tasks WHERE slug = $1`

	row := r.pool.QueryRow(ctx, query, slug)
	task, err := scanServiceTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceTask{}, apperr.NotFound(serviceTaskNotFoundMessage)
		}
		return ServiceTask{}, fmt.Errorf("get service task by slug: %w", err)
	}

	return task, nil
}

// List retrieves all service tasks ordered by level then name.
func (r *Repo) List(ctx context.Context) ([]ServiceTask, error) {
	query := `SELECT ` + serviceTaskColumns + ` FROM service_tasks ORDER BY level ASC, name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list service tasks: %w", err)
	}
	defer rows.Close()

	return scanServiceTasks(rows)
}

// ListActive retrieves only active service tasks ordered by level then name.
func (r *Repo) ListActive(ctx context.Context) ([]ServiceTask, error) {
	query := `SELECT ` + serviceTaskColumns + ` FROM service_tasks WHERE is_active = true ORDER BY level ASC, name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active service tasks: %w", err)
	}
	defer rows.Close()

	return scanServiceTasks(rows)
}

func scanServiceTask(row pgx.Row) (ServiceTask, error) {
	var task ServiceTask

	err := row.Scan(
		&task.ID, &task.Slug, &task.Name, &task.Level, &task.Regulated, &task.LicenseRequired,
		&task.Hazardous, &task.Structural, &task.EmergencyEligible,
		&task.BasePriceMinCents, &task.BasePriceMaxCents, &task.IsActive, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return ServiceTask{}, err
	}

	return task, nil
}

func scanServiceTasks(rows pgx.Rows) ([]ServiceTask, error) {
	tasks := make([]ServiceTask, 0)
	for rows.Next() {
		task, err := scanServiceTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service tasks: %w", err)
	}
	return tasks, nil
}
