package service

import (
	"context"

	"github.com/google/uuid"

	"vakwerk_backend/internal/catalog/repository"
	"vakwerk_backend/internal/catalog/transport"
	"vakwerk_backend/platform/logger"
)

// Service provides read access to the service task catalog.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new catalog service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetByID retrieves a service task by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ServiceTaskResponse, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ServiceTaskResponse{}, err
	}
	return toResponse(task), nil
}

// GetBySlug retrieves a service task by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (transport.ServiceTaskResponse, error) {
	task, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return transport.ServiceTaskResponse{}, err
	}
	return toResponse(task), nil
}

// ListActive retrieves the bookable catalog.
func (s *Service) ListActive(ctx context.Context) (transport.ServiceTaskListResponse, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return transport.ServiceTaskListResponse{}, err
	}
	return toListResponse(items), nil
}

// List retrieves the full catalog including inactive tasks (admin).
func (s *Service) List(ctx context.Context) (transport.ServiceTaskListResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return transport.ServiceTaskListResponse{}, err
	}
	return toListResponse(items), nil
}

func toResponse(task repository.ServiceTask) transport.ServiceTaskResponse {
	return transport.ServiceTaskResponse{
		ID:                task.ID,
		Slug:              task.Slug,
		Name:              task.Name,
		Level:             task.Level,
		Regulated:         task.Regulated,
		LicenseRequired:   task.LicenseRequired,
		Hazardous:         task.Hazardous,
		Structural:        task.Structural,
		EmergencyEligible: task.EmergencyEligible,
		BasePriceMinCents: task.BasePriceMinCents,
		BasePriceMaxCents: task.BasePriceMaxCents,
		IsActive:          task.IsActive,
	}
}

func toListResponse(items []repository.ServiceTask) transport.ServiceTaskListResponse {
	responses := make([]transport.ServiceTaskResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toResponse(item))
	}
	return transport.ServiceTaskListResponse{Items: responses, Total: len(responses)}
}
