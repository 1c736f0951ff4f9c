package services

import (
	"context"

	"admissions-platform/internal/models"
	"admissions-platform/internal/repository"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

// ProgramService handles program catalogue lookups
type ProgramService struct {
	repo    repository.AdmissionRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewProgramService creates a new program service
func NewProgramService(repo repository.AdmissionRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ProgramService {
	return &ProgramService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ListPrograms retrieves programs with filtering
func (s *ProgramService) ListPrograms(ctx context.Context, filter repository.ProgramFilter) ([]*models.Program, int, error) {
	return s.repo.ListPrograms(ctx, filter)
}

// HealthCheck reports whether the backing store is reachable
func (s *ProgramService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
