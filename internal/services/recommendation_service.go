package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admissions-platform/internal/analysis"
	"admissions-platform/internal/cache"
	"admissions-platform/internal/models"
	"admissions-platform/internal/repository"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

// RecommendRequest asks for programs around a student's rank
type RecommendRequest struct {
	Rank      int              `json:"rank" validate:"gt=0"`
	Province  string           `json:"province" validate:"required,max=50"`
	ExamTrack models.ExamTrack `json:"exam_track" validate:"required,oneof=physics history"`
}

// RecommendationResult echoes the request next to the bucketed programs
type RecommendationResult struct {
	Rank          int              `json:"rank"`
	Province      string           `json:"province"`
	ExamTrack     models.ExamTrack `json:"exam_track"`
	LookbackYears int              `json:"lookback_years"`
	analysis.Recommendation
}

// RecommendationService buckets programs into rush, match and safety choices
type RecommendationService struct {
	repo          repository.AdmissionRepository
	cache         cache.Service
	cacheTTL      time.Duration
	lookbackYears int
	logger        *logging.StructuredLogger
	metrics       *metrics.Collector
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(repo repository.AdmissionRepository, c cache.Service, cacheTTL time.Duration, lookbackYears int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RecommendationService {
	if c == nil {
		c = cache.Noop{}
	}
	return &RecommendationService{
		repo:          repo,
		cache:         c,
		cacheTTL:      cacheTTL,
		lookbackYears: lookbackYears,
		logger:        logger,
		metrics:       metricsCollector,
	}
}

// Recommend averages each program's rank over the configured lookback window
// and buckets the programs relative to req.Rank.
func (s *RecommendationService) Recommend(ctx context.Context, req RecommendRequest) (*RecommendationResult, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	averages, err := s.averages(ctx, req.Province, req.ExamTrack)
	if err != nil {
		return nil, err
	}

	rec, err := analysis.Recommend(req.Rank, averages)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[RECOMMEND_COMPLETE] Recommendations computed", logging.Fields{
		"province":   req.Province,
		"exam_track": string(req.ExamTrack),
		"rank":       req.Rank,
		"programs":   len(averages),
		"rush":       len(rec.Rush),
		"match":      len(rec.Match),
		"safety":     len(rec.Safety),
	})

	return &RecommendationResult{
		Rank:           req.Rank,
		Province:       req.Province,
		ExamTrack:      req.ExamTrack,
		LookbackYears:  s.lookbackYears,
		Recommendation: *rec,
	}, nil
}

func (s *RecommendationService) averages(ctx context.Context, province string, track models.ExamTrack) ([]analysis.ProgramAverage, error) {
	cacheKey := fmt.Sprintf("%s%s|%s|%d", recommendCachePrefix, province, track, s.lookbackYears)

	var averages []analysis.ProgramAverage
	err := s.cache.Get(ctx, cacheKey, &averages)
	switch {
	case err == nil:
		s.metrics.RecordCacheResult("hit")
		return averages, nil
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.RecordCacheResult("miss")
	default:
		s.metrics.RecordCacheResult("error")
		s.logger.Warn(ctx, "[RECOMMEND_CACHE_ERROR] Cache read failed, querying", logging.Fields{
			"cache_key": cacheKey,
			"error":     err.Error(),
		})
	}

	averages, err = s.repo.AverageRanks(ctx, province, track, s.lookbackYears)
	if err != nil {
		return nil, fmt.Errorf("failed to load average ranks: %w", err)
	}

	if s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, averages, s.cacheTTL); err != nil {
			s.logger.Warn(ctx, "[RECOMMEND_CACHE_ERROR] Cache write failed", logging.Fields{
				"cache_key": cacheKey,
				"error":     err.Error(),
			})
		}
	}

	return averages, nil
}
