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

// Cache key prefixes. Ingestion clears both after an import.
const (
	analysisCachePrefix  = "analysis:"
	recommendCachePrefix = "recommend:"
)

// AnalysisResult is the analysis report of one program together with the
// history it was computed from.
type AnalysisResult struct {
	School         string                 `json:"school"`
	Major          string                 `json:"major"`
	Province       string                 `json:"province"`
	ExamTrack      models.ExamTrack       `json:"exam_track"`
	HistoricalData []analysis.Observation `json:"historical_data"`
	analysis.Report
}

// AnalysisService computes per-program rank analytics
type AnalysisService struct {
	repo     repository.AdmissionRepository
	cache    cache.Service
	cacheTTL time.Duration
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewAnalysisService creates a new analysis service. A zero cacheTTL
// disables result caching.
func NewAnalysisService(repo repository.AdmissionRepository, c cache.Service, cacheTTL time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalysisService {
	if c == nil {
		c = cache.Noop{}
	}
	return &AnalysisService{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// Analyze returns the trend, prediction and volatility of a program's cutoff
// ranks. When candidateRank is set, the result also carries the candidate's
// risk tier. A program without ranked history yields a *repository.NotFoundError.
func (s *AnalysisService) Analyze(ctx context.Context, key models.ProgramKey, candidateRank *int) (*AnalysisResult, error) {
	if err := models.Validate(key); err != nil {
		return nil, err
	}
	if candidateRank != nil && *candidateRank <= 0 {
		return nil, &models.ValidationError{
			Field:   "student_rank",
			Value:   fmt.Sprint(*candidateRank),
			Message: "student_rank must be a positive integer",
		}
	}

	timer := s.metrics.NewTimer(s.metrics.AnalysisDuration)
	defer timer.ObserveDuration()

	result, err := s.loadResult(ctx, key)
	if err != nil {
		return nil, err
	}

	if candidateRank != nil {
		if err := result.AssessCandidate(*candidateRank); err != nil {
			return nil, err
		}
		s.metrics.RecordRiskAssessment(string(*result.RiskAssessment))
	}

	s.logger.Debug(ctx, "[ANALYSIS_COMPLETE] Program analyzed", logging.Fields{
		"program":        key.String(),
		"years":          result.Years,
		"trend":          string(result.Trend),
		"predicted_rank": result.PredictedRank,
		"volatility":     string(result.VolatilityLevel),
		"has_candidate":  candidateRank != nil,
	})

	return result, nil
}

// loadResult returns the candidate-independent result, from cache when possible.
func (s *AnalysisService) loadResult(ctx context.Context, key models.ProgramKey) (*AnalysisResult, error) {
	cacheKey := analysisCachePrefix + key.String()

	var cached AnalysisResult
	err := s.cache.Get(ctx, cacheKey, &cached)
	switch {
	case err == nil:
		s.metrics.RecordCacheResult("hit")
		cached.RiskAssessment = nil
		return &cached, nil
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.RecordCacheResult("miss")
	default:
		s.metrics.RecordCacheResult("error")
		s.logger.Warn(ctx, "[ANALYSIS_CACHE_ERROR] Cache read failed, computing", logging.Fields{
			"program": key.String(),
			"error":   err.Error(),
		})
	}

	history, err := s.repo.GetHistory(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) == 0 {
		return nil, &repository.NotFoundError{
			Resource: "admission_history",
			ID:       key.String(),
		}
	}

	report, err := analysis.Analyze(history, nil)
	if err != nil {
		s.logger.Error(ctx, "[ANALYSIS_INVALID_HISTORY] Stored history violates analysis contract", logging.Fields{
			"program": key.String(),
			"years":   len(history),
		}, err)
		return nil, fmt.Errorf("failed to analyze %s: %w", key, err)
	}

	s.metrics.RecordAnalysis(len(history), string(report.Trend), string(report.VolatilityLevel))

	result := &AnalysisResult{
		School:         key.School,
		Major:          key.Major,
		Province:       key.Province,
		ExamTrack:      key.ExamTrack,
		HistoricalData: history,
		Report:         *report,
	}

	if s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn(ctx, "[ANALYSIS_CACHE_ERROR] Cache write failed", logging.Fields{
				"program": key.String(),
				"error":   err.Error(),
			})
		}
	}

	return result, nil
}
