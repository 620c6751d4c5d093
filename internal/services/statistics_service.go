package services

import (
	"context"
	"fmt"
	"time"

	"weather-monitor/internal/models"
	"weather-monitor/internal/repository"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

// Bounds for ListRecent page sizes
const (
	DefaultRecentLimit = 100
	MaxRecentLimit     = 1000
)

// StatisticsService summarizes the stored readings
type StatisticsService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// StoredSummary is the aggregate over stored rows plus the condition of the average temperature
type StoredSummary struct {
	*models.Summary
	Condition models.Condition `json:"condition,omitempty"`
}

// Summary aggregates every stored reading
func (s *StatisticsService) Summary(ctx context.Context) (*StoredSummary, error) {
	startTime := time.Now()

	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize readings: %w", err)
	}

	result := &StoredSummary{Summary: summary}
	if condition, ok := summary.Condition(); ok {
		result.Condition = condition
	}

	s.logger.Debug(ctx, "[STATS_SUMMARY] Stored readings summarized", logging.Fields{
		"count":       summary.Count,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	return result, nil
}

// Recent returns the newest stored rows. limit is clamped to
// [1, MaxRecentLimit]; zero or less means DefaultRecentLimit.
func (s *StatisticsService) Recent(ctx context.Context, limit int) ([]models.PersistedRow, error) {
	limit = ClampLimit(limit)

	rows, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent readings: %w", err)
	}

	return rows, nil
}

// ClampLimit applies the default and maximum page size
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
