package repository

import (
	"context"
	"fmt"

	"weather-monitor/internal/models"
)

// MockRepository implements WeatherRepository for testing.
// All methods panic if the corresponding function is not set,
// so tests configure exactly the calls they expect.
type MockRepository struct {
	SaveFunc        func(ctx context.Context, time string, reading models.Reading) error
	LoadFunc        func(ctx context.Context, time string) (models.Reading, error)
	ListRecentFunc  func(ctx context.Context, limit int) ([]models.PersistedRow, error)
	SummaryFunc     func(ctx context.Context) (*models.Summary, error)
	HealthCheckFunc func(ctx context.Context) error
}

func (m *MockRepository) Save(ctx context.Context, time string, reading models.Reading) error {
	if m.SaveFunc == nil {
		panic(fmt.Sprintf("MockRepository.Save called but SaveFunc not set (time: %s)", time))
	}
	return m.SaveFunc(ctx, time, reading)
}

func (m *MockRepository) Load(ctx context.Context, time string) (models.Reading, error) {
	if m.LoadFunc == nil {
		panic(fmt.Sprintf("MockRepository.Load called but LoadFunc not set (time: %s)", time))
	}
	return m.LoadFunc(ctx, time)
}

func (m *MockRepository) ListRecent(ctx context.Context, limit int) ([]models.PersistedRow, error) {
	if m.ListRecentFunc == nil {
		panic(fmt.Sprintf("MockRepository.ListRecent called but ListRecentFunc not set (limit: %d)", limit))
	}
	return m.ListRecentFunc(ctx, limit)
}

func (m *MockRepository) Summary(ctx context.Context) (*models.Summary, error) {
	if m.SummaryFunc == nil {
		panic("MockRepository.Summary called but SummaryFunc not set")
	}
	return m.SummaryFunc(ctx)
}

func (m *MockRepository) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc == nil {
		panic("MockRepository.HealthCheck called but HealthCheckFunc not set")
	}
	return m.HealthCheckFunc(ctx)
}
