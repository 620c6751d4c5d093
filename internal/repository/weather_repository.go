package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"weather-monitor/internal/models"
	"weather-monitor/pkg/database"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

// WeatherRepository persists readings in the weather_data table
type WeatherRepository interface {
	// Save inserts one row keyed by time
	Save(ctx context.Context, time string, reading models.Reading) error
	// Load returns the first row stored under time
	Load(ctx context.Context, time string) (models.Reading, error)
	// ListRecent returns up to limit rows, newest time first
	ListRecent(ctx context.Context, limit int) ([]models.PersistedRow, error)
	// Summary aggregates every stored row
	Summary(ctx context.Context) (*models.Summary, error)

	HealthCheck(ctx context.Context) error
}

// weatherRepository implements WeatherRepository on a per-call connector
type weatherRepository struct {
	connector *database.Connector
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewWeatherRepository creates a new weather repository
func NewWeatherRepository(connector *database.Connector, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		connector: connector,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Save stores reading under the given time key. Duplicate keys are allowed.
func (r *weatherRepository) Save(ctx context.Context, time string, reading models.Reading) error {
	query := `
		INSERT INTO weather_data (time, temperature, humidity, pressure)
		VALUES (?, ?, ?, ?)
	`

	row := models.NewPersistedRow(time, reading)
	err := r.connector.WithConn(ctx, func(ctx context.Context, conn *database.Conn) error {
		_, err := conn.ExecContext(ctx, "insert_reading", query,
			row.Time,
			row.Temperature,
			row.Humidity,
			row.Pressure,
		)
		return err
	})

	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	r.logger.Debug(ctx, "[REPO_SAVE] Reading stored", logging.Fields{
		"time":        time,
		"temperature": row.Temperature,
	})

	return nil
}

// Load retrieves the reading stored under time
func (r *weatherRepository) Load(ctx context.Context, time string) (models.Reading, error) {
	query := `
		SELECT time, temperature, humidity, pressure
		FROM weather_data
		WHERE time = ?
		LIMIT 1
	`

	var row models.PersistedRow
	err := r.connector.WithConn(ctx, func(ctx context.Context, conn *database.Conn) error {
		return conn.GetContext(ctx, "get_reading", &row, query, time)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return models.Reading{}, &NotFoundError{
			Resource: "weather_data",
			ID:       time,
		}
	}

	if err != nil {
		return models.Reading{}, &StorageError{Op: "load", Err: err}
	}

	return row.Reading(), nil
}

// ListRecent retrieves the newest rows ordered by time key
func (r *weatherRepository) ListRecent(ctx context.Context, limit int) ([]models.PersistedRow, error) {
	query := `
		SELECT time, temperature, humidity, pressure
		FROM weather_data
		ORDER BY time DESC
		LIMIT ?
	`

	rows := []models.PersistedRow{}
	err := r.connector.WithConn(ctx, func(ctx context.Context, conn *database.Conn) error {
		return conn.SelectContext(ctx, "list_recent", &rows, query, limit)
	})

	if err != nil {
		return nil, &StorageError{Op: "list_recent", Err: err}
	}

	return rows, nil
}

// Summary calculates aggregates over every stored row
func (r *weatherRepository) Summary(ctx context.Context) (*models.Summary, error) {
	query := `
		SELECT
			COUNT(*) AS count,
			AVG(temperature) AS avg_temperature,
			MIN(temperature) AS min_temperature,
			MAX(temperature) AS max_temperature,
			AVG(humidity) AS avg_humidity,
			AVG(pressure) AS avg_pressure
		FROM weather_data
	`

	var summary models.Summary
	err := r.connector.WithConn(ctx, func(ctx context.Context, conn *database.Conn) error {
		return conn.GetContext(ctx, "summary", &summary, query)
	})

	if err != nil {
		return nil, &StorageError{Op: "summary", Err: err}
	}

	return &summary, nil
}

// HealthCheck performs a repository health check
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	if err := r.connector.HealthCheck(ctx); err != nil {
		return &StorageError{Op: "health_check", Err: err}
	}
	return nil
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// StorageError wraps a failure to reach or use the database
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsTransient returns true; the same call may succeed once the database is reachable
func (e *StorageError) IsTransient() bool {
	return true
}
