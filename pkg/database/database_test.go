package database

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

func newTestDeps() (*logging.StructuredLogger, *metrics.Collector) {
	logger := logging.New(logging.Options{Service: "test", Level: logging.DebugLevel, Output: io.Discard})
	return logger, metrics.NewCollectorWithRegisterer("test", prometheus.NewRegistry())
}

func newSQLiteConnector(t *testing.T) (*Connector, *metrics.Collector) {
	t.Helper()
	logger, collector := newTestDeps()
	cfg := &Config{
		Driver:       DriverSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "weather.db"),
		QueryTimeout: 5 * time.Second,
	}
	return NewConnector(cfg, logger, collector), collector
}

func TestConfigDSN(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		cfg := &Config{Driver: DriverPostgres, Host: "localhost", Port: 5432, User: "weather", Password: "", Database: "weather", SSLMode: "disable"}
		dsn, err := cfg.DSN()
		require.NoError(t, err)
		assert.Equal(t, "host=localhost port=5432 user=weather password='' dbname=weather sslmode=disable", dsn)
	})

	t.Run("postgres quotes special values", func(t *testing.T) {
		cfg := &Config{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "it's secret", Database: "w", SSLMode: "require"}
		dsn, err := cfg.DSN()
		require.NoError(t, err)
		assert.Contains(t, dsn, `password='it\'s secret'`)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &Config{Driver: DriverSQLite, SQLitePath: "/tmp/weather.db"}
		dsn, err := cfg.DSN()
		require.NoError(t, err)
		assert.Equal(t, "file:/tmp/weather.db?_busy_timeout=5000", dsn)
	})

	t.Run("sqlite keeps existing query", func(t *testing.T) {
		cfg := &Config{Driver: DriverSQLite, SQLitePath: "file:weather.db?mode=rwc"}
		dsn, err := cfg.DSN()
		require.NoError(t, err)
		assert.Equal(t, "file:weather.db?mode=rwc&_busy_timeout=5000", dsn)
	})

	t.Run("sqlite without path", func(t *testing.T) {
		_, err := (&Config{Driver: DriverSQLite}).DSN()
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := (&Config{Driver: "oracle"}).DSN()
		assert.ErrorContains(t, err, "unsupported database driver")
	})
}

func TestMigrationsOrder(t *testing.T) {
	up, err := Migrations(DirectionUp)
	require.NoError(t, err)
	require.NotEmpty(t, up)
	assert.Equal(t, "migrations/001_create_weather_data.up.sql", up[0])

	down, err := Migrations(DirectionDown)
	require.NoError(t, err)
	assert.Len(t, down, len(up))

	_, err = Migrations("sideways")
	assert.Error(t, err)
}

func TestConnectorSQLiteRoundTrip(t *testing.T) {
	connector, collector := newSQLiteConnector(t)
	ctx := context.Background()

	applied, err := connector.Migrate(ctx, DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_weather_data.up.sql"}, applied)

	err = connector.WithConn(ctx, func(ctx context.Context, conn *Conn) error {
		_, err := conn.ExecContext(ctx, "insert",
			"INSERT INTO weather_data (time, temperature, humidity, pressure) VALUES (?, ?, ?, ?)",
			"2024-01-01 10:00:00", 12.5, 60.0, 1015.0)
		return err
	})
	require.NoError(t, err)

	var temperature float64
	err = connector.WithConn(ctx, func(ctx context.Context, conn *Conn) error {
		return conn.GetContext(ctx, "get", &temperature,
			"SELECT temperature FROM weather_data WHERE time = ?", "2024-01-01 10:00:00")
	})
	require.NoError(t, err)
	assert.Equal(t, 12.5, temperature)

	var times []string
	err = connector.WithConn(ctx, func(ctx context.Context, conn *Conn) error {
		return conn.SelectContext(ctx, "select", &times, "SELECT time FROM weather_data")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01 10:00:00"}, times)

	// migrate + three calls, one connection each
	assert.Equal(t, float64(4), testutil.ToFloat64(collector.DBConnectionsOpened))

	_, err = connector.Migrate(ctx, DirectionDown)
	require.NoError(t, err)
	assert.NoError(t, connector.HealthCheck(ctx))
}

func TestConnectorOpenFailure(t *testing.T) {
	logger, collector := newTestDeps()
	opener := func(string, string) (*sqlx.DB, error) {
		return nil, errors.New("boom")
	}
	connector := NewConnectorWithOpener(&Config{Driver: DriverSQLite, SQLitePath: "x.db"}, logger, collector, opener)

	called := false
	err := connector.WithConn(context.Background(), func(context.Context, *Conn) error {
		called = true
		return nil
	})

	assert.ErrorContains(t, err, "failed to open database connection")
	assert.False(t, called)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.DBErrorsTotal.WithLabelValues("open_error")))
}

func TestConnectorPingFailure(t *testing.T) {
	logger, collector := newTestDeps()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	opener := func(string, string) (*sqlx.DB, error) {
		return sqlx.NewDb(mockDB, "postgres"), nil
	}
	connector := NewConnectorWithOpener(&Config{Driver: DriverPostgres, Host: "db", Port: 5432}, logger, collector, opener)

	err = connector.HealthCheck(context.Background())
	assert.ErrorContains(t, err, "database health check failed")
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.DBErrorsTotal.WithLabelValues("ping_error")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnRebindsForPostgres(t *testing.T) {
	logger, collector := newTestDeps()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO weather_data \(time\) VALUES \(\$1\)`).
		WithArgs("2024-01-01 10:00:00").
		WillReturnError(errors.New("disk full"))
	mock.ExpectClose()

	opener := func(string, string) (*sqlx.DB, error) {
		return sqlx.NewDb(mockDB, "postgres"), nil
	}
	connector := NewConnectorWithOpener(&Config{Driver: DriverPostgres, Host: "db", Port: 5432}, logger, collector, opener)

	err = connector.WithConn(context.Background(), func(ctx context.Context, conn *Conn) error {
		_, err := conn.ExecContext(ctx, "insert", "INSERT INTO weather_data (time) VALUES (?)", "2024-01-01 10:00:00")
		return err
	})

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.DBErrorsTotal.WithLabelValues("exec_error")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
