package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds database connection configuration
type Config struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	QueryTimeout time.Duration
}

// DSN builds the driver-specific connection string
func (c *Config) DSN() (string, error) {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			quoteDSNValue(c.Host),
			c.Port,
			quoteDSNValue(c.User),
			quoteDSNValue(c.Password),
			quoteDSNValue(c.Database),
			quoteDSNValue(c.SSLMode),
		), nil
	case DriverSQLite:
		if c.SQLitePath == "" {
			return "", errors.New("sqlite path is required")
		}
		path := c.SQLitePath
		if !strings.HasPrefix(path, "file:") {
			path = "file:" + path
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + "_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// quoteDSNValue quotes a libpq key/value so empty values and spaces survive
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// OpenFunc opens a database handle; sqlx.Open by default
type OpenFunc func(driverName, dataSourceName string) (*sqlx.DB, error)

// Connector hands out one connection per call. Nothing is pooled or reused
// across calls: every caller opens, uses and closes its own connection.
type Connector struct {
	config  *Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	open    OpenFunc
}

// NewConnector creates a connector for cfg
func NewConnector(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Connector {
	return NewConnectorWithOpener(cfg, logger, metricsCollector, sqlx.Open)
}

// NewConnectorWithOpener creates a connector that opens handles through open
func NewConnectorWithOpener(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, open OpenFunc) *Connector {
	return &Connector{
		config:  cfg,
		logger:  logger,
		metrics: metricsCollector,
		open:    open,
	}
}

// Driver returns the configured driver name
func (c *Connector) Driver() string {
	return c.config.Driver
}

// Open opens and verifies a dedicated connection. The caller must Close it.
func (c *Connector) Open(ctx context.Context) (*Conn, error) {
	dsn, err := c.config.DSN()
	if err != nil {
		return nil, err
	}

	db, err := c.open(c.config.Driver, dsn)
	if err != nil {
		c.metrics.RecordDBError("open_error")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		c.metrics.RecordDBError("ping_error")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c.metrics.DBConnectionsOpened.Inc()
	c.logger.Debug(ctx, "[DB_OPEN] Connection opened", logging.Fields{
		"driver":   c.config.Driver,
		"host":     c.config.Host,
		"database": c.config.Database,
	})

	return &Conn{
		db:      db,
		logger:  c.logger,
		metrics: c.metrics,
	}, nil
}

// WithConn opens a connection, passes it to fn and closes it afterwards.
// The configured QueryTimeout bounds the whole call.
func (c *Connector) WithConn(ctx context.Context, fn func(ctx context.Context, conn *Conn) error) error {
	if c.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.QueryTimeout)
		defer cancel()
	}

	conn, err := c.Open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	return fn(ctx, conn)
}

// HealthCheck performs a database health check
func (c *Connector) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.WithConn(pingCtx, func(context.Context, *Conn) error { return nil }); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Conn wraps a single-connection sqlx.DB with monitoring and metrics.
// Queries are written with ? placeholders and rebound for the driver.
type Conn struct {
	db      *sqlx.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// Close closes the connection
func (c *Conn) Close(ctx context.Context) error {
	if err := c.db.Close(); err != nil {
		c.logger.Error(ctx, "[DB_CLOSE_ERROR] Failed to close connection", logging.Fields{}, err)
		return err
	}
	return nil
}

// ExecContext executes a command with context and metrics
func (c *Conn) ExecContext(ctx context.Context, queryType, query string, args ...interface{}) (sql.Result, error) {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		c.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())

		c.logger.Debug(ctx, "[DB_EXEC] Command executed", logging.Fields{
			"query_type":  queryType,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	result, err := c.db.ExecContext(ctx, c.db.Rebind(query), args...)
	if err != nil {
		c.metrics.RecordDBError("exec_error")
		c.logger.Error(ctx, "[DB_EXEC_ERROR] Command failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return nil, err
	}

	return result, nil
}

// GetContext executes a query that returns a single row.
// sql.ErrNoRows is returned unlogged; it is an expected outcome.
func (c *Conn) GetContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		c.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	}()

	err := c.db.GetContext(ctx, dest, c.db.Rebind(query), args...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.metrics.RecordDBError("get_error")
		c.logger.Error(ctx, "[DB_GET_ERROR] Get query failed", logging.Fields{
			"query_type": queryType,
		}, err)
	}

	return err
}

// SelectContext executes a query that returns multiple rows
func (c *Conn) SelectContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		c.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	}()

	err := c.db.SelectContext(ctx, dest, c.db.Rebind(query), args...)
	if err != nil {
		c.metrics.RecordDBError("select_error")
		c.logger.Error(ctx, "[DB_SELECT_ERROR] Select query failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return err
	}

	return nil
}
