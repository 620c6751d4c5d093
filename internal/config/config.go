package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"weather-monitor/pkg/database"
	"weather-monitor/pkg/logging"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Weather  WeatherConfig
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host         string        `validate:"required"`
	Port         int           `validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	IdleTimeout  time.Duration `validate:"gt=0"`
}

// DatabaseConfig configures the weather_data store
type DatabaseConfig struct {
	Driver       string        `validate:"oneof=postgres sqlite3"`
	Host         string        `validate:"required_if=Driver postgres"`
	Port         int           `validate:"min=0,max=65535"`
	User         string        `validate:"required_if=Driver postgres"`
	Password     string
	Database     string        `validate:"required_if=Driver postgres"`
	SSLMode      string        `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	SQLitePath   string        `validate:"required_if=Driver sqlite3"`
	QueryTimeout time.Duration `validate:"gt=0"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn warning error fatal"`
	Format string `validate:"oneof=json text"`
}

// WeatherConfig configures the weather record and its observers
type WeatherConfig struct {
	// FreezeAlertEnabled registers a 0°C threshold observer at startup
	FreezeAlertEnabled bool
	HistorySize        int `validate:"min=1,max=1000"`
	AlertLogSize       int `validate:"min=1,max=10000"`
	ImportDir          string
}

// LoadConfig reads .env (if present) and the environment
func LoadConfig() (*Config, error) {
	return load(".env")
}

func load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var errs []error
	env := envReader{errs: &errs}

	cfg := &Config{
		Server: ServerConfig{
			Host:         env.String("SERVER_HOST", "0.0.0.0"),
			Port:         env.Int("SERVER_PORT", 8080),
			ReadTimeout:  env.Duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: env.Duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  env.Duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(env.String("DB_DRIVER", database.DriverPostgres)),
			Host:         env.String("DB_HOST", "localhost"),
			Port:         env.Int("DB_PORT", 5432),
			User:         env.String("DB_USER", ""),
			Password:     env.String("DB_PASSWORD", ""),
			Database:     env.String("DB_NAME", "weather"),
			SSLMode:      env.String("DB_SSLMODE", "disable"),
			SQLitePath:   env.String("SQLITE_PATH", ""),
			QueryTimeout: env.Duration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(env.String("LOG_LEVEL", "info")),
			Format: strings.ToLower(env.String("LOG_FORMAT", "json")),
		},
		Weather: WeatherConfig{
			FreezeAlertEnabled: env.Bool("FREEZE_ALERT_ENABLED", true),
			HistorySize:        env.Int("HISTORY_SIZE", 10),
			AlertLogSize:       env.Int("ALERT_LOG_SIZE", 100),
			ImportDir:          env.String("IMPORT_DIR", "./data"),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}

		msgs := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// Connection converts the configuration into connector settings
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Driver:       d.Driver,
		Host:         d.Host,
		Port:         d.Port,
		User:         d.User,
		Password:     d.Password,
		Database:     d.Database,
		SSLMode:      d.SSLMode,
		SQLitePath:   d.SQLitePath,
		QueryTimeout: d.QueryTimeout,
	}
}

// NewLogger builds the structured logger described by the configuration
func (l LoggingConfig) NewLogger(service, version string) *logging.StructuredLogger {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		level = logging.InfoLevel
	}
	return logging.New(logging.Options{
		Service: service,
		Version: version,
		Level:   level,
		Format:  logging.Format(l.Format),
	})
}

// envReader reads typed environment values, collecting parse errors
type envReader struct {
	errs *[]error
}

func (e envReader) String(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e envReader) Int(key string, def int) int {
	v := e.String(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func (e envReader) Bool(key string, def bool) bool {
	v := e.String(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}

func (e envReader) Duration(key string, def time.Duration) time.Duration {
	v := e.String(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}
