package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"weather-monitor/pkg/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration directions
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Migrations returns the embedded migration file names for direction, in execution order
func Migrations(direction string) ([]string, error) {
	if direction != DirectionUp && direction != DirectionDown {
		return nil, fmt.Errorf("invalid migration direction %q (allowed: up, down)", direction)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*."+direction+".sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	slices.Sort(names)
	if direction == DirectionDown {
		slices.Reverse(names)
	}
	return names, nil
}

// Migrate applies every embedded migration for direction on a single connection
func (c *Connector) Migrate(ctx context.Context, direction string) ([]string, error) {
	names, err := Migrations(direction)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(names))
	err = c.WithConn(ctx, func(ctx context.Context, conn *Conn) error {
		for _, name := range names {
			content, err := migrationFiles.ReadFile(name)
			if err != nil {
				return fmt.Errorf("failed to read migration %s: %w", name, err)
			}

			if _, err := conn.ExecContext(ctx, "migrate_"+direction, string(content)); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", name, err)
			}

			applied = append(applied, strings.TrimPrefix(name, "migrations/"))
			c.logger.Info(ctx, "[DB_MIGRATE] Migration applied", logging.Fields{
				"migration": name,
				"direction": direction,
				"driver":    c.config.Driver,
			})
		}
		return nil
	})

	return applied, err
}
