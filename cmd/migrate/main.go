package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"weather-monitor/internal/config"
	"weather-monitor/pkg/database"
	"weather-monitor/pkg/metrics"
)

func main() {
	direction := flag.String("direction", database.DirectionUp, "Migration direction: up or down")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	names, err := database.Migrations(*direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger("weather-migrate", "1.0.0")
	connector := database.NewConnector(cfg.Database.Connection(), logger, metrics.NewCollector("weather_migrate"))

	ctx := context.Background()
	if err := connector.HealthCheck(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Connected to database successfully")
	for _, name := range names {
		fmt.Printf("Running migration: %s\n", strings.TrimPrefix(name, "migrations/"))
	}

	applied, err := connector.Migrate(ctx, *direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Migration completed successfully (%d applied)\n", len(applied))
}
