package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"weather-monitor/internal/config"
	"weather-monitor/internal/repository"
	"weather-monitor/internal/services"
	"weather-monitor/pkg/database"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "", "Directory containing .tsv weather files (default: IMPORT_DIR)")
	file := flag.String("file", "", "Import a single file instead of a directory")
	showSummary := flag.Bool("summary", false, "Print the stored summary after importing")
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

	if *dataDir == "" {
		*dataDir = cfg.Weather.ImportDir
	}

	logger := cfg.Logging.NewLogger("weather-importer", version)

	ctx := context.Background()
	logger.Info(ctx, "[IMPORTER_START] Starting weather data import", logging.Fields{
		"version":  version,
		"data_dir": *dataDir,
		"file":     *file,
	})

	metricsCollector := metrics.NewCollector("weather_importer")
	connector := database.NewConnector(cfg.Database.Connection(), logger, metricsCollector)

	if err := connector.HealthCheck(ctx); err != nil {
		logger.Fatal(ctx, "[IMPORTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}

	weatherRepo := repository.NewWeatherRepository(connector, logger, metricsCollector)
	importService := services.NewImportService(weatherRepo, logger, metricsCollector)
	statsService := services.NewStatisticsService(weatherRepo, logger, metricsCollector)

	var result *services.ImportResult
	if *file != "" {
		result, err = importService.ImportFile(ctx, *file)
	} else {
		result, err = importService.ImportDirectory(ctx, *dataDir)
	}
	if err != nil {
		logger.Fatal(ctx, "[IMPORT_ERROR] Import failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("IMPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:        %d\n", result.TotalFiles)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Records/Second:     %.2f\n", float64(result.SuccessfulRecords)/secs)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	if *showSummary {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Println("STORED SUMMARY")
		fmt.Println(strings.Repeat("=", 80))

		summary, err := statsService.Summary(ctx)
		if err != nil {
			logger.Error(ctx, "[SUMMARY_ERROR] Summary failed", logging.Fields{}, err)
			fmt.Printf("Summary failed: %v\n", err)
		} else {
			printSummary(summary)
		}
	}

	logger.Info(ctx, "[IMPORTER_COMPLETE] Import completed", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})
}

func printSummary(s *services.StoredSummary) {
	fmt.Printf("Rows:               %d\n", s.Count)
	if s.Count == 0 {
		return
	}
	printValue("Avg Temperature:", s.AvgTemperature, "°C")
	printValue("Min Temperature:", s.MinTemperature, "°C")
	printValue("Max Temperature:", s.MaxTemperature, "°C")
	printValue("Avg Humidity:", s.AvgHumidity, "%")
	printValue("Avg Pressure:", s.AvgPressure, " hPa")
	if s.Condition != "" {
		fmt.Printf("Condition:          %s\n", s.Condition)
	}
}

func printValue(label string, v *float64, unit string) {
	if v == nil {
		return
	}
	fmt.Printf("%-20s%.2f%s\n", label, *v, unit)
}
