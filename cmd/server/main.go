package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weather-monitor/internal/config"
	"weather-monitor/internal/handlers"
	"weather-monitor/internal/repository"
	"weather-monitor/internal/services"
	"weather-monitor/internal/weather"
	"weather-monitor/pkg/database"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

const version = "1.0.0"

func main() {
	migrate := flag.Bool("migrate", false, "Apply schema migrations before serving")
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

	logger := cfg.Logging.NewLogger("weather-api", version)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting weather monitor API server", logging.Fields{
		"server_host":  cfg.Server.Host,
		"server_port":  cfg.Server.Port,
		"db_driver":    cfg.Database.Driver,
		"db_host":      cfg.Database.Host,
		"db_name":      cfg.Database.Database,
		"freeze_alert": cfg.Weather.FreezeAlertEnabled,
	})

	metricsCollector := metrics.NewCollector("weather_monitor")

	// Connections are opened per call; nothing is held between requests
	connector := database.NewConnector(cfg.Database.Connection(), logger, metricsCollector)

	if *migrate {
		applied, err := connector.Migrate(ctx, database.DirectionUp)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to apply migrations", logging.Fields{}, err)
		}
		logger.Info(ctx, "[STARTUP_MIGRATE] Schema up to date", logging.Fields{
			"applied": applied,
		})
	}

	if err := connector.HealthCheck(ctx); err != nil {
		// The record stays usable without storage; saves report the failure
		logger.Warn(ctx, "[STARTUP_DB_UNREACHABLE] Database not reachable, continuing", logging.Fields{
			"error": err.Error(),
		})
	}

	weatherRepo := repository.NewWeatherRepository(connector, logger, metricsCollector)

	// The shared record is created here and handed to everything that needs it
	record := weather.NewRecord(logger, metricsCollector)

	weatherService := services.NewWeatherService(record, weatherRepo, logger, metricsCollector, services.WeatherServiceOptions{
		FreezeAlertEnabled: cfg.Weather.FreezeAlertEnabled,
		HistorySize:        cfg.Weather.HistorySize,
		AlertLogSize:       cfg.Weather.AlertLogSize,
	})
	statsService := services.NewStatisticsService(weatherRepo, logger, metricsCollector)

	weatherHandler := handlers.NewWeatherHandler(weatherService, statsService, weatherRepo, logger, metricsCollector)

	router := mux.NewRouter()
	weatherHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	recovery := gorillahandlers.RecoveryHandler(gorillahandlers.RecoveryLogger(recoveryLogger{logger}))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      recovery(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

// recoveryLogger routes panics caught by the recovery handler into the structured log
type recoveryLogger struct {
	logger *logging.StructuredLogger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error(context.Background(), "[SERVER_PANIC] Handler panicked", logging.Fields{}, fmt.Errorf("%s", fmt.Sprint(v...)))
}
