package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"weather-monitor/internal/models"
	"weather-monitor/internal/repository"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

// maxReportedErrors bounds ImportResult.Errors
const maxReportedErrors = 100

// ImportService loads readings from tab-separated files into the store
type ImportService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// ImportResult contains import statistics
type ImportResult struct {
	TotalFiles        int           `json:"total_files"`
	TotalRecords      int           `json:"total_records"`
	SuccessfulRecords int           `json:"successful_records"`
	FailedRecords     int           `json:"failed_records"`
	Duration          time.Duration `json:"duration"`
	Errors            []string      `json:"errors"`
}

func (r *ImportResult) addError(msg string) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// NewImportService creates a new import service
func NewImportService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ImportService {
	return &ImportService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ImportDirectory imports every *.tsv file in dir
func (s *ImportService) ImportDirectory(ctx context.Context, dir string) (*ImportResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[IMPORT_START] Starting reading import", logging.Fields{
		"data_dir": dir,
		"stage":    "INITIALIZATION",
	})

	files, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no data files found in %s", dir)
	}

	result := &ImportResult{
		TotalFiles: len(files),
		Errors:     make([]string, 0),
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := s.importFile(ctx, path, result); err != nil {
			result.addError(fmt.Sprintf("failed to import %s: %v", path, err))
			s.metrics.RecordImportError("file_error")
			s.logger.Error(ctx, "[IMPORT_FILE_ERROR] File import failed", logging.Fields{
				"file_path": path,
				"stage":     "FILE_PROCESSING",
			}, err)
			continue
		}
	}

	result.Duration = time.Since(startTime)
	s.metrics.ImportDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[IMPORT_COMPLETE] Reading import completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// ImportFile imports a single file
func (s *ImportService) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	startTime := time.Now()
	result := &ImportResult{TotalFiles: 1, Errors: make([]string, 0)}

	if err := s.importFile(ctx, path, result); err != nil {
		s.metrics.RecordImportError("file_error")
		return result, err
	}

	result.Duration = time.Since(startTime)
	s.metrics.ImportDuration.Observe(result.Duration.Seconds())
	return result, nil
}

// importFile adds the counts of one file to result. Bad lines are counted
// and skipped; a storage failure aborts the file.
func (s *ImportService) importFile(ctx context.Context, path string, result *ImportResult) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	name := filepath.Base(path)
	imported := 0
	lineNo := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		result.TotalRecords++

		key, reading, err := ParseImportLine(line)
		if err != nil {
			result.FailedRecords++
			result.addError(fmt.Sprintf("%s:%d: %v", name, lineNo, err))

			var validationErr *models.ValidationError
			if errors.As(err, &validationErr) {
				s.metrics.RecordImportError("validation_error")
			} else {
				s.metrics.RecordImportError("parse_error")
			}
			continue
		}

		if err := s.repo.Save(ctx, key, reading); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		result.SuccessfulRecords++
		s.metrics.ImportRecordsTotal.Inc()
		imported++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	s.logger.Info(ctx, "[IMPORT_FILE_SUCCESS] File imported", logging.Fields{
		"file_path": path,
		"imported":  imported,
		"stage":     "FILE_COMPLETE",
	})

	return nil
}

// ParseImportLine parses one import line.
// Format: YYYY-MM-DD HH:MM:SS\tTEMPERATURE_C\tHUMIDITY\tPRESSURE
func ParseImportLine(line string) (string, models.Reading, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 4 {
		return "", models.Reading{}, fmt.Errorf("invalid line format: expected 4 fields, got %d", len(parts))
	}

	key := strings.TrimSpace(parts[0])
	if _, err := time.Parse(TimeLayout, key); err != nil {
		return "", models.Reading{}, fmt.Errorf("invalid time %q: expected %s", key, TimeLayout)
	}

	values := make([]float64, 3)
	for i, name := range []string{"temperature", "humidity", "pressure"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return "", models.Reading{}, fmt.Errorf("invalid %s: %w", name, err)
		}
		values[i] = v
	}

	reading := models.Reading{
		TemperatureCelsius: values[0],
		Humidity:           values[1],
		Pressure:           values[2],
	}
	if err := reading.Validate(); err != nil {
		return "", models.Reading{}, err
	}

	return key, reading, nil
}
