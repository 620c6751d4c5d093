package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-monitor/internal/models"
	"weather-monitor/internal/repository"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

func newImportService(repo repository.WeatherRepository) (*ImportService, *metrics.Collector) {
	logger := logging.New(logging.Options{Service: "services-test", Output: io.Discard})
	collector := metrics.NewCollectorWithRegisterer("import_test", prometheus.NewRegistry())
	return NewImportService(repo, logger, collector), collector
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseImportLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantKey     string
		wantReading models.Reading
		wantErr     bool
		validation  bool
	}{
		{
			name:        "valid",
			line:        "2024-03-01 08:30:00\t12.5\t61\t1016.25",
			wantKey:     "2024-03-01 08:30:00",
			wantReading: models.Reading{TemperatureCelsius: 12.5, Humidity: 61, Pressure: 1016.25},
		},
		{name: "too few fields", line: "2024-03-01 08:30:00\t12.5\t61", wantErr: true},
		{name: "bad time", line: "yesterday\t12.5\t61\t1016", wantErr: true},
		{name: "bad number", line: "2024-03-01 08:30:00\twarm\t61\t1016", wantErr: true},
		{name: "humidity out of range", line: "2024-03-01 08:30:00\t12.5\t20\t1016", wantErr: true, validation: true},
		{name: "pressure out of range", line: "2024-03-01 08:30:00\t12.5\t60\t990", wantErr: true, validation: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, reading, err := ParseImportLine(tt.line)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantKey, key)
				assert.Equal(t, tt.wantReading, reading)
				return
			}
			require.Error(t, err)
			var validationErr *models.ValidationError
			assert.Equal(t, tt.validation, errors.As(err, &validationErr))
		})
	}
}

func TestImportDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tsv", "# station a\n2024-03-01 08:00:00\t10\t60\t1015\n\n2024-03-01 09:00:00\t11\t61\t1016\n")
	writeFile(t, dir, "b.tsv", "2024-03-01 10:00:00\t12\t62\t1017\nbroken line\n2024-03-01 11:00:00\t99\t62\t1017\n")
	writeFile(t, dir, "ignored.txt", "2024-03-01 12:00:00\t13\t63\t1018\n")

	saved := map[string]models.Reading{}
	repo := &repository.MockRepository{
		SaveFunc: func(_ context.Context, key string, reading models.Reading) error {
			saved[key] = reading
			return nil
		},
	}
	service, collector := newImportService(repo)

	result, err := service.ImportDirectory(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 5, result.TotalRecords)
	assert.Equal(t, 3, result.SuccessfulRecords)
	assert.Equal(t, 2, result.FailedRecords)
	assert.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "b.tsv:2")
	assert.Len(t, saved, 3)

	assert.Equal(t, float64(3), testutil.ToFloat64(collector.ImportRecordsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.ImportErrorsTotal.WithLabelValues("parse_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.ImportErrorsTotal.WithLabelValues("validation_error")))
}

func TestImportDirectory_Empty(t *testing.T) {
	service, _ := newImportService(&repository.MockRepository{})

	_, err := service.ImportDirectory(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no data files found")
}

func TestImportDirectory_StorageFailureSkipsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tsv", "2024-03-01 08:00:00\t10\t60\t1015\n2024-03-01 09:00:00\t11\t61\t1016\n")

	calls := 0
	repo := &repository.MockRepository{
		SaveFunc: func(context.Context, string, models.Reading) error {
			calls++
			return &repository.StorageError{Op: "save", Err: errors.New("connection refused")}
		},
	}
	service, collector := newImportService(repo)

	result, err := service.ImportDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, result.SuccessfulRecords)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "connection refused")
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.ImportErrorsTotal.WithLabelValues("file_error")))
}

func TestImportFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "one.tsv", "2024-03-01 08:00:00\t-3\t95\t1022\n")

	var got models.Reading
	repo := &repository.MockRepository{
		SaveFunc: func(_ context.Context, _ string, reading models.Reading) error {
			got = reading
			return nil
		},
	}
	service, _ := newImportService(repo)

	result, err := service.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessfulRecords)
	assert.Equal(t, models.Reading{TemperatureCelsius: -3, Humidity: 95, Pressure: 1022}, got)

	_, err = service.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.tsv"))
	assert.ErrorContains(t, err, "failed to open file")
}
