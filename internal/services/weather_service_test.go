package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-monitor/internal/models"
	"weather-monitor/internal/repository"
	"weather-monitor/internal/weather"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

// scriptedCollector returns its readings in order, repeating the last one
type scriptedCollector struct {
	source   models.Source
	readings []models.Reading
	calls    int
}

func (c *scriptedCollector) Source() models.Source { return c.source }

func (c *scriptedCollector) Collect() models.Reading {
	i := min(c.calls, len(c.readings)-1)
	c.calls++
	return c.readings[i]
}

var fixedNow = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

type serviceFixture struct {
	service *WeatherService
	record  *weather.Record
	repo    *repository.MockRepository
	api     *scriptedCollector
	sensor  *scriptedCollector
	metrics *metrics.Collector
	saved   map[string]models.Reading
}

func newServiceFixture(t *testing.T, freezeAlert bool) *serviceFixture {
	t.Helper()
	logger := logging.New(logging.Options{Service: "services-test", Output: io.Discard})
	collector := metrics.NewCollectorWithRegisterer("services_test", prometheus.NewRegistry())

	f := &serviceFixture{
		record:  weather.NewRecord(logger, collector),
		api:     &scriptedCollector{source: models.SourceAPI, readings: []models.Reading{{TemperatureCelsius: 20, Humidity: 60, Pressure: 1015}}},
		sensor:  &scriptedCollector{source: models.SourceSensor, readings: []models.Reading{{TemperatureCelsius: -5, Humidity: 90, Pressure: 1020}}},
		metrics: collector,
		saved:   map[string]models.Reading{},
	}
	f.repo = &repository.MockRepository{
		SaveFunc: func(_ context.Context, key string, reading models.Reading) error {
			f.saved[key] = reading
			return nil
		},
	}
	f.service = NewWeatherService(f.record, f.repo, logger, collector, WeatherServiceOptions{
		FreezeAlertEnabled: freezeAlert,
		HistorySize:        10,
		AlertLogSize:       100,
		Collectors: map[models.Source]weather.Collector{
			models.SourceAPI:    f.api,
			models.SourceSensor: f.sensor,
		},
		Now: func() time.Time { return fixedNow },
	})
	return f
}

func TestCollect_SetsRecordAndSaves(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	result, err := f.service.Collect(ctx, "API")
	require.NoError(t, err)

	assert.Equal(t, models.SourceAPI, result.Source)
	assert.False(t, result.SourceFallback)
	assert.Equal(t, "2024-03-01 08:30:00", result.Time)
	assert.True(t, result.Persisted)
	assert.Equal(t, models.ConditionCloudy, result.Condition)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, f.api.readings[0], f.record.CurrentReading())
	assert.Equal(t, f.api.readings[0], f.saved["2024-03-01 08:30:00"])
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ReadingsCollectedTotal.WithLabelValues("API")))
}

func TestCollect_SourceSelection(t *testing.T) {
	tests := []struct {
		name         string
		source       string
		want         models.Source
		wantFallback bool
	}{
		{name: "sensor", source: "Sensor", want: models.SourceSensor},
		{name: "case insensitive", source: "sensor", want: models.SourceSensor},
		{name: "empty falls back to api", source: "", want: models.SourceAPI, wantFallback: true},
		{name: "unknown falls back to api", source: "satellite", want: models.SourceAPI, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, false)

			result, err := f.service.Collect(context.Background(), tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Source)
			assert.Equal(t, tt.wantFallback, result.SourceFallback)
		})
	}
}

func TestCollect_StorageFailureKeepsReading(t *testing.T) {
	f := newServiceFixture(t, false)
	f.repo.SaveFunc = func(context.Context, string, models.Reading) error {
		return &repository.StorageError{Op: "save", Err: errors.New("connection refused")}
	}

	result, err := f.service.Collect(context.Background(), "API")
	require.NoError(t, err)

	assert.False(t, result.Persisted)
	assert.Contains(t, result.StorageError, "connection refused")
	assert.True(t, f.record.HasReading())
	assert.Equal(t, f.api.readings[0], f.record.CurrentReading())
}

func TestCollect_FreezeAlert(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	result, err := f.service.Collect(ctx, "API")
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	result, err = f.service.Collect(ctx, "Sensor")
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Temperature is below 0°C. Warning!", result.Warnings[0].Message)
	assert.Equal(t, models.ConditionSnowy, result.Condition)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ThresholdWarningsTotal))
}

func TestAddThreshold_ConvertsToCelsius(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	// 77°F == 25°C, so the 20°C API reading warns
	threshold, err := f.service.AddThreshold(ctx, 77, "Fahrenheit")
	require.NoError(t, err)
	assert.InDelta(t, 25.0, threshold.ThresholdCelsius, 1e-9)
	assert.Equal(t, 1, threshold.Observers)
	assert.Empty(t, threshold.ScaleWarning)

	result, err := f.service.Collect(ctx, "API")
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Temperature is below 25°C. Warning!", result.Warnings[0].Message)
}

func TestAddThreshold_UnknownScaleIsCelsius(t *testing.T) {
	f := newServiceFixture(t, false)

	threshold, err := f.service.AddThreshold(context.Background(), 10, "Rankine")
	require.NoError(t, err)
	assert.Equal(t, models.Celsius, threshold.Scale)
	assert.Equal(t, 10.0, threshold.ThresholdCelsius)
	assert.NotEmpty(t, threshold.ScaleWarning)
}

func TestAddThreshold_ObserverDoesNotReplay(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, err := f.service.Collect(ctx, "Sensor")
	require.NoError(t, err)

	_, err = f.service.AddThreshold(ctx, 0, "Celsius")
	require.NoError(t, err)
	assert.Empty(t, f.service.Alerts(0))
}

func TestReport(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	empty := f.service.Report(ctx, "Celsius")
	assert.False(t, empty.Collected)
	assert.Equal(t, models.ConditionSnowy, empty.Condition)

	_, err := f.service.Collect(ctx, "API")
	require.NoError(t, err)

	report := f.service.Report(ctx, "Fahrenheit")
	assert.True(t, report.Collected)
	assert.Equal(t, 68.0, report.Temperature)
	assert.Equal(t, "°F", report.Label)
	assert.Equal(t, models.ConditionCloudy, report.Condition)
	assert.Equal(t, "Temperature (Fahrenheit): 68°F\nHumidity: 60%\nPressure: 1015 hPa", report.Text)

	kelvin := f.service.Report(ctx, "kelvin")
	assert.InDelta(t, 293.15, kelvin.Temperature, 1e-9)

	fallback := f.service.Report(ctx, "Réaumur")
	assert.Equal(t, models.Celsius, fallback.Scale)
	assert.Equal(t, 20.0, fallback.Temperature)
	assert.NotEmpty(t, fallback.ScaleWarning)
}

func TestSaveCurrent(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, err := f.service.SaveCurrent(ctx, "")
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = f.service.Collect(ctx, "API")
	require.NoError(t, err)

	key, err := f.service.SaveCurrent(ctx, "custom-key")
	require.NoError(t, err)
	assert.Equal(t, "custom-key", key)
	assert.Equal(t, f.api.readings[0], f.saved["custom-key"])

	key, err = f.service.SaveCurrent(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 08:30:00", key)
}

func TestRetrieve_DoesNotTouchRecord(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()
	stored := models.Reading{TemperatureCelsius: 30, Humidity: 55, Pressure: 1014}
	f.repo.LoadFunc = func(_ context.Context, key string) (models.Reading, error) {
		if key == "2024-01-01 00:00:00" {
			return stored, nil
		}
		return models.Reading{}, &repository.NotFoundError{Resource: "weather_data", ID: key}
	}

	_, err := f.service.Collect(ctx, "API")
	require.NoError(t, err)

	reading, condition, err := f.service.Retrieve(ctx, "2024-01-01 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, stored, reading)
	assert.Equal(t, models.ConditionSunny, condition)
	assert.Equal(t, f.api.readings[0], f.record.CurrentReading())

	_, _, err = f.service.Retrieve(ctx, "missing")
	var notFound *repository.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, _, err = f.service.Retrieve(ctx, "")
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestUndo(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, err := f.service.Undo(ctx)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = f.service.Collect(ctx, "API")
	require.NoError(t, err)
	_, err = f.service.Collect(ctx, "Sensor")
	require.NoError(t, err)
	assert.Equal(t, f.sensor.readings[0], f.record.CurrentReading())

	notified := 0
	f.record.AddObserver(weather.ObserverFunc(func(context.Context, models.Reading) error {
		notified++
		return nil
	}))

	report, err := f.service.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20.0, report.Temperature)
	assert.Equal(t, f.api.readings[0], f.record.CurrentReading())
	assert.Equal(t, 1, notified)

	// the first collection has no earlier reading to return to
	_, err = f.service.Undo(ctx)
	assert.ErrorIs(t, err, ErrNothingToUndo)
	assert.Equal(t, f.api.readings[0], f.record.CurrentReading())
}

func TestConvert(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	conversion := f.service.Convert(ctx, 30, "Celsius", "Fahrenheit")
	assert.Equal(t, 86.0, conversion.Result)
	assert.Equal(t, "°F", conversion.Label)
	assert.Empty(t, conversion.ScaleWarning)

	fallback := f.service.Convert(ctx, 300, "kelvin", "furlongs")
	assert.Equal(t, models.Celsius, fallback.To)
	assert.InDelta(t, 26.85, fallback.Result, 1e-9)
	assert.Contains(t, fallback.ScaleWarning, "furlongs")
}

func TestCollect_CancelledContext(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Collect(ctx, "API")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.record.HasReading())
}
