package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"weather-monitor/internal/models"
	"weather-monitor/internal/repository"
	"weather-monitor/internal/weather"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

// TimeLayout formats the time key of a stored reading
const TimeLayout = "2006-01-02 15:04:05"

// FreezeThresholdCelsius is the threshold of the built-in freeze alert
const FreezeThresholdCelsius = 0.0

// ErrNothingToUndo is returned by Undo when no collection can be reverted
var ErrNothingToUndo = errors.New("nothing to undo")

// WeatherServiceOptions tunes a WeatherService
type WeatherServiceOptions struct {
	FreezeAlertEnabled bool
	HistorySize        int
	AlertLogSize       int

	// Collectors overrides the collector used per source
	Collectors map[models.Source]weather.Collector
	// Rand seeds the default collectors; nil uses a random seed
	Rand *rand.Rand
	Now  func() time.Time
}

// WeatherService runs the user-facing actions against the shared record.
// Actions are serialized so that no two of them interleave.
type WeatherService struct {
	mu         sync.Mutex
	record     *weather.Record
	repo       repository.WeatherRepository
	collectors map[models.Source]weather.Collector
	history    *weather.History
	alerts     *weather.AlertLog
	sink       weather.WarningSink
	now        func() time.Time
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewWeatherService creates a new weather service around record
func NewWeatherService(record *weather.Record, repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, opts WeatherServiceOptions) *WeatherService {
	collectors := map[models.Source]weather.Collector{
		models.SourceAPI:    weather.NewAPICollector(opts.Rand),
		models.SourceSensor: weather.NewSensorCollector(opts.Rand),
	}
	for source, collector := range opts.Collectors {
		collectors[source] = collector
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &WeatherService{
		record:     record,
		repo:       repo,
		collectors: collectors,
		history:    weather.NewHistory(opts.HistorySize),
		alerts:     weather.NewAlertLog(opts.AlertLogSize),
		now:        now,
		logger:     logger.WithFields(logging.Fields{"component": "weather_service"}),
		metrics:    metricsCollector,
	}
	s.sink = weather.MultiSink(s.alerts, weather.WarningSinkFunc(s.logWarning))

	if opts.FreezeAlertEnabled {
		record.AddThreshold(FreezeThresholdCelsius, s.sink)
	}

	return s
}

func (s *WeatherService) logWarning(ctx context.Context, warning weather.Warning) {
	s.metrics.ThresholdWarningsTotal.Inc()
	s.logger.Warn(ctx, "[THRESHOLD_WARNING] "+warning.Message, logging.Fields{
		"threshold_celsius":   warning.ThresholdCelsius,
		"temperature_celsius": warning.TemperatureCelsius,
	})
}

// CollectResult describes one collection
type CollectResult struct {
	Source         models.Source    `json:"source"`
	SourceFallback bool             `json:"source_fallback,omitempty"`
	Time           string           `json:"time"`
	Reading        models.Reading   `json:"reading"`
	Condition      models.Condition `json:"condition"`
	Persisted      bool             `json:"persisted"`
	StorageError   string           `json:"storage_error,omitempty"`
	Warnings       []weather.Alert  `json:"warnings"`
}

// Collect draws a reading from the named source, applies it to the record
// and stores it under the current time. Unknown sources fall back to API.
// A storage failure is reported in the result; the record keeps the new
// reading either way.
func (s *WeatherService) Collect(ctx context.Context, sourceName string) (*CollectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := models.ParseSource(sourceName)
	if !ok {
		s.logger.Warn(ctx, "[COLLECT_SOURCE_FALLBACK] Unknown data source, using API", logging.Fields{
			"requested": sourceName,
		})
	}

	mark := s.alerts.Mark()
	now := s.now()
	s.history.Push(weather.DataSourceChange{
		Source:  source,
		Memento: s.record.Snapshot(),
		At:      now.UTC(),
	})

	reading := s.collectors[source].Collect()
	s.metrics.RecordReading(string(source), reading.TemperatureCelsius, reading.Humidity, reading.Pressure)
	s.record.SetReading(ctx, reading)

	result := &CollectResult{
		Source:         source,
		SourceFallback: !ok,
		Time:           now.Format(TimeLayout),
		Reading:        reading,
		Condition:      s.record.CurrentCondition(),
		Persisted:      true,
	}

	if err := s.repo.Save(ctx, result.Time, reading); err != nil {
		result.Persisted = false
		result.StorageError = err.Error()
		s.logger.Error(ctx, "[COLLECT_SAVE_ERROR] Reading kept in memory only", logging.Fields{
			"time":   result.Time,
			"source": string(source),
		}, err)
	}

	result.Warnings = s.alerts.Since(mark)

	s.logger.Info(ctx, "[COLLECT] Reading collected", logging.Fields{
		"source":              string(source),
		"temperature_celsius": reading.TemperatureCelsius,
		"condition":           string(result.Condition),
		"persisted":           result.Persisted,
		"warnings":            len(result.Warnings),
	})

	return result, nil
}

// ThresholdResult describes a registered threshold observer
type ThresholdResult struct {
	Threshold        float64      `json:"threshold"`
	Scale            models.Scale `json:"scale"`
	ThresholdCelsius float64      `json:"threshold_celsius"`
	Observers        int          `json:"observers"`
	ScaleWarning     string       `json:"scale_warning,omitempty"`
}

// AddThreshold registers an observer warning below value, given in the named
// scale. Unknown scales are read as Celsius and reported in ScaleWarning.
func (s *WeatherService) AddThreshold(ctx context.Context, value float64, scaleName string) (*ThresholdResult, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, &models.ValidationError{
			Field:   "threshold",
			Value:   fmt.Sprintf("%g", value),
			Message: "threshold must be a finite number",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scale, scaleErr := models.ParseScale(scaleName)
	celsius := models.Convert(value, scale, models.Celsius)
	s.record.AddThreshold(celsius, s.sink)

	result := &ThresholdResult{
		Threshold:        value,
		Scale:            scale,
		ThresholdCelsius: celsius,
		Observers:        s.record.ObserverCount(),
	}
	if scaleErr != nil {
		result.ScaleWarning = scaleErr.Error()
		s.logger.Warn(ctx, "[THRESHOLD_SCALE_FALLBACK] Unknown scale, threshold read as Celsius", logging.Fields{
			"requested": scaleName,
		})
	}

	s.logger.Info(ctx, "[THRESHOLD_ADDED] Threshold observer registered", logging.Fields{
		"threshold_celsius": celsius,
		"observers":         result.Observers,
	})

	return result, nil
}

// Report is the current record rendered in one scale
type Report struct {
	Temperature  float64          `json:"temperature"`
	Scale        models.Scale     `json:"scale"`
	Label        string           `json:"label"`
	Humidity     float64          `json:"humidity"`
	Pressure     float64          `json:"pressure"`
	Condition    models.Condition `json:"condition"`
	Collected    bool             `json:"collected"`
	Text         string           `json:"text"`
	ScaleWarning string           `json:"scale_warning,omitempty"`
}

// Report renders the current reading in the named scale
func (s *WeatherService) Report(ctx context.Context, scaleName string) *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.report(ctx, scaleName)
}

func (s *WeatherService) report(ctx context.Context, scaleName string) *Report {
	scale, scaleErr := models.ParseScale(scaleName)
	snapshot := s.record.Snapshot()
	reading := snapshot.Reading()

	report := &Report{
		Temperature: models.Convert(reading.TemperatureCelsius, models.Celsius, scale),
		Scale:       scale,
		Label:       scale.Label(),
		Humidity:    reading.Humidity,
		Pressure:    reading.Pressure,
		Condition:   snapshot.Condition(),
		Collected:   !snapshot.Empty(),
	}
	report.Text = FormatReport(report)

	if scaleErr != nil {
		report.ScaleWarning = scaleErr.Error()
		s.logger.Warn(ctx, "[REPORT_SCALE_FALLBACK] Unknown scale, reporting in Celsius", logging.Fields{
			"requested": scaleName,
		})
	}

	return report
}

// FormatReport renders a report the way the weather dialog shows it
func FormatReport(r *Report) string {
	return fmt.Sprintf("Temperature (%s): %g%s\nHumidity: %g%%\nPressure: %g hPa",
		r.Scale, r.Temperature, r.Label, r.Humidity, r.Pressure)
}

// Condition returns the condition of the current reading
func (s *WeatherService) Condition() (models.Condition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.record.Snapshot()
	return snapshot.Condition(), !snapshot.Empty()
}

// SaveCurrent stores the current reading under key, or under the current
// time when key is empty. It returns the key used.
func (s *WeatherService) SaveCurrent(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.record.Snapshot()
	if snapshot.Empty() {
		return "", &models.ValidationError{
			Field:   "reading",
			Message: "no reading has been collected yet",
		}
	}

	if key == "" {
		key = s.now().Format(TimeLayout)
	}

	if err := s.repo.Save(ctx, key, snapshot.Reading()); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "[SAVE] Current reading stored", logging.Fields{
		"time": key,
	})

	return key, nil
}

// Retrieve loads the reading stored under key. The record is not modified.
func (s *WeatherService) Retrieve(ctx context.Context, key string) (models.Reading, models.Condition, error) {
	if key == "" {
		return models.Reading{}, "", &models.ValidationError{
			Field:   "time",
			Message: "time is required",
		}
	}

	reading, err := s.repo.Load(ctx, key)
	if err != nil {
		return models.Reading{}, "", err
	}

	return reading, models.Classify(reading.TemperatureCelsius), nil
}

// Undo restores the record to its state before the latest collection.
// Observers are notified with the restored reading. Reverting the very first
// collection is not possible since there is no earlier reading to restore.
func (s *WeatherService) Undo(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	change, ok := s.history.Pop()
	if !ok {
		return nil, ErrNothingToUndo
	}

	if err := s.record.Restore(ctx, change.Memento); err != nil {
		if errors.Is(err, weather.ErrEmptyMemento) {
			return nil, ErrNothingToUndo
		}
		return nil, err
	}

	s.logger.Info(ctx, "[UNDO] Record restored", logging.Fields{
		"source":     string(change.Source),
		"changed_at": change.At.Format(time.RFC3339),
	})

	return s.report(ctx, string(models.Celsius)), nil
}

// Conversion is the result of a unit conversion
type Conversion struct {
	Value        float64      `json:"value"`
	From         models.Scale `json:"from"`
	To           models.Scale `json:"to"`
	Result       float64      `json:"result"`
	Label        string       `json:"label"`
	ScaleWarning string       `json:"scale_warning,omitempty"`
}

// Convert converts value between the named scales; unknown names are read as Celsius
func (s *WeatherService) Convert(ctx context.Context, value float64, fromName, toName string) *Conversion {
	from, fromErr := models.ParseScale(fromName)
	to, toErr := models.ParseScale(toName)

	conversion := &Conversion{
		Value:  value,
		From:   from,
		To:     to,
		Result: models.Convert(value, from, to),
		Label:  to.Label(),
	}

	if err := errors.Join(fromErr, toErr); err != nil {
		conversion.ScaleWarning = err.Error()
		s.logger.Warn(ctx, "[CONVERT_SCALE_FALLBACK] Unknown scale, using Celsius", logging.Fields{
			"from": fromName,
			"to":   toName,
		})
	}

	return conversion
}

// Alerts returns up to n of the most recent threshold warnings
func (s *WeatherService) Alerts(n int) []weather.Alert {
	return s.alerts.Recent(n)
}
