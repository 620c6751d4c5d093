package weather

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"weather-monitor/internal/models"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

// ErrEmptyMemento is returned when restoring a snapshot taken before any reading was set
var ErrEmptyMemento = errors.New("memento holds no reading")

// Observer is notified synchronously after every reading change.
// Implementations must not mutate the record they observe.
type Observer interface {
	Update(ctx context.Context, reading models.Reading) error
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(ctx context.Context, reading models.Reading) error

// Update calls f(ctx, reading)
func (f ObserverFunc) Update(ctx context.Context, reading models.Reading) error {
	return f(ctx, reading)
}

// Record is the shared weather state: the current reading, the condition
// derived from it and the observers to notify when it changes.
//
// The condition is always Classify(reading.TemperatureCelsius). Before the
// first reading the record holds the zero Reading and HasReading is false.
type Record struct {
	mu         sync.RWMutex
	reading    models.Reading
	condition  models.Condition
	hasReading bool
	observers  []Observer

	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRecord creates an empty record
func NewRecord(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Record {
	return &Record{
		condition: models.Classify(0),
		logger:    logger.WithFields(logging.Fields{"component": "weather_record"}),
		metrics:   metricsCollector,
	}
}

// SetReading replaces the current reading, recomputes the condition and then
// notifies every observer in registration order. Observers run outside the
// lock; a failing or panicking observer is logged and the rest still run.
func (r *Record) SetReading(ctx context.Context, reading models.Reading) {
	condition := models.Classify(reading.TemperatureCelsius)

	r.mu.Lock()
	r.reading = reading
	r.condition = condition
	r.hasReading = true
	observers := slices.Clone(r.observers)
	r.mu.Unlock()

	r.metrics.SetCurrentReading(reading.TemperatureCelsius, reading.Humidity, reading.Pressure)
	r.metrics.SetCondition(string(condition), models.ConditionNames())

	r.logger.Debug(ctx, "[RECORD_SET] Reading replaced", logging.Fields{
		"temperature_celsius": reading.TemperatureCelsius,
		"humidity":            reading.Humidity,
		"pressure":            reading.Pressure,
		"condition":           string(condition),
		"observers":           len(observers),
	})

	for i, observer := range observers {
		r.notify(ctx, i, observer, reading)
	}
}

func (r *Record) notify(ctx context.Context, index int, observer Observer, reading models.Reading) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.metrics.ObserverFailuresTotal.Inc()
			r.logger.Error(ctx, "[OBSERVER_PANIC] Observer panicked", logging.Fields{
				"observer_index": index,
			}, fmt.Errorf("panic: %v", recovered))
		}
	}()

	r.metrics.ObserverNotificationsTotal.Inc()
	if err := observer.Update(ctx, reading); err != nil {
		r.metrics.ObserverFailuresTotal.Inc()
		r.logger.Error(ctx, "[OBSERVER_ERROR] Observer failed", logging.Fields{
			"observer_index": index,
		}, err)
	}
}

// AddObserver appends an observer. Past readings are not replayed.
func (r *Record) AddObserver(observer Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, observer)
	count := len(r.observers)
	r.mu.Unlock()

	r.metrics.ObserversRegistered.Set(float64(count))
}

// AddThreshold registers a ThresholdObserver watching thresholdCelsius
func (r *Record) AddThreshold(thresholdCelsius float64, sink WarningSink) *ThresholdObserver {
	observer := NewThresholdObserver(thresholdCelsius, sink)
	r.AddObserver(observer)
	return observer
}

// CurrentReading returns the current reading
func (r *Record) CurrentReading() models.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reading
}

// CurrentCondition returns the condition derived from the current reading
func (r *Record) CurrentCondition() models.Condition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.condition
}

// HasReading reports whether a reading has been set
func (r *Record) HasReading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasReading
}

// ObserverCount returns the number of registered observers
func (r *Record) ObserverCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}

// Snapshot captures the current reading and condition
func (r *Record) Snapshot() Memento {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Memento{
		reading:    r.reading,
		condition:  r.condition,
		hasReading: r.hasReading,
	}
}

// Restore sets the reading held by m. It goes through SetReading, so the
// condition is recomputed and observers are notified.
func (r *Record) Restore(ctx context.Context, m Memento) error {
	if !m.hasReading {
		return ErrEmptyMemento
	}
	r.SetReading(ctx, m.reading)
	return nil
}
