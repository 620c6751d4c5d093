package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"weather-monitor/internal/models"
)

// Warning is raised when a reading falls below an observer's threshold
type Warning struct {
	ThresholdCelsius   float64   `json:"threshold_celsius"`
	TemperatureCelsius float64   `json:"temperature_celsius"`
	Message            string    `json:"message"`
	At                 time.Time `json:"at"`
}

// WarningSink receives warnings from threshold observers
type WarningSink interface {
	Warn(ctx context.Context, warning Warning)
}

// WarningSinkFunc adapts a function to the WarningSink interface
type WarningSinkFunc func(ctx context.Context, warning Warning)

// Warn calls f(ctx, warning)
func (f WarningSinkFunc) Warn(ctx context.Context, warning Warning) {
	f(ctx, warning)
}

// MultiSink fans a warning out to every sink in order
func MultiSink(sinks ...WarningSink) WarningSink {
	return WarningSinkFunc(func(ctx context.Context, warning Warning) {
		for _, sink := range sinks {
			sink.Warn(ctx, warning)
		}
	})
}

// ThresholdObserver warns whenever a reading is strictly below its threshold
type ThresholdObserver struct {
	thresholdCelsius float64
	sink             WarningSink
	now              func() time.Time
}

// NewThresholdObserver creates an observer watching thresholdCelsius
func NewThresholdObserver(thresholdCelsius float64, sink WarningSink) *ThresholdObserver {
	return &ThresholdObserver{
		thresholdCelsius: thresholdCelsius,
		sink:             sink,
		now:              time.Now,
	}
}

// ThresholdCelsius returns the watched threshold
func (o *ThresholdObserver) ThresholdCelsius() float64 {
	return o.thresholdCelsius
}

// Update implements Observer
func (o *ThresholdObserver) Update(ctx context.Context, reading models.Reading) error {
	if reading.TemperatureCelsius >= o.thresholdCelsius {
		return nil
	}

	o.sink.Warn(ctx, Warning{
		ThresholdCelsius:   o.thresholdCelsius,
		TemperatureCelsius: reading.TemperatureCelsius,
		Message:            fmt.Sprintf("Temperature is below %g°C. Warning!", o.thresholdCelsius),
		At:                 o.now().UTC(),
	})
	return nil
}

// Alert is a warning stored in an AlertLog
type Alert struct {
	Seq uint64 `json:"seq"`
	Warning
}

// AlertLog keeps the most recent warnings. Sequence numbers grow
// monotonically so callers can ask for the warnings raised since a mark.
type AlertLog struct {
	mu       sync.Mutex
	alerts   []Alert
	seq      uint64
	capacity int
}

// NewAlertLog creates a log keeping at most capacity alerts
func NewAlertLog(capacity int) *AlertLog {
	if capacity <= 0 {
		capacity = 100
	}
	return &AlertLog{capacity: capacity}
}

// Warn implements WarningSink
func (l *AlertLog) Warn(_ context.Context, warning Warning) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.alerts = append(l.alerts, Alert{Seq: l.seq, Warning: warning})
	if over := len(l.alerts) - l.capacity; over > 0 {
		l.alerts = append(l.alerts[:0:0], l.alerts[over:]...)
	}
}

// Mark returns the sequence number of the latest alert
func (l *AlertLog) Mark() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Since returns the retained alerts with a sequence number greater than mark
func (l *AlertLog) Since(mark uint64) []Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []Alert{}
	for _, alert := range l.alerts {
		if alert.Seq > mark {
			out = append(out, alert)
		}
	}
	return out
}

// Recent returns up to n of the newest alerts, oldest first
func (l *AlertLog) Recent(n int) []Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.alerts) {
		n = len(l.alerts)
	}
	out := make([]Alert, n)
	copy(out, l.alerts[len(l.alerts)-n:])
	return out
}
