package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Reading Metrics
	ReadingsCollectedTotal *prometheus.CounterVec
	CurrentTemperature     prometheus.Gauge
	CurrentHumidity        prometheus.Gauge
	CurrentPressure        prometheus.Gauge
	CurrentCondition       *prometheus.GaugeVec

	// Observer Metrics
	ObserversRegistered        prometheus.Gauge
	ObserverNotificationsTotal prometheus.Counter
	ObserverFailuresTotal      prometheus.Counter
	ThresholdWarningsTotal     prometheus.Counter

	// Database Metrics
	DBQueryDuration     *prometheus.HistogramVec
	DBConnectionsOpened prometheus.Counter
	DBErrorsTotal       *prometheus.CounterVec

	// Import Metrics
	ImportRecordsTotal prometheus.Counter
	ImportDuration     prometheus.Histogram
	ImportErrorsTotal  *prometheus.CounterVec
}

// NewCollector creates a new metrics collector registered with the default registry
func NewCollector(namespace string) *Collector {
	return NewCollectorWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegisterer creates a collector registered with reg
func NewCollectorWithRegisterer(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		ReadingsCollectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_collected_total",
				Help:      "Total number of readings collected by source",
			},
			[]string{"source"},
		),

		CurrentTemperature: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_temperature_celsius",
				Help:      "Temperature of the current reading in degrees Celsius",
			},
		),

		CurrentHumidity: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_humidity_percent",
				Help:      "Relative humidity of the current reading",
			},
		),

		CurrentPressure: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_pressure_hpa",
				Help:      "Pressure of the current reading in hPa",
			},
		),

		CurrentCondition: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_condition",
				Help:      "1 for the condition derived from the current reading, 0 otherwise",
			},
			[]string{"condition"},
		),

		ObserversRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "observers_registered",
				Help:      "Number of observers attached to the weather record",
			},
		),

		ObserverNotificationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observer_notifications_total",
				Help:      "Total number of observer callbacks invoked",
			},
		),

		ObserverFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observer_failures_total",
				Help:      "Total number of observer callbacks that returned an error or panicked",
			},
		),

		ThresholdWarningsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "threshold_warnings_total",
				Help:      "Total number of below-threshold temperature warnings",
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionsOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_connections_opened_total",
				Help:      "Total number of per-call database connections opened",
			},
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),

		ImportRecordsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_records_processed_total",
				Help:      "Total number of weather rows imported",
			},
		),

		ImportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Duration of import runs in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),

		ImportErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_errors_total",
				Help:      "Total number of import errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordReading increments the per-source counter and updates the current reading gauges
func (c *Collector) RecordReading(source string, temperature, humidity, pressure float64) {
	c.ReadingsCollectedTotal.WithLabelValues(source).Inc()
	c.SetCurrentReading(temperature, humidity, pressure)
}

// SetCurrentReading updates the current reading gauges
func (c *Collector) SetCurrentReading(temperature, humidity, pressure float64) {
	c.CurrentTemperature.Set(temperature)
	c.CurrentHumidity.Set(humidity)
	c.CurrentPressure.Set(pressure)
}

// SetCondition marks current as the active condition and clears the others
func (c *Collector) SetCondition(current string, all []string) {
	for _, name := range all {
		value := 0.0
		if name == current {
			value = 1.0
		}
		c.CurrentCondition.WithLabelValues(name).Set(value)
	}
}

// RecordImportError increments import error counter
func (c *Collector) RecordImportError(errorType string) {
	c.ImportErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}
