package models

import (
	"fmt"
	"strings"
)

// Physical bounds of a collected reading
const (
	MinHumidity    = 50.0
	MaxHumidity    = 100.0
	MinPressure    = 1013.0
	MaxPressure    = 1023.0
	MinTemperature = -10.0
	MaxTemperature = 40.0
)

// Reading is one collected (temperature, humidity, pressure) triple.
// It is a value: a new reading replaces the previous one wholesale.
type Reading struct {
	TemperatureCelsius float64 `json:"temperature_celsius"`
	Humidity           float64 `json:"humidity"`
	Pressure           float64 `json:"pressure"`
}

// PersistedRow represents a row of the weather_data table
type PersistedRow struct {
	Time        string  `json:"time" db:"time"`
	Temperature float64 `json:"temperature" db:"temperature"`
	Humidity    float64 `json:"humidity" db:"humidity"`
	Pressure    float64 `json:"pressure" db:"pressure"`
}

// NewPersistedRow builds the row stored for reading under the given time key
func NewPersistedRow(time string, reading Reading) PersistedRow {
	return PersistedRow{
		Time:        time,
		Temperature: reading.TemperatureCelsius,
		Humidity:    reading.Humidity,
		Pressure:    reading.Pressure,
	}
}

// Reading converts the stored row back into a Reading
func (r PersistedRow) Reading() Reading {
	return Reading{
		TemperatureCelsius: r.Temperature,
		Humidity:           r.Humidity,
		Pressure:           r.Pressure,
	}
}

// Validate checks that the reading lies within the ranges a collector can produce.
// Used for externally supplied data; collectors never produce invalid readings.
func (r Reading) Validate() error {
	if r.TemperatureCelsius < MinTemperature || r.TemperatureCelsius > MaxTemperature {
		return &ValidationError{
			Field:   "temperature",
			Value:   fmt.Sprintf("%g", r.TemperatureCelsius),
			Message: fmt.Sprintf("temperature must be within [%g, %g]", MinTemperature, MaxTemperature),
		}
	}
	if r.Humidity < MinHumidity || r.Humidity > MaxHumidity {
		return &ValidationError{
			Field:   "humidity",
			Value:   fmt.Sprintf("%g", r.Humidity),
			Message: fmt.Sprintf("humidity must be within [%g, %g]", MinHumidity, MaxHumidity),
		}
	}
	if r.Pressure < MinPressure || r.Pressure > MaxPressure {
		return &ValidationError{
			Field:   "pressure",
			Value:   fmt.Sprintf("%g", r.Pressure),
			Message: fmt.Sprintf("pressure must be within [%g, %g]", MinPressure, MaxPressure),
		}
	}
	return nil
}

// Source names a data collector variant
type Source string

const (
	SourceAPI    Source = "API"
	SourceSensor Source = "Sensor"
)

// Sources lists every known collector variant
var Sources = []Source{SourceAPI, SourceSensor}

// ParseSource resolves a collector name. Unrecognized names fall back to
// SourceAPI with ok=false so callers can report the fallback.
func ParseSource(name string) (source Source, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "api":
		return SourceAPI, true
	case "sensor":
		return SourceSensor, true
	default:
		return SourceAPI, false
	}
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
