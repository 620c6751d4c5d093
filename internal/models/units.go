package models

import (
	"fmt"
	"strings"
)

// Scale is a temperature scale
type Scale string

const (
	Celsius    Scale = "Celsius"
	Fahrenheit Scale = "Fahrenheit"
	Kelvin     Scale = "Kelvin"
)

// Scales lists the supported temperature scales
var Scales = []Scale{Celsius, Fahrenheit, Kelvin}

// DefaultScale is used wherever a scale name cannot be resolved
const DefaultScale = Celsius

// InvalidScaleError reports an unrecognized scale name. It is a warning:
// the caller proceeds with DefaultScale.
type InvalidScaleError struct {
	Name string
}

func (e *InvalidScaleError) Error() string {
	return fmt.Sprintf("invalid temperature scale %q, using %s", e.Name, DefaultScale)
}

// IsTransient returns false as the input will not become valid on retry
func (e *InvalidScaleError) IsTransient() bool {
	return false
}

// ParseScale resolves a scale name case-insensitively. Unknown names return
// DefaultScale together with an *InvalidScaleError.
func ParseScale(name string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "celsius", "c":
		return Celsius, nil
	case "fahrenheit", "f":
		return Fahrenheit, nil
	case "kelvin", "k":
		return Kelvin, nil
	default:
		return DefaultScale, &InvalidScaleError{Name: name}
	}
}

// Valid reports whether s is one of the supported scales
func (s Scale) Valid() bool {
	switch s {
	case Celsius, Fahrenheit, Kelvin:
		return true
	}
	return false
}

// Label returns the unit suffix used when displaying a temperature
func (s Scale) Label() string {
	switch s {
	case Fahrenheit:
		return "°F"
	case Kelvin:
		return "K"
	default:
		return "°C"
	}
}

func (s Scale) orDefault() Scale {
	if s.Valid() {
		return s
	}
	return DefaultScale
}

// Convert converts value from one scale to another. Scales outside the
// supported set are treated as Celsius; from == to returns value unchanged.
func Convert(value float64, from, to Scale) float64 {
	from, to = from.orDefault(), to.orDefault()
	if from == to {
		return value
	}

	switch from {
	case Celsius:
		switch to {
		case Fahrenheit:
			return value*9/5 + 32
		case Kelvin:
			return value + 273.15
		}
	case Fahrenheit:
		switch to {
		case Celsius:
			return (value - 32) * 5 / 9
		case Kelvin:
			return (value + 459.67) * 5 / 9
		}
	case Kelvin:
		switch to {
		case Celsius:
			return value - 273.15
		case Fahrenheit:
			return value*9/5 - 459.67
		}
	}
	return value
}

// ConvertNamed resolves both scale names and converts value. Any unknown name
// is reported through the returned error while the conversion still proceeds
// with DefaultScale in its place.
func ConvertNamed(value float64, fromName, toName string) (float64, error) {
	from, fromErr := ParseScale(fromName)
	to, toErr := ParseScale(toName)

	result := Convert(value, from, to)
	if fromErr != nil {
		return result, fromErr
	}
	return result, toErr
}
