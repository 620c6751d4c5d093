package models

// Condition is the qualitative weather label derived from temperature
type Condition string

const (
	ConditionSunny  Condition = "Sunny"
	ConditionCloudy Condition = "Cloudy"
	ConditionRainy  Condition = "Rainy"
	ConditionSnowy  Condition = "Snowy"
)

// Conditions lists every condition, warmest first
var Conditions = []Condition{ConditionSunny, ConditionCloudy, ConditionRainy, ConditionSnowy}

// Classify maps a Celsius temperature onto a Condition.
// Boundaries are open: 25 is Cloudy, 15 is Rainy, 0 is Snowy.
func Classify(temperatureCelsius float64) Condition {
	switch {
	case temperatureCelsius > 25.0:
		return ConditionSunny
	case temperatureCelsius > 15.0:
		return ConditionCloudy
	case temperatureCelsius > 0.0:
		return ConditionRainy
	default:
		return ConditionSnowy
	}
}

// ConditionNames returns the condition labels as strings, for metric labels
func ConditionNames() []string {
	names := make([]string, len(Conditions))
	for i, c := range Conditions {
		names[i] = string(c)
	}
	return names
}
