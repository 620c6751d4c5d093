package models

// Summary aggregates the stored rows. Aggregates are nil when Count is zero.
type Summary struct {
	Count          int      `json:"count" db:"count"`
	AvgTemperature *float64 `json:"avg_temperature,omitempty" db:"avg_temperature"`
	MinTemperature *float64 `json:"min_temperature,omitempty" db:"min_temperature"`
	MaxTemperature *float64 `json:"max_temperature,omitempty" db:"max_temperature"`
	AvgHumidity    *float64 `json:"avg_humidity,omitempty" db:"avg_humidity"`
	AvgPressure    *float64 `json:"avg_pressure,omitempty" db:"avg_pressure"`
}

// Condition classifies the average temperature; false when nothing is stored
func (s Summary) Condition() (Condition, bool) {
	if s.Count == 0 || s.AvgTemperature == nil {
		return "", false
	}
	return Classify(*s.AvgTemperature), true
}
