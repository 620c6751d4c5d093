package models

import (
	"math"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		temperature float64
		want        Condition
	}{
		{40, ConditionSunny},
		{25.0001, ConditionSunny},
		{25, ConditionCloudy},
		{15.0001, ConditionCloudy},
		{15, ConditionRainy},
		{0.0001, ConditionRainy},
		{0, ConditionSnowy},
		{-10, ConditionSnowy},
		{math.Inf(-1), ConditionSnowy},
		{math.Inf(1), ConditionSunny},
	}

	for _, tt := range tests {
		if got := Classify(tt.temperature); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.temperature, got, tt.want)
		}
	}
}

func TestClassify_Total(t *testing.T) {
	known := map[Condition]bool{}
	for _, c := range Conditions {
		known[c] = true
	}
	for temp := -50.0; temp <= 50.0; temp += 0.25 {
		if c := Classify(temp); !known[c] {
			t.Fatalf("Classify(%v) = %q, not a known condition", temp, c)
		}
	}
}

func TestClassify_EndToEnd(t *testing.T) {
	reading := Reading{TemperatureCelsius: 30.0, Humidity: 60, Pressure: 1015}

	if got := Classify(reading.TemperatureCelsius); got != ConditionSunny {
		t.Errorf("condition = %v, want Sunny", got)
	}
	if got := Convert(reading.TemperatureCelsius, Celsius, Fahrenheit); got != 86.0 {
		t.Errorf("fahrenheit = %v, want 86", got)
	}
	if got := Convert(reading.TemperatureCelsius, Celsius, Kelvin); !approxEqual(got, 303.15) {
		t.Errorf("kelvin = %v, want 303.15", got)
	}
}

func TestConditionNames(t *testing.T) {
	names := ConditionNames()
	want := []string{"Sunny", "Cloudy", "Rainy", "Snowy"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
