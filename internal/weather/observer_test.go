package weather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-monitor/internal/models"
)

func TestThresholdObserver(t *testing.T) {
	tests := []struct {
		name        string
		threshold   float64
		temperature float64
		wantWarning bool
	}{
		{"below threshold warns", 0, -5, true},
		{"above threshold is quiet", 0, 5, false},
		{"equal to threshold is quiet", 0, 0, false},
		{"fahrenheit-derived threshold", 10, 9.99, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warnings []Warning
			sink := WarningSinkFunc(func(ctx context.Context, w Warning) {
				warnings = append(warnings, w)
			})

			observer := NewThresholdObserver(tt.threshold, sink)
			fixed := time.Date(2023, 11, 7, 12, 0, 0, 0, time.UTC)
			observer.now = func() time.Time { return fixed }

			err := observer.Update(context.Background(), models.Reading{TemperatureCelsius: tt.temperature, Humidity: 60, Pressure: 1015})
			require.NoError(t, err)

			if !tt.wantWarning {
				assert.Empty(t, warnings)
				return
			}
			require.Len(t, warnings, 1)
			assert.Equal(t, tt.threshold, warnings[0].ThresholdCelsius)
			assert.Equal(t, tt.temperature, warnings[0].TemperatureCelsius)
			assert.Equal(t, fixed, warnings[0].At)
			assert.Contains(t, warnings[0].Message, "Warning!")
		})
	}
}

func TestRecord_AddThreshold(t *testing.T) {
	record, _ := newTestRecord(t)
	alerts := NewAlertLog(10)

	observer := record.AddThreshold(0, alerts)
	assert.Equal(t, 0.0, observer.ThresholdCelsius())

	record.SetReading(context.Background(), models.Reading{TemperatureCelsius: -5, Humidity: 60, Pressure: 1015})
	record.SetReading(context.Background(), models.Reading{TemperatureCelsius: 5, Humidity: 60, Pressure: 1015})

	got := alerts.Recent(0)
	require.Len(t, got, 1)
	assert.Equal(t, -5.0, got[0].TemperatureCelsius)
}

func TestAlertLog(t *testing.T) {
	log := NewAlertLog(3)
	ctx := context.Background()

	assert.Equal(t, uint64(0), log.Mark())
	assert.Empty(t, log.Since(0))

	for i := 1; i <= 2; i++ {
		log.Warn(ctx, Warning{TemperatureCelsius: float64(-i)})
	}
	mark := log.Mark()
	assert.Equal(t, uint64(2), mark)

	for i := 3; i <= 5; i++ {
		log.Warn(ctx, Warning{TemperatureCelsius: float64(-i)})
	}

	since := log.Since(mark)
	require.Len(t, since, 3)
	assert.Equal(t, uint64(3), since[0].Seq)
	assert.Equal(t, -5.0, since[2].TemperatureCelsius)

	recent := log.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(4), recent[0].Seq)
	assert.Equal(t, uint64(5), recent[1].Seq)

	assert.Len(t, log.Recent(0), 3, "capacity bounds retained alerts")
}

func TestMultiSink(t *testing.T) {
	first := NewAlertLog(5)
	second := NewAlertLog(5)

	MultiSink(first, second).Warn(context.Background(), Warning{Message: "cold"})

	assert.Len(t, first.Recent(0), 1)
	assert.Len(t, second.Recent(0), 1)
}
