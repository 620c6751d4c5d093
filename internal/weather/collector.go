package weather

import (
	"math/rand/v2"
	"sync"

	"weather-monitor/internal/models"
)

// Collector produces a new Reading. Implementations never fail.
type Collector interface {
	Source() models.Source
	Collect() models.Reading
}

// sampler draws readings uniformly from the physical ranges in models.
// *rand.Rand is not safe for concurrent use, hence the mutex.
type sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSampler(rng *rand.Rand) *sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &sampler{rng: rng}
}

func (s *sampler) sample() models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.Reading{
		TemperatureCelsius: uniform(s.rng, models.MinTemperature, models.MaxTemperature),
		Humidity:           uniform(s.rng, models.MinHumidity, models.MaxHumidity),
		Pressure:           uniform(s.rng, models.MinPressure, models.MaxPressure),
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// APICollector stands in for a remote weather API
type APICollector struct {
	*sampler
}

// NewAPICollector creates an API collector. A nil rng uses a randomly seeded source.
func NewAPICollector(rng *rand.Rand) *APICollector {
	return &APICollector{sampler: newSampler(rng)}
}

// Source returns models.SourceAPI
func (c *APICollector) Source() models.Source { return models.SourceAPI }

// Collect returns a fresh reading
func (c *APICollector) Collect() models.Reading { return c.sample() }

// SensorCollector stands in for a local weather sensor
type SensorCollector struct {
	*sampler
}

// NewSensorCollector creates a sensor collector. A nil rng uses a randomly seeded source.
func NewSensorCollector(rng *rand.Rand) *SensorCollector {
	return &SensorCollector{sampler: newSampler(rng)}
}

// Source returns models.SourceSensor
func (c *SensorCollector) Source() models.Source { return models.SourceSensor }

// Collect returns a fresh reading
func (c *SensorCollector) Collect() models.Reading { return c.sample() }

// NewCollector returns the collector for source; anything but SourceSensor gets the API collector.
func NewCollector(source models.Source, rng *rand.Rand) Collector {
	if source == models.SourceSensor {
		return NewSensorCollector(rng)
	}
	return NewAPICollector(rng)
}
