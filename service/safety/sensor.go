package safety

import (
	"math/rand"
	"sync"
)

// Reading is one sample of the device vitals.
type Reading struct {
	ThermalC float64
	VoltageV float64
}

// Sensor samples the thermal and voltage vitals the monitor loop checks.
type Sensor interface {
	Sample() (Reading, error)
}

// SyntheticSensor produces nominal readings with small jitter, standing in
// for the ADC fabric when no hardware is attached.
type SyntheticSensor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticSensor creates a sensor with a fixed jitter seed.
func NewSyntheticSensor(seed int64) *SyntheticSensor {
	return &SyntheticSensor{rng: rand.New(rand.NewSource(seed))}
}

// Sample returns a nominal reading: ~45-50 C core, ~12.0-12.1 V rail.
func (s *SyntheticSensor) Sample() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Reading{
		ThermalC: 45.0 + s.rng.Float64()*5.0,
		VoltageV: 12.0 + s.rng.Float64()*0.1,
	}, nil
}
