package crossbar

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeon/opticore/model"
)

// An identity input must come back as identity within analog tolerance
// (5 sigma) since I · Iᵀ = I.
func TestMultiplyIdentity(t *testing.T) {
	config := DefaultConfig()
	tolerance := 5 * config.NoiseSigma
	for _, n := range []int{1, 64, 128} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			mesh := New(config)
			out := mesh.Multiply(model.Identity(n))
			require.Equal(t, n, out.Rows)
			require.Equal(t, n, out.Cols)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					expect := 0.0
					if i == j {
						expect = 1.0
					}
					assert.InDelta(t, expect, float64(out.At(i, j)), tolerance)
				}
			}
		})
	}
}

func TestMultiplyDeterministicSeed(t *testing.T) {
	config := DefaultConfig()
	config.Seed = 42
	a := New(config).Multiply(model.Identity(8))
	b := New(config).Multiply(model.Identity(8))
	assert.Equal(t, a.Data, b.Data)
}

func TestMultiplyRectangular(t *testing.T) {
	mesh := New(Config{Seed: 1}) // zero sigma: exact arithmetic
	m := model.NewMatrix(2, 3)
	for i := range m.Data {
		m.Data[i] = float32(i + 1)
	}
	out := mesh.Multiply(m)
	require.Equal(t, 2, out.Rows)
	require.Equal(t, 2, out.Cols)
	// rows are (1,2,3) and (4,5,6)
	assert.InDelta(t, 14.0, float64(out.At(0, 0)), 1e-6)
	assert.InDelta(t, 32.0, float64(out.At(0, 1)), 1e-6)
	assert.InDelta(t, 32.0, float64(out.At(1, 0)), 1e-6)
	assert.InDelta(t, 77.0, float64(out.At(1, 1)), 1e-6)
}

type halfTransmission struct{}

func (halfTransmission) Transmission(float64) float64 { return 0.5 }

func TestMultiplyAppliesTransmissionModel(t *testing.T) {
	config := Config{Seed: 1, Model: halfTransmission{}, BiasVolts: 3.3}
	out := New(config).Multiply(model.Identity(4))
	for i := 0; i < 4; i++ {
		assert.True(t, math.Abs(float64(out.At(i, i))-0.5) < 1e-6)
	}
}
