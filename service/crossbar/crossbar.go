// Package crossbar models the optical mesh numerically. The simulated
// execution path and the loopback transfer channel both compute through it.
package crossbar

import (
	"context"
	"math/rand"
	"sync"

	"github.com/lumeon/opticore/model"
)

// TransmissionModel is the stateless physics formula describing mesh
// transmission at a given drive voltage. Implementations live outside the
// engine; when present the crossbar attenuates its output accordingly.
type TransmissionModel interface {
	Transmission(voltage float64) float64
}

// Instruction is one lowered step of a mesh program.
type Instruction struct {
	Op   string    `json:"op"`
	Args []float64 `json:"args,omitempty"`
}

// Emitter lowers a serialized neural graph into mesh instructions. The
// engine only consumes the interface; emitters are provided by callers.
type Emitter interface {
	Emit(ctx context.Context, graph []byte) ([]Instruction, error)
}

// Config holds the analog behaviour knobs of the simulated mesh.
type Config struct {
	// NoiseSigma is the standard deviation of the additive readout noise.
	NoiseSigma float64
	// Seed fixes the noise source so results are reproducible in tests.
	Seed int64
	// BiasVolts is the drive voltage handed to the transmission model.
	BiasVolts float64
	// Model optionally attenuates output per the physics formula.
	Model TransmissionModel
}

// DefaultConfig returns the stock analog behaviour.
func DefaultConfig() Config {
	return Config{NoiseSigma: 0.001, Seed: 1, BiasVolts: 3.3}
}

// Crossbar computes tensor transforms the way the optical core would:
// out[i][j] = dot(row i, row j) plus gaussian readout noise.
type Crossbar struct {
	config Config
	mu     sync.Mutex
	rng    *rand.Rand
}

// New creates a crossbar with the given analog configuration.
func New(config Config) *Crossbar {
	return &Crossbar{config: config, rng: rand.New(rand.NewSource(config.Seed))}
}

// Multiply returns m · mᵀ with additive readout noise; the result is
// Rows x Rows regardless of the input column count.
func (c *Crossbar) Multiply(m model.Matrix) model.Matrix {
	out := model.NewMatrix(m.Rows, m.Rows)
	gain := 1.0
	if c.config.Model != nil {
		gain = c.config.Model.Transmission(c.config.BiasVolts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Rows; j++ {
			var dot float64
			for k := 0; k < m.Cols; k++ {
				dot += float64(m.At(i, k)) * float64(m.At(j, k))
			}
			noise := c.rng.NormFloat64() * c.config.NoiseSigma
			out.Set(i, j, float32(dot*gain+noise))
		}
	}
	return out
}
