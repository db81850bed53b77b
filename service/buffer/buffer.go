// Package buffer provides matched input/output tensor memory under two
// backing strategies: plain host memory for the simulated path and a
// transfer-capable arena for the hardware path.
package buffer

import (
	"fmt"

	"github.com/lumeon/opticore/model"
)

// Shape describes the two-dimensional extent of a tensor buffer.
type Shape struct {
	Rows int
	Cols int
}

// Elements returns the element count the shape requires.
func (s Shape) Elements() int { return s.Rows * s.Cols }

// Bytes returns the byte size the shape requires.
func (s Shape) Bytes() int { return s.Elements() * model.ElementWidth }

// Validate rejects degenerate shapes.
func (s Shape) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("invalid buffer shape %dx%d", s.Rows, s.Cols)
	}
	return nil
}

// Buffer is a region of tensor memory exclusively owned by one in-flight
// dispatch. The owner must release it on every exit path.
type Buffer struct {
	Data  []float32
	Shape Shape

	offset   int
	pooled   bool
	released bool
}

// Matrix views the buffer contents as a matrix of the buffer's shape.
func (b *Buffer) Matrix() model.Matrix {
	return model.Matrix{Rows: b.Shape.Rows, Cols: b.Shape.Cols, Data: b.Data}
}

// Stats aggregates allocation accounting across the provider's lifetime.
type Stats struct {
	Allocated uint64
	Released  uint64
	InUse     int64
}

// Provider hands out matched input/output buffer pairs. Implementations are
// selected once at runtime construction, not per dispatch.
type Provider interface {
	// Allocate returns a zeroed input/output pair sized to shape. The caller
	// owns both until it releases them.
	Allocate(shape Shape) (in, out *Buffer, err error)

	// Release returns a buffer to the provider. Releasing twice is an error.
	Release(b *Buffer) error

	// Stats returns allocation accounting.
	Stats() Stats
}
