package buffer

import (
	"fmt"
	"sync/atomic"
)

// Heap allocates plain zero-initialized host memory. It backs the simulated
// execution path where no transfer engine is involved.
type Heap struct {
	allocated atomic.Uint64
	released  atomic.Uint64
}

// NewHeap creates a heap-backed provider.
func NewHeap() *Heap { return &Heap{} }

// Allocate returns a matched zeroed pair sized to shape.
func (h *Heap) Allocate(shape Shape) (*Buffer, *Buffer, error) {
	if err := shape.Validate(); err != nil {
		return nil, nil, err
	}
	in := &Buffer{Data: make([]float32, shape.Elements()), Shape: shape}
	out := &Buffer{Data: make([]float32, shape.Elements()), Shape: shape}
	h.allocated.Add(2)
	return in, out, nil
}

// Release returns a buffer; the backing slice is left to the garbage
// collector.
func (h *Heap) Release(b *Buffer) error {
	if b == nil {
		return fmt.Errorf("release of nil buffer")
	}
	if b.released {
		return fmt.Errorf("buffer released twice")
	}
	b.released = true
	b.Data = nil
	h.released.Add(1)
	return nil
}

// Stats returns allocation accounting.
func (h *Heap) Stats() Stats {
	allocated := h.allocated.Load()
	released := h.released.Load()
	return Stats{Allocated: allocated, Released: released, InUse: int64(allocated) - int64(released)}
}

var _ Provider = (*Heap)(nil)
