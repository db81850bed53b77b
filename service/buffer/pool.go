package buffer

import (
	"fmt"
	"sync"

	"github.com/lumeon/opticore/model"
)

// alignElements keeps sub-allocations cache-line aligned (64 bytes).
const alignElements = 64 / model.ElementWidth

// ErrPoolExhausted is returned when the arena cannot satisfy an allocation.
var ErrPoolExhausted = fmt.Errorf("transfer pool exhausted")

// Pool is a transfer-capable bump allocator over one contiguous arena,
// modelled after a DMA ring: allocation advances an offset, release only
// counts, and when the last outstanding buffer is returned the whole arena
// rewinds in O(1).
type Pool struct {
	mu          sync.Mutex
	arena       []float32
	offset      int
	outstanding int

	allocated uint64
	released  uint64
}

// NewPool creates a pool with the given arena size in megabytes.
func NewPool(sizeMB int) *Pool {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	elements := sizeMB * 1024 * 1024 / model.ElementWidth
	return &Pool{arena: make([]float32, elements)}
}

func alignUp(n int) int {
	return (n + alignElements - 1) &^ (alignElements - 1)
}

// Allocate carves a matched input/output pair out of the arena. Regions are
// zeroed before hand-off since the arena is recycled.
func (p *Pool) Allocate(shape Shape) (*Buffer, *Buffer, error) {
	if err := shape.Validate(); err != nil {
		return nil, nil, err
	}
	need := alignUp(shape.Elements())

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.offset+2*need > len(p.arena) {
		return nil, nil, fmt.Errorf("%w: need %d elements, %d free", ErrPoolExhausted, 2*need, len(p.arena)-p.offset)
	}

	in := p.carve(need, shape)
	out := p.carve(need, shape)
	p.allocated += 2
	p.outstanding += 2
	return in, out, nil
}

func (p *Pool) carve(need int, shape Shape) *Buffer {
	region := p.arena[p.offset : p.offset+shape.Elements()]
	for i := range region {
		region[i] = 0
	}
	b := &Buffer{Data: region, Shape: shape, offset: p.offset, pooled: true}
	p.offset += need
	return b
}

// Release returns a buffer to the pool. Once every outstanding buffer is
// back the write offset rewinds to the arena start.
func (p *Pool) Release(b *Buffer) error {
	if b == nil {
		return fmt.Errorf("release of nil buffer")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if b.released {
		return fmt.Errorf("buffer at offset %d released twice", b.offset)
	}
	if !b.pooled {
		return fmt.Errorf("buffer does not belong to this pool")
	}
	b.released = true
	b.Data = nil
	p.released++
	p.outstanding--
	if p.outstanding == 0 {
		p.offset = 0
	}
	return nil
}

// Reset force-rewinds the arena. It is part of the control-plane teardown;
// any outstanding buffer is invalidated.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = 0
	p.outstanding = 0
}

// Stats returns allocation accounting.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Allocated: p.allocated, Released: p.released, InUse: int64(p.allocated) - int64(p.released)}
}

var _ Provider = (*Pool)(nil)
