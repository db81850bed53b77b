package transfer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumeon/opticore/internal/clock"
	"github.com/lumeon/opticore/service/buffer"
	"github.com/lumeon/opticore/service/crossbar"
	"github.com/lumeon/opticore/service/signal"
)

// Config holds loopback channel behaviour.
type Config struct {
	// Latency is the simulated round-trip before completions fire.
	Latency time.Duration
	// FaultDirection, when set, makes that side signal FaultReason instead
	// of completing. Used to exercise the fault escalation path.
	FaultDirection Direction
	FaultReason    string
}

// DefaultConfig returns the stock loopback behaviour.
func DefaultConfig() Config {
	return Config{Latency: 2 * time.Millisecond}
}

// Loopback stands in for the real transfer engine: it stages buffers,
// computes the transform through the crossbar model and signals completion
// on both channel sides after a configurable latency.
type Loopback struct {
	config      Config
	mesh        *crossbar.Crossbar
	logger      zerolog.Logger
	completions *signal.Queue[Completion]
	closed      atomic.Bool
	released    atomic.Bool
}

// NewLoopback creates a loopback channel computing through mesh.
func NewLoopback(config Config, mesh *crossbar.Crossbar, logger zerolog.Logger) *Loopback {
	return &Loopback{
		config:      config,
		mesh:        mesh,
		logger:      logger,
		completions: signal.NewQueue[Completion](4),
	}
}

// Transfer arms both directions and triggers the simulated exchange.
func (l *Loopback) Transfer(ctx context.Context, in, out *buffer.Buffer) error {
	if l.closed.Load() || l.released.Load() {
		return fmt.Errorf("transfer channel detached")
	}
	if in == nil || out == nil {
		return fmt.Errorf("transfer requires staged input and output buffers")
	}
	input := in.Matrix().Clone()
	l.logger.Debug().
		Int("rows", input.Rows).
		Int("cols", input.Cols).
		Msg("transferring data to optical core")

	go func() {
		clock.Sleep(l.config.Latency)
		if l.config.FaultDirection != "" {
			fault := &Fault{Direction: l.config.FaultDirection, Reason: l.config.FaultReason}
			l.complete(Completion{Direction: l.config.FaultDirection, Err: fault, At: clock.Now()})
			other := DirectionReceive
			if l.config.FaultDirection == DirectionReceive {
				other = DirectionSend
			}
			l.complete(Completion{Direction: other, At: clock.Now()})
			return
		}
		result := l.mesh.Multiply(input)
		copy(out.Data, result.Data)
		l.complete(Completion{Direction: DirectionSend, At: clock.Now()})
		l.complete(Completion{Direction: DirectionReceive, At: clock.Now()})
	}()
	return nil
}

func (l *Loopback) complete(c Completion) {
	_ = l.completions.Publish(context.Background(), c)
}

// Wait suspends until both directions reported completion.
func (l *Loopback) Wait(ctx context.Context) error {
	var firstErr error
	seen := map[Direction]bool{}
	for len(seen) < 2 {
		completion, err := l.completions.Consume(ctx)
		if err != nil {
			return err
		}
		seen[completion.Direction] = true
		if completion.Err != nil && firstErr == nil {
			firstErr = completion.Err
		}
	}
	return firstErr
}

// ReleaseTransfer gives up transfer-engine ownership.
func (l *Loopback) ReleaseTransfer(_ context.Context) error {
	l.released.Store(true)
	l.logger.Info().Msg("transfer engine ownership released")
	return nil
}

// ReleaseInterrupts drops the completion interrupt registration.
func (l *Loopback) ReleaseInterrupts(_ context.Context) error {
	l.logger.Info().Msg("completion interrupt registration released")
	return nil
}

// Close closes the simulated device handle.
func (l *Loopback) Close(_ context.Context) error {
	l.closed.Store(true)
	l.logger.Info().Msg("device handle closed")
	return nil
}

var _ Channel = (*Loopback)(nil)
