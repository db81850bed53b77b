// Package transfer abstracts the send/receive data-movement path between
// host memory and the optical core, real or simulated.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/lumeon/opticore/service/buffer"
)

// Direction identifies one side of the transfer engine.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// Completion is the signal a channel side emits once its transfer finished.
type Completion struct {
	Direction Direction
	Err       error
	At        time.Time
}

// Fault is a hardware-signalled error raised mid-transfer. The device is in
// an unknown state afterwards, so callers escalate it into a shutdown
// instead of retrying.
type Fault struct {
	Direction Direction
	Reason    string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("transfer fault on %s channel: %s", f.Direction, f.Reason)
}

// Channel is the capability interface of a transfer engine. One transfer is
// in flight at a time; the dispatcher serializes access.
type Channel interface {
	// Transfer stages the input buffer, arms both directions and triggers
	// the exchange. It returns once the transfer is in flight.
	Transfer(ctx context.Context, in, out *buffer.Buffer) error

	// Wait suspends until both the send and the receive side have reported
	// completion. It returns a *Fault when either side signalled an error.
	Wait(ctx context.Context) error

	// ReleaseTransfer gives up transfer-engine ownership. Shutdown phase.
	ReleaseTransfer(ctx context.Context) error

	// ReleaseInterrupts drops the completion interrupt registration.
	ReleaseInterrupts(ctx context.Context) error

	// Close closes the device handle. The channel is unusable afterwards.
	Close(ctx context.Context) error
}
