package safety

import "context"

// ControlPlane is the hardware command surface the shutdown sequence drives:
// optics actuator commands during parking and the three teardown steps of
// the detach phase. Simulation backends no-op every call; the supervisor
// still journals each step so the sequence stays observable.
type ControlPlane interface {
	// Command issues one optics actuator command (lock, retract, shutter).
	Command(ctx context.Context, name string) error

	// ReleaseTransfer gives up transfer-engine ownership.
	ReleaseTransfer(ctx context.Context) error

	// ReleaseInterrupts drops the device interrupt registration.
	ReleaseInterrupts(ctx context.Context) error

	// Close closes the device handle.
	Close(ctx context.Context) error
}

// NoopControlPlane accepts every command without touching hardware.
type NoopControlPlane struct{}

func (NoopControlPlane) Command(context.Context, string) error     { return nil }
func (NoopControlPlane) ReleaseTransfer(context.Context) error     { return nil }
func (NoopControlPlane) ReleaseInterrupts(context.Context) error   { return nil }
func (NoopControlPlane) Close(context.Context) error               { return nil }

var _ ControlPlane = NoopControlPlane{}
