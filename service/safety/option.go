package safety

import "github.com/rs/zerolog"

// Option mutates a Supervisor during construction.
type Option func(s *Supervisor)

// WithSensor sets the vitals sensor sampled by the monitor loop.
func WithSensor(sensor Sensor) Option {
	return func(s *Supervisor) { s.sensor = sensor }
}

// WithControlPlane sets the hardware command surface used during shutdown.
func WithControlPlane(control ControlPlane) Option {
	return func(s *Supervisor) { s.control = control }
}

// WithRecorder sets the black box recorder used by the persist phase.
func WithRecorder(recorder Recorder) Option {
	return func(s *Supervisor) { s.recorder = recorder }
}

// WithDispatcher registers the dispatcher halted on shutdown entry.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(s *Supervisor) { s.dispatcher = dispatcher }
}

// WithLogger sets the supervisor logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithExitFunc overrides process termination, letting tests observe the
// exit code instead of exiting.
func WithExitFunc(exit func(code int)) Option {
	return func(s *Supervisor) { s.exitFn = exit }
}
