package opticore

import (
	"github.com/rs/zerolog"
	"github.com/viant/afs"

	"github.com/lumeon/opticore/runtime/dispatch"
	"github.com/lumeon/opticore/service/buffer"
	"github.com/lumeon/opticore/service/crossbar"
	"github.com/lumeon/opticore/service/dao"
	"github.com/lumeon/opticore/service/safety"
	"github.com/lumeon/opticore/service/transfer"
)

// Option mutates a Service during construction.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the root logger; components derive scoped loggers from it.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.loggerSet = true
	}
}

// WithFileService sets the file abstraction used for descriptors and crash
// dumps.
func WithFileService(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithCrossbar sets the mesh model both execution paths compute through.
func WithCrossbar(mesh *crossbar.Crossbar) Option {
	return func(s *Service) { s.mesh = mesh }
}

// WithBufferProvider sets the tensor memory provider.
func WithBufferProvider(provider buffer.Provider) Option {
	return func(s *Service) { s.provider = provider }
}

// WithTransferChannel sets the hardware transfer engine.
func WithTransferChannel(channel transfer.Channel) Option {
	return func(s *Service) { s.channel = channel }
}

// WithDispatchDAO sets the dispatch audit store.
func WithDispatchDAO(service dao.Service[string, dispatch.Dispatch]) Option {
	return func(s *Service) { s.dispatchDAO = service }
}

// WithSensor sets the vitals sensor the safety monitor samples.
func WithSensor(sensor safety.Sensor) Option {
	return func(s *Service) { s.sensor = sensor }
}

// WithRecorder sets the black box recorder used during shutdown.
func WithRecorder(recorder safety.Recorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

// WithExitFunc overrides process termination at the end of the shutdown
// sequence, letting tests observe the exit code.
func WithExitFunc(exit func(code int)) Option {
	return func(s *Service) { s.exitFn = exit }
}
