package opticore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/afs"

	"github.com/lumeon/opticore/model"
	"github.com/lumeon/opticore/runtime/dispatch"
	"github.com/lumeon/opticore/service/blackbox"
	"github.com/lumeon/opticore/service/buffer"
	"github.com/lumeon/opticore/service/crossbar"
	"github.com/lumeon/opticore/service/dao"
	"github.com/lumeon/opticore/service/dao/store"
	"github.com/lumeon/opticore/service/safety"
	"github.com/lumeon/opticore/service/telemetry"
	"github.com/lumeon/opticore/service/transfer"
)

// Service is the high-level facade wiring the dispatch runtime and the
// safety supervisor together. Host applications construct one Service per
// device and interact through Runtime and Supervisor.
type Service struct {
	config     *Config
	logger     zerolog.Logger
	loggerSet  bool
	fs         afs.Service
	runtime    *Runtime
	supervisor *safety.Supervisor
	recorder   safety.Recorder

	mesh        *crossbar.Crossbar
	provider    buffer.Provider
	pool        *buffer.Pool
	channel     transfer.Channel
	dispatchDAO dao.Service[string, dispatch.Dispatch]
	sensor      safety.Sensor
	exitFn      func(code int)
}

// New creates a Service from the supplied options. Missing collaborators
// are filled with mode-appropriate defaults.
func New(options ...Option) (*Service, error) {
	s := &Service{runtime: &Runtime{}}
	for _, option := range options {
		option(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return &ConfigurationError{Field: "config", Err: err}
	}
	mode, err := model.ParseMode(s.config.Runtime.Mode)
	if err != nil {
		return &ConfigurationError{Field: "runtime.mode", Err: err}
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if !s.loggerSet {
		s.logger = zerolog.New(os.Stderr).With().Timestamp().Str("system", "opticore").Logger()
	}
	s.ensureBaseSetup(mode)

	r := s.runtime
	r.mode = mode
	r.descriptorURL = s.config.Runtime.DescriptorURL
	r.simLatency = time.Duration(s.config.Runtime.SimLatencyMs) * time.Millisecond
	r.logger = s.logger.With().Str("component", "runtime").Logger()
	r.fs = s.fs
	r.mesh = s.mesh
	r.provider = s.provider
	r.channel = s.channel
	r.dispatchDAO = s.dispatchDAO
	r.status = model.StatusOffline
	r.telemetry = telemetry.New(r)

	supervisorOptions := []safety.Option{
		safety.WithLogger(s.logger.With().Str("component", "safety").Logger()),
		safety.WithControlPlane(&controlPlane{channel: s.channel, pool: s.pool, logger: s.logger}),
		safety.WithRecorder(s.recorder),
		safety.WithDispatcher(r),
	}
	if s.sensor != nil {
		supervisorOptions = append(supervisorOptions, safety.WithSensor(s.sensor))
	}
	if s.exitFn != nil {
		supervisorOptions = append(supervisorOptions, safety.WithExitFunc(s.exitFn))
	}
	s.supervisor = safety.New(s.config.safetyConfig(), supervisorOptions...)
	r.faultFn = s.supervisor.Shutdown
	return nil
}

// ensureBaseSetup fills the collaborators not supplied through options.
func (s *Service) ensureBaseSetup(mode model.Mode) {
	if s.mesh == nil {
		s.mesh = crossbar.New(crossbar.Config{
			NoiseSigma: s.config.Runtime.NoiseSigma,
			Seed:       s.config.Runtime.Seed,
			BiasVolts:  crossbar.DefaultConfig().BiasVolts,
		})
	}
	if s.provider == nil {
		if mode == model.ModeHardware {
			s.pool = buffer.NewPool(s.config.Runtime.PoolSizeMB)
			s.provider = s.pool
		} else {
			s.provider = buffer.NewHeap()
		}
	}
	if s.channel == nil && mode == model.ModeHardware {
		channelConfig := transfer.DefaultConfig()
		s.channel = transfer.NewLoopback(channelConfig, s.mesh, s.logger.With().Str("component", "transfer").Logger())
	}
	if s.dispatchDAO == nil {
		s.dispatchDAO = store.NewMemoryStore[string, dispatch.Dispatch](func(d *dispatch.Dispatch) string { return d.ID })
	}
	if s.recorder == nil {
		s.recorder = blackbox.New(s.fs, s.config.Runtime.BlackboxURL, s.logger.With().Str("component", "blackbox").Logger())
	}
}

// Runtime returns the dispatch engine.
func (s *Service) Runtime() *Runtime { return s.runtime }

// Supervisor returns the safety supervisor.
func (s *Service) Supervisor() *safety.Supervisor { return s.supervisor }

// Start initializes the device link and launches the safety monitor loop in
// the background. The loop runs until ctx is cancelled or a shutdown is
// triggered.
func (s *Service) Start(ctx context.Context) error {
	if err := s.runtime.Initialize(ctx); err != nil {
		return err
	}
	go func() {
		if err := s.supervisor.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("safety monitor stopped")
		}
	}()
	return nil
}

// TriggerShutdown runs the full termination sequence for the given reason.
// It does not return under the default exit function.
func (s *Service) TriggerShutdown(reason string) {
	s.supervisor.Shutdown(reason)
}

// controlPlane adapts the transfer channel and buffer arena into the
// command surface the shutdown sequence drives.
type controlPlane struct {
	channel transfer.Channel
	pool    *buffer.Pool
	logger  zerolog.Logger
}

// Command drives one optics actuator. Without a register protocol the
// command is acknowledged on the log bus only.
func (c *controlPlane) Command(_ context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("empty actuator command")
	}
	c.logger.Info().Str("command", name).Msg("actuator command issued")
	return nil
}

func (c *controlPlane) ReleaseTransfer(ctx context.Context) error {
	if c.channel == nil {
		return nil
	}
	return c.channel.ReleaseTransfer(ctx)
}

func (c *controlPlane) ReleaseInterrupts(ctx context.Context) error {
	if c.channel == nil {
		return nil
	}
	return c.channel.ReleaseInterrupts(ctx)
}

// Close closes the device handle and invalidates the transfer arena.
func (c *controlPlane) Close(ctx context.Context) error {
	if c.pool != nil {
		c.pool.Reset()
	}
	if c.channel == nil {
		return nil
	}
	return c.channel.Close(ctx)
}

var _ safety.ControlPlane = (*controlPlane)(nil)
