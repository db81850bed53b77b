// Package safety implements the guardian of the optical core: a monitor
// loop sampling device vitals against static thresholds and the strictly
// ordered shutdown sequence executed when an excursion or interrupt occurs.
package safety

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumeon/opticore/internal/clock"
	"github.com/lumeon/opticore/service/blackbox"
	"github.com/lumeon/opticore/service/signal"
)

// Status is the supervisor state machine position. Transitions only move
// forward: Nominal -> ShuttingDown -> Halted.
type Status string

const (
	StatusNominal      Status = "NOMINAL"
	StatusShuttingDown Status = "SHUTTING_DOWN"
	StatusHalted       Status = "HALTED"
)

// HeadState tracks the optical transceiver array. Active -> Parked only;
// a parked head never reactivates within one supervisor instance.
type HeadState string

const (
	HeadActive HeadState = "ACTIVE"
	HeadParked HeadState = "PARKED"
)

// Shutdown reasons raised by the monitor loop.
const (
	ReasonThermalRunaway = "THERMAL RUNAWAY"
	ReasonVoltageSpike   = "VOLTAGE SPIKE"
)

// parkCommands is the fixed actuator sequence securing the optics.
var parkCommands = []string{"LOCK_AXIS_X", "LOCK_AXIS_Y", "RETRACT_LENS", "CLOSE_SHUTTER"}

// Dispatcher is the runtime-facing hook: it is halted on shutdown entry so
// no further tensor work is accepted once the sequence begins.
type Dispatcher interface {
	Halt()
}

// Recorder persists the forensic snapshot during the persist phase.
type Recorder interface {
	Record(ctx context.Context, snapshot *blackbox.Snapshot) (string, error)
}

// Supervisor owns the armed flag, the vitals monitor loop and the shutdown
// state machine. One instance exists per process; its shutdown sequence is
// the last code the process executes.
type Supervisor struct {
	config     Config
	logger     zerolog.Logger
	sensor     Sensor
	control    ControlPlane
	recorder   Recorder
	dispatcher Dispatcher
	exitFn     func(code int)

	interrupts chan string
	halt       chan struct{}
	entered    atomic.Bool
	armed      atomic.Bool

	mu        sync.RWMutex
	status    Status
	head      HeadState
	rails     map[string]float64
	startedAt time.Time

	events *signal.Queue[Event]
}

// New creates an armed supervisor in Nominal state.
func New(config Config, options ...Option) *Supervisor {
	rails := make(map[string]float64, len(config.Rails))
	for name, volts := range config.Rails {
		rails[name] = volts
	}
	depth := config.JournalDepth
	if depth <= 0 {
		depth = DefaultConfig().JournalDepth
	}
	s := &Supervisor{
		config:     config,
		logger:     zerolog.New(os.Stderr).With().Timestamp().Str("system", "safety").Logger(),
		exitFn:     os.Exit,
		interrupts: make(chan string, 1),
		halt:       make(chan struct{}),
		status:     StatusNominal,
		head:       HeadActive,
		rails:      rails,
		startedAt:  clock.Now(),
		events:     signal.NewQueue[Event](depth),
	}
	s.armed.Store(true)
	for _, option := range options {
		option(s)
	}
	if s.sensor == nil {
		s.sensor = NewSyntheticSensor(clock.Now().UnixNano())
	}
	if s.control == nil {
		s.control = NoopControlPlane{}
	}
	s.logger.Info().
		Float64("thermalLimitC", config.ThermalLimitC).
		Float64("voltageLimitV", config.VoltageLimitV).
		Msg("safety monitor initialized, interlocks armed")
	return s
}

// Armed reports whether the interlocks are still armed. Once false it never
// returns to true within this process.
func (s *Supervisor) Armed() bool { return s.armed.Load() }

// Status returns the state machine position.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Head returns the optical head state.
func (s *Supervisor) Head() HeadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// Rails returns a copy of the supervised rail voltages.
func (s *Supervisor) Rails() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.rails))
	for name, volts := range s.rails {
		out[name] = volts
	}
	return out
}

// Events exposes the ordered shutdown journal.
func (s *Supervisor) Events() *signal.Queue[Event] { return s.events }

// Interrupt redirects an external termination request (typically an OS
// signal translated by the host) onto the shutdown path consumed by Run.
func (s *Supervisor) Interrupt(reason string) {
	select {
	case s.interrupts <- reason:
	default:
		// A request is already queued or shutdown has begun.
	}
}

// Run is the monitor heartbeat loop. It samples the vitals every heartbeat
// and synchronously executes the shutdown sequence on a threshold breach or
// interrupt. The loop never iterates again after shutdown entry since the
// interlocks disarm first.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info().Dur("heartbeat", s.config.Heartbeat).Msg("safety monitor active")
	ticker := time.NewTicker(s.config.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.halt:
			return nil
		case reason := <-s.interrupts:
			s.logger.Warn().Str("reason", reason).Msg("external interrupt received")
			s.Shutdown(reason)
			return nil
		case <-ticker.C:
			if !s.Armed() {
				return nil
			}
			reading, err := s.sensor.Sample()
			if err != nil {
				s.logger.Warn().Err(err).Msg("sensor sample failed")
				continue
			}
			if reading.ThermalC > s.config.ThermalLimitC {
				s.logger.Error().Float64("thermalC", reading.ThermalC).Msg("overheat detected")
				s.Shutdown(ReasonThermalRunaway)
				return nil
			}
			if reading.VoltageV > s.config.VoltageLimitV {
				s.logger.Error().Float64("voltageV", reading.VoltageV).Msg("overvoltage detected")
				s.Shutdown(ReasonVoltageSpike)
				return nil
			}
		}
	}
}

// Shutdown executes the five-phase termination sequence. Entry is exactly
// once per process: concurrent or repeated triggers are no-ops. The call
// blocks until the process exits through the configured exit function.
func (s *Supervisor) Shutdown(reason string) {
	if !s.entered.CompareAndSwap(false, true) {
		return
	}
	s.armed.Store(false)
	close(s.halt)
	s.setStatus(StatusShuttingDown)
	if s.dispatcher != nil {
		s.dispatcher.Halt()
	}
	s.logger.Warn().Str("reason", reason).Msg("initiating shutdown protocol")

	start := clock.Now()
	if err := s.runSequence(context.Background(), reason); err != nil {
		s.logger.Error().Err(err).Msg("fatal error during shutdown, forcing halt")
		s.journal(Event{Phase: PhaseTerminate, Step: "forced-halt", Detail: err.Error()})
		s.exitFn(1)
		return
	}
	s.setStatus(StatusHalted)
	s.logger.Info().Dur("took", clock.Now().Sub(start)).Msg("system halted safely")
	s.journal(Event{Phase: PhaseTerminate, Step: "exit", Detail: "0"})
	s.exitFn(0)
}

func (s *Supervisor) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *Supervisor) journal(event Event) {
	event.At = clock.Now()
	if !s.events.TryPublish(event) {
		s.logger.Debug().Str("phase", event.Phase).Str("step", event.Step).Msg("journal full, event dropped")
	}
}
