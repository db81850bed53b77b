package safety

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeon/opticore/internal/clock"
	"github.com/lumeon/opticore/service/blackbox"
)

// suppress the real phase delays; ordering is preserved regardless.
func stubSleep(t *testing.T) {
	t.Helper()
	clock.SleepFunc = func(time.Duration) {}
	t.Cleanup(func() { clock.SleepFunc = time.Sleep })
}

type countingRecorder struct {
	mu        sync.Mutex
	snapshots []*blackbox.Snapshot
}

func (r *countingRecorder) Record(_ context.Context, snapshot *blackbox.Snapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
	return "mem://localhost/blackbox/crash_dump_0.json", nil
}

func (r *countingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

type recordingControlPlane struct {
	mu    sync.Mutex
	calls []string
	fail  string // step name that fails, when set
}

func (c *recordingControlPlane) record(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
	if c.fail == name {
		return assert.AnError
	}
	return nil
}

func (c *recordingControlPlane) Command(_ context.Context, name string) error {
	return c.record(name)
}
func (c *recordingControlPlane) ReleaseTransfer(context.Context) error {
	return c.record("release-transfer")
}
func (c *recordingControlPlane) ReleaseInterrupts(context.Context) error {
	return c.record("release-interrupts")
}
func (c *recordingControlPlane) Close(context.Context) error {
	return c.record("close-handle")
}

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
}

func newTestSupervisor(t *testing.T, options ...Option) (*Supervisor, *countingRecorder, *recordingControlPlane, *exitRecorder) {
	t.Helper()
	stubSleep(t)
	recorder := &countingRecorder{}
	control := &recordingControlPlane{}
	exit := &exitRecorder{}
	base := []Option{
		WithLogger(zerolog.Nop()),
		WithRecorder(recorder),
		WithControlPlane(control),
		WithExitFunc(exit.exit),
	}
	s := New(DefaultConfig(), append(base, options...)...)
	return s, recorder, control, exit
}

// phaseSteps reduces the journal to phase/step pairs for order assertions.
func phaseSteps(events []Event) []string {
	var out []string
	for _, event := range events {
		out = append(out, event.Phase+"/"+event.Step)
	}
	return out
}

func TestShutdownPhaseOrdering(t *testing.T) {
	s, recorder, control, exit := newTestSupervisor(t)
	s.Shutdown("manual override")

	events := s.Events().Drain()
	steps := phaseSteps(events)
	require.NotEmpty(t, steps)

	expectedHead := []string{
		"park/LOCK_AXIS_X",
		"park/LOCK_AXIS_Y",
		"park/RETRACT_LENS",
		"park/CLOSE_SHUTTER",
	}
	require.GreaterOrEqual(t, len(steps), len(expectedHead))
	assert.Equal(t, expectedHead, steps[:4])

	// every discharge step sits between parking and detaching
	phaseOrder := map[string]int{PhasePark: 0, PhaseDischarge: 1, PhaseDetach: 2, PhasePersist: 3, PhaseTerminate: 4}
	last := -1
	for _, event := range events {
		rank, known := phaseOrder[event.Phase]
		require.True(t, known, "unknown phase %q", event.Phase)
		require.GreaterOrEqual(t, rank, last, "phase %q out of order", event.Phase)
		last = rank
	}
	tail := steps[len(steps)-5:]
	assert.Equal(t, []string{
		"detach/release-transfer",
		"detach/release-interrupts",
		"detach/close-handle",
		"persist/written",
		"terminate/exit",
	}, tail)

	assert.Equal(t, []string{"LOCK_AXIS_X", "LOCK_AXIS_Y", "RETRACT_LENS", "CLOSE_SHUTTER",
		"release-transfer", "release-interrupts", "close-handle"}, control.calls)
	assert.Equal(t, 1, recorder.count())
	assert.Equal(t, []int{0}, exit.codes)
	assert.Equal(t, StatusHalted, s.Status())
	assert.Equal(t, HeadParked, s.Head())
}

func TestShutdownIdempotent(t *testing.T) {
	s, recorder, _, exit := newTestSupervisor(t)
	s.Shutdown(ReasonThermalRunaway)
	firstEvents := len(s.Events().Drain())
	require.Positive(t, firstEvents)

	s.Shutdown("second trigger while already down")
	assert.Empty(t, s.Events().Drain(), "no duplicate phase execution")
	assert.Equal(t, 1, recorder.count(), "no duplicate snapshot")
	assert.Equal(t, []int{0}, exit.codes)
}

func TestShutdownIrreversible(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t)
	require.True(t, s.Armed())
	s.Shutdown("manual override")
	assert.False(t, s.Armed())
	// a later trigger cannot rearm or restart anything
	s.Shutdown("again")
	assert.False(t, s.Armed())
	assert.Equal(t, StatusHalted, s.Status())
}

func TestDischargeMonotonic(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t)
	s.Shutdown("manual override")

	var volts []float64
	var grounded bool
	for _, event := range s.Events().Drain() {
		if event.Phase != PhaseDischarge {
			continue
		}
		if event.Step == "grounded" {
			grounded = true
			assert.Equal(t, 0.0, event.Volts)
			continue
		}
		volts = append(volts, event.Volts)
	}
	require.True(t, grounded)
	require.NotEmpty(t, volts)
	previous := 12.0
	for _, v := range volts {
		assert.Less(t, v, previous, "rail must strictly decrease each step")
		previous = v
	}
	assert.Less(t, volts[len(volts)-1], 0.5)
	assert.Equal(t, 0.0, s.Rails()["VDD_OPTICAL"])
	// untouched rails keep their voltage
	assert.Equal(t, 1.2, s.Rails()["VDD_CORE"])
	assert.Equal(t, 3.3, s.Rails()["V_AUX"])
}

type fixedSensor struct {
	reading Reading
}

func (f fixedSensor) Sample() (Reading, error) { return f.reading, nil }

func TestThresholdTriggeredShutdown(t *testing.T) {
	config := DefaultConfig()
	config.Heartbeat = time.Millisecond
	stubSleep(t)
	recorder := &countingRecorder{}
	exit := &exitRecorder{}
	s := New(config,
		WithLogger(zerolog.Nop()),
		WithRecorder(recorder),
		WithExitFunc(exit.exit),
		WithSensor(fixedSensor{reading: Reading{ThermalC: 90.0, VoltageV: 12.0}}),
	)
	require.NoError(t, s.Run(context.Background()))

	require.Equal(t, 1, recorder.count())
	assert.Equal(t, ReasonThermalRunaway, recorder.snapshots[0].Reason)
	assert.Equal(t, []int{0}, exit.codes)
	assert.False(t, s.Armed())
}

func TestOvervoltageTriggeredShutdown(t *testing.T) {
	config := DefaultConfig()
	config.Heartbeat = time.Millisecond
	stubSleep(t)
	recorder := &countingRecorder{}
	s := New(config,
		WithLogger(zerolog.Nop()),
		WithRecorder(recorder),
		WithExitFunc(func(int) {}),
		WithSensor(fixedSensor{reading: Reading{ThermalC: 50.0, VoltageV: 13.2}}),
	)
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, 1, recorder.count())
	assert.Equal(t, ReasonVoltageSpike, recorder.snapshots[0].Reason)
}

// An external interrupt and a threshold breach must walk the identical
// sequence: same phases, same steps.
func TestSignalAndThresholdConverge(t *testing.T) {
	byThreshold, _, _, _ := newTestSupervisor(t)
	byThreshold.Shutdown(ReasonThermalRunaway)

	byInterrupt, _, _, _ := newTestSupervisor(t)
	done := make(chan error, 1)
	go func() { done <- byInterrupt.Run(context.Background()) }()
	byInterrupt.Interrupt("External Signal Interrupt (SIGTERM)")
	require.NoError(t, <-done)

	thresholdSteps := phaseSteps(byThreshold.Events().Drain())
	interruptSteps := phaseSteps(byInterrupt.Events().Drain())
	// persist detail differs (snapshot URL), steps must not
	assert.Equal(t, thresholdSteps, interruptSteps)
}

func TestForcedHaltOnPhaseError(t *testing.T) {
	s, recorder, control, exit := newTestSupervisor(t)
	control.fail = "release-interrupts"
	s.Shutdown("manual override")

	assert.Equal(t, []int{1}, exit.codes, "phase failure must exit non-zero")
	assert.Equal(t, 0, recorder.count(), "remaining phases are skipped")
	steps := phaseSteps(s.Events().Drain())
	assert.Contains(t, steps, "detach/release-transfer")
	assert.NotContains(t, steps, "detach/close-handle")
	assert.Contains(t, steps[len(steps)-1], "terminate/forced-halt")
	assert.NotEqual(t, StatusHalted, s.Status())
}

func TestMonitorStopsAfterContextCancel(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Run(ctx))
	assert.True(t, s.Armed(), "cancellation alone must not disarm")
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	bad := DefaultConfig()
	bad.RailDecay = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.OpticalRail = "VDD_GHOST"
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Heartbeat = 0
	assert.Error(t, bad.Validate())
}
