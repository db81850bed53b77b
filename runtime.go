package opticore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/lumeon/opticore/internal/clock"
	"github.com/lumeon/opticore/model"
	"github.com/lumeon/opticore/runtime/dispatch"
	"github.com/lumeon/opticore/service/buffer"
	"github.com/lumeon/opticore/service/crossbar"
	"github.com/lumeon/opticore/service/dao"
	"github.com/lumeon/opticore/service/telemetry"
	"github.com/lumeon/opticore/service/transfer"
	"github.com/lumeon/opticore/tracing"
)

// Runtime is the dispatch engine: it owns the device link status, routes
// tensor transforms through the simulated or the hardware path and keeps
// the dispatch audit trail.
type Runtime struct {
	mode          model.Mode
	descriptorURL string
	simLatency    time.Duration
	logger        zerolog.Logger
	fs            afs.Service

	mesh        *crossbar.Crossbar
	provider    buffer.Provider
	channel     transfer.Channel
	dispatchDAO dao.Service[string, dispatch.Dispatch]
	telemetry   *telemetry.Provider

	// faultFn escalates a mid-transfer hardware fault. Wired to the
	// supervisor by the service facade.
	faultFn func(reason string)

	mu         sync.RWMutex
	status     model.Status
	descriptor *model.Descriptor

	// hwMu serializes hardware dispatches; the transfer engine holds one
	// exchange in flight at a time.
	hwMu sync.Mutex

	startedAt  atomic.Int64
	dispatches atomic.Int64
	halted     atomic.Bool
}

// Mode returns the execution mode fixed at construction.
func (r *Runtime) Mode() model.Mode { return r.mode }

// Status returns the device link status.
func (r *Runtime) Status() model.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// StartedAt returns the initialization instant in unix nanoseconds, zero
// when the runtime has not been initialized.
func (r *Runtime) StartedAt() int64 { return r.startedAt.Load() }

// DispatchCount returns the number of dispatches accepted so far.
func (r *Runtime) DispatchCount() int { return int(r.dispatches.Load()) }

// Descriptor returns the loaded hardware personality, nil in SIMULATION
// mode or before initialization.
func (r *Runtime) Descriptor() *model.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descriptor
}

func (r *Runtime) setStatus(status model.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// Initialize brings the device link up. In SIMULATION mode the link is
// virtual and always succeeds; in HARDWARE mode the personality descriptor
// is loaded and validated first.
func (r *Runtime) Initialize(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "runtime.initialize")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	r.logger.Info().Str("mode", string(r.mode)).Msg("initializing device link")
	if r.mode == model.ModeSimulated {
		r.setStatus(model.StatusVirtualReady)
		r.startedAt.Store(clock.Now().UnixNano())
		r.logger.Info().Msg("virtual device ready")
		return nil
	}

	descriptor, err := r.loadDescriptor(ctx)
	if err != nil {
		r.setStatus(model.StatusError)
		return err
	}
	r.mu.Lock()
	r.descriptor = descriptor
	r.status = model.StatusHardwareLinked
	r.mu.Unlock()
	r.startedAt.Store(clock.Now().UnixNano())
	r.logger.Info().
		Str("device", descriptor.Device).
		Str("meshProgram", descriptor.MeshProgram).
		Int("channels", descriptor.Channels).
		Msg("hardware link established")
	return nil
}

func (r *Runtime) loadDescriptor(ctx context.Context) (*model.Descriptor, error) {
	if r.descriptorURL == "" {
		return nil, &ConfigurationError{Field: "descriptorURL", Err: fmt.Errorf("required in %s mode", model.ModeHardware)}
	}
	data, err := r.fs.DownloadWithURL(ctx, r.descriptorURL)
	if err != nil {
		return nil, &ConfigurationError{Field: "descriptorURL", Err: err}
	}
	descriptor := &model.Descriptor{}
	if err := yaml.Unmarshal(data, descriptor); err != nil {
		return nil, &ConfigurationError{Field: "descriptor", Err: err}
	}
	if err := descriptor.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "descriptor", Err: err}
	}
	return descriptor, nil
}

// Dispatch routes one tensor transform through the active execution path.
// The result is a Rows x Rows matrix of pairwise row products with the
// analog readout characteristics of the mesh.
func (r *Runtime) Dispatch(ctx context.Context, input model.Matrix) (model.Matrix, error) {
	ctx, span := tracing.StartSpan(ctx, "runtime.dispatch")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if r.halted.Load() {
		err = &ConnectionError{Op: "dispatch", Status: model.StatusOffline}
		return model.Matrix{}, err
	}
	if status := r.Status(); !status.Ready() {
		err = &ConnectionError{Op: "dispatch", Status: status}
		return model.Matrix{}, err
	}
	if err = input.Validate(); err != nil {
		return model.Matrix{}, err
	}

	record := dispatch.New(r.mode, input.Rows, input.Cols)
	_ = r.dispatchDAO.Save(ctx, record)
	r.dispatches.Add(1)
	r.logger.Debug().
		Str("dispatchID", record.ID).
		Int("rows", input.Rows).
		Int("cols", input.Cols).
		Msg("dispatch accepted")

	var result model.Matrix
	record.Start()
	if r.mode == model.ModeSimulated {
		result, err = r.dispatchSimulated(input)
	} else {
		result, err = r.dispatchHardware(ctx, record, input)
	}
	if err != nil {
		record.Fail(err)
		_ = r.dispatchDAO.Save(ctx, record)
		return model.Matrix{}, err
	}
	record.Complete()
	_ = r.dispatchDAO.Save(ctx, record)
	return result, nil
}

// dispatchSimulated stages the input into host memory and computes the
// transform numerically after the modelled core latency. Buffers follow the
// same allocate/release lifecycle as the hardware path.
func (r *Runtime) dispatchSimulated(input model.Matrix) (model.Matrix, error) {
	shape := buffer.Shape{Rows: input.Rows, Cols: input.Cols}
	in, out, err := r.provider.Allocate(shape)
	if err != nil {
		return model.Matrix{}, err
	}
	defer r.releasePair(in, out)

	copy(in.Data, input.Data)
	clock.Sleep(r.simLatency)
	result := r.mesh.Multiply(in.Matrix())
	if result.Elements() == out.Shape.Elements() {
		copy(out.Data, result.Data)
	}
	return result, nil
}

// dispatchHardware stages the input into transfer memory, runs the
// dual-channel exchange and copies the result out before the buffers are
// returned. A transfer fault poisons the link and escalates to shutdown.
func (r *Runtime) dispatchHardware(ctx context.Context, record *dispatch.Dispatch, input model.Matrix) (model.Matrix, error) {
	if !input.Square() {
		return model.Matrix{}, fmt.Errorf("hardware path requires a square input, had %dx%d", input.Rows, input.Cols)
	}
	r.hwMu.Lock()
	defer r.hwMu.Unlock()

	shape := buffer.Shape{Rows: input.Rows, Cols: input.Cols}
	in, out, err := r.provider.Allocate(shape)
	if err != nil {
		return model.Matrix{}, err
	}
	defer r.releasePair(in, out)

	copy(in.Data, input.Data)
	record.Transferring()
	if err := r.channel.Transfer(ctx, in, out); err != nil {
		return model.Matrix{}, err
	}
	if err := r.channel.Wait(ctx); err != nil {
		if fault, ok := err.(*transfer.Fault); ok {
			r.setStatus(model.StatusError)
			r.logger.Error().
				Str("direction", string(fault.Direction)).
				Str("reason", fault.Reason).
				Msg("transfer fault, escalating")
			if r.faultFn != nil {
				r.faultFn(fault.Reason)
			}
		}
		return model.Matrix{}, err
	}
	return out.Matrix().Clone(), nil
}

// releasePair returns both buffers of a dispatch; failures are logged, not
// surfaced, so release runs on every exit path.
func (r *Runtime) releasePair(in, out *buffer.Buffer) {
	if err := r.provider.Release(in); err != nil {
		r.logger.Warn().Err(err).Msg("input buffer release failed")
	}
	if err := r.provider.Release(out); err != nil {
		r.logger.Warn().Err(err).Msg("output buffer release failed")
	}
}

// Halt rejects all further dispatches. Called by the supervisor on shutdown
// entry; there is no way back to an accepting state.
func (r *Runtime) Halt() {
	if r.halted.CompareAndSwap(false, true) {
		r.setStatus(model.StatusOffline)
		r.logger.Warn().Msg("dispatch engine halted")
	}
}

// Telemetry returns the current device vitals snapshot.
func (r *Runtime) Telemetry() telemetry.Snapshot {
	return r.telemetry.Snapshot()
}

// Dispatches returns the audit trail of accepted dispatches.
func (r *Runtime) Dispatches(ctx context.Context) ([]*dispatch.Dispatch, error) {
	return r.dispatchDAO.List(ctx)
}

// DispatchByID returns one dispatch record, nil when unknown.
func (r *Runtime) DispatchByID(ctx context.Context, id string) (*dispatch.Dispatch, error) {
	return r.dispatchDAO.Load(ctx, id)
}

// PruneDispatches removes terminal dispatch records from the audit trail,
// returning how many were removed. In-flight records are kept.
func (r *Runtime) PruneDispatches(ctx context.Context) (int, error) {
	records, err := r.dispatchDAO.List(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, record := range records {
		if !record.State.Terminal() {
			continue
		}
		if err := r.dispatchDAO.Delete(ctx, record.ID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

var _ telemetry.Source = (*Runtime)(nil)
