package safety

import (
	"context"
	"fmt"

	"github.com/lumeon/opticore/internal/clock"
	"github.com/lumeon/opticore/internal/idgen"
	"github.com/lumeon/opticore/service/blackbox"
	"github.com/lumeon/opticore/tracing"
)

// runSequence executes phases 1-4 in strict order. The first unrecoverable
// error aborts the sequence; a persistence failure does not.
func (s *Supervisor) runSequence(ctx context.Context, reason string) error {
	ctx, span := tracing.StartSpan(ctx, "safety.shutdown")
	span.WithAttributes(map[string]string{"reason": reason})
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if err = s.parkOpticalHeads(ctx); err != nil {
		return err
	}
	if err = s.dischargeRails(ctx); err != nil {
		return err
	}
	if err = s.detachControlPlane(ctx); err != nil {
		return err
	}
	s.persistSnapshot(ctx, reason)
	return nil
}

// parkOpticalHeads retracts the transceiver array to its home position so a
// power loss cannot misalign it. Each actuator command settles before the
// next is issued.
func (s *Supervisor) parkOpticalHeads(ctx context.Context) error {
	_, span := tracing.StartSpan(ctx, "safety.park")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	s.logger.Info().Msg("phase 1: parking optical transceivers")
	for _, command := range parkCommands {
		clock.Sleep(s.config.ParkSettle)
		if err = s.control.Command(ctx, command); err != nil {
			err = fmt.Errorf("optics command %s failed: %w", command, err)
			return err
		}
		s.journal(Event{Phase: PhasePark, Step: command})
		s.logger.Info().Str("command", command).Msg("optics command executed")
	}
	s.mu.Lock()
	s.head = HeadParked
	s.mu.Unlock()
	s.logger.Info().Msg("phase 1 complete: optics secure")
	return nil
}

// dischargeRails drains the high-voltage optical rail with a fixed
// fractional decay per step, then grounds it to exactly zero. The blocking
// delay between steps protects the memristor filaments from a hard drop.
func (s *Supervisor) dischargeRails(ctx context.Context) error {
	_, span := tracing.StartSpan(ctx, "safety.discharge")
	defer tracing.EndSpan(span, nil)

	s.logger.Info().Str("rail", s.config.OpticalRail).Msg("phase 2: discharging high-voltage rail")
	s.mu.RLock()
	volts := s.rails[s.config.OpticalRail]
	s.mu.RUnlock()

	for volts > s.config.RailFloorV {
		volts -= volts * s.config.RailDecay
		s.setRail(s.config.OpticalRail, volts)
		s.journal(Event{Phase: PhaseDischarge, Step: "step", Volts: volts})
		s.logger.Info().Float64("volts", volts).Msg("rail discharging")
		clock.Sleep(s.config.DischargeStep)
	}
	s.setRail(s.config.OpticalRail, 0.0)
	s.journal(Event{Phase: PhaseDischarge, Step: "grounded", Volts: 0.0})
	s.logger.Info().Msg("phase 2 complete: rail grounded")
	return nil
}

func (s *Supervisor) setRail(name string, volts float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rails[name] = volts
}

// detachControlPlane tears the device link down in three discrete steps so
// the host OS never sees a dangling transfer engine or interrupt line.
func (s *Supervisor) detachControlPlane(ctx context.Context) error {
	_, span := tracing.StartSpan(ctx, "safety.detach")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	s.logger.Info().Msg("phase 3: detaching control-plane link")
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"release-transfer", s.control.ReleaseTransfer},
		{"release-interrupts", s.control.ReleaseInterrupts},
		{"close-handle", s.control.Close},
	}
	for _, step := range steps {
		if err = step.run(ctx); err != nil {
			err = fmt.Errorf("detach step %s failed: %w", step.name, err)
			return err
		}
		s.journal(Event{Phase: PhaseDetach, Step: step.name})
		s.logger.Info().Str("step", step.name).Msg("control-plane step executed")
	}
	s.logger.Info().Msg("phase 3 complete: control plane detached")
	return nil
}

// persistSnapshot writes the black box record. Failure is logged and the
// sequence continues: forensics never block a safe halt.
func (s *Supervisor) persistSnapshot(ctx context.Context, reason string) {
	_, span := tracing.StartSpan(ctx, "safety.persist")
	defer tracing.EndSpan(span, nil)

	s.logger.Info().Msg("phase 4: writing black box recorder")
	if s.recorder == nil {
		s.journal(Event{Phase: PhasePersist, Step: "skipped", Detail: "no recorder configured"})
		s.logger.Warn().Msg("no black box recorder configured")
		return
	}
	now := clock.Now()
	snapshot := &blackbox.Snapshot{
		Timestamp:         now,
		Reason:            reason,
		FinalVoltageState: s.Rails(),
		OpticalState:      string(s.Head()),
		UptimeSeconds:     now.Sub(s.startedAt).Seconds(),
		MemoryDumpRef:     "dma:" + idgen.New(),
		LastKernelMessage: "PCIe link down",
	}
	URL, err := s.recorder.Record(ctx, snapshot)
	if err != nil {
		s.journal(Event{Phase: PhasePersist, Step: "failed", Detail: err.Error()})
		s.logger.Error().Err(err).Msg("black box write failed")
		return
	}
	s.journal(Event{Phase: PhasePersist, Step: "written", Detail: URL})
	s.logger.Info().Msg("phase 4 complete: data persisted")
}
