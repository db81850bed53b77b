// Package telemetry builds point-in-time status snapshots of the
// accelerator. Snapshot assembly is a pure read with no side effects.
package telemetry

import (
	"github.com/lumeon/opticore/internal/clock"
	"github.com/lumeon/opticore/model"
)

// Snapshot is one synthetic reading of the device vitals.
type Snapshot struct {
	Status            model.Status `json:"status"`
	Mode              model.Mode   `json:"mode"`
	CoreTempC         float64      `json:"coreTempC"`
	PowerDrawWatts    float64      `json:"powerDrawWatts"`
	LinkStability     string       `json:"opticalLinkStability"`
	DACResolutionBits int          `json:"dacResolutionBits"`
	BusWidthBits      int          `json:"busWidthBits"`
	UptimeSeconds     float64      `json:"uptimeSeconds"`
	Dispatches        int          `json:"dispatches"`
}

// Source exposes the runtime state a snapshot is derived from.
type Source interface {
	Mode() model.Mode
	Status() model.Status
	StartedAt() (startedAt int64) // unix nanoseconds; zero when not started
	DispatchCount() int
}

// Provider derives snapshots from a source. It holds no state of its own.
type Provider struct {
	source Source
}

// New creates a provider over the given source.
func New(source Source) *Provider { return &Provider{source: source} }

// Snapshot returns the current vitals. Thermal and power figures are
// synthetic; real sensor fusion sits below the register protocol, which is
// out of scope.
func (p *Provider) Snapshot() Snapshot {
	mode := p.source.Mode()
	snapshot := Snapshot{
		Status:            p.source.Status(),
		Mode:              mode,
		LinkStability:     "99.8%",
		DACResolutionBits: 12,
		BusWidthBits:      128,
		Dispatches:        p.source.DispatchCount(),
	}
	if mode == model.ModeSimulated {
		snapshot.CoreTempC = 42.5
		snapshot.PowerDrawWatts = 0.5
	} else {
		snapshot.CoreTempC = 38.0
		snapshot.PowerDrawWatts = 12.4
	}
	if startedAt := p.source.StartedAt(); startedAt > 0 {
		snapshot.UptimeSeconds = float64(clock.Now().UnixNano()-startedAt) / 1e9
	}
	return snapshot
}
