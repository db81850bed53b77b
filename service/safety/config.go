package safety

import (
	"fmt"
	"time"
)

// Config holds the supervisor thresholds and shutdown phase timing. The
// zero value is not usable; start from DefaultConfig.
type Config struct {
	// ThermalLimitC is the core temperature ceiling in Celsius.
	ThermalLimitC float64
	// VoltageLimitV is the rail voltage ceiling in volts.
	VoltageLimitV float64
	// Heartbeat is the monitor loop sampling interval.
	Heartbeat time.Duration
	// RailDecay is the fractional voltage drop applied per discharge step.
	RailDecay float64
	// RailFloorV is the voltage below which the rail snaps to exactly zero.
	RailFloorV float64
	// ParkSettle is the settling delay after each optics park command.
	ParkSettle time.Duration
	// DischargeStep is the delay between discharge steps.
	DischargeStep time.Duration
	// Rails is the initial voltage of every supervised rail.
	Rails map[string]float64
	// OpticalRail names the high-voltage rail drained during discharge.
	OpticalRail string
	// JournalDepth bounds the buffered shutdown event journal.
	JournalDepth int
}

// DefaultConfig mirrors the certified interlock parameters of the device.
func DefaultConfig() Config {
	return Config{
		ThermalLimitC: 85.0,
		VoltageLimitV: 12.5,
		Heartbeat:     time.Second,
		RailDecay:     0.2,
		RailFloorV:    0.5,
		ParkSettle:    200 * time.Millisecond,
		DischargeStep: 100 * time.Millisecond,
		Rails: map[string]float64{
			"VDD_CORE":    1.2,
			"VDD_OPTICAL": 12.0,
			"V_AUX":       3.3,
		},
		OpticalRail:  "VDD_OPTICAL",
		JournalDepth: 64,
	}
}

// Validate returns an aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c.ThermalLimitC <= 0 {
		return fmt.Errorf("thermal limit must be > 0, had %v", c.ThermalLimitC)
	}
	if c.VoltageLimitV <= 0 {
		return fmt.Errorf("voltage limit must be > 0, had %v", c.VoltageLimitV)
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be > 0, had %v", c.Heartbeat)
	}
	if c.RailDecay <= 0 || c.RailDecay >= 1 {
		return fmt.Errorf("rail decay must be within (0, 1), had %v", c.RailDecay)
	}
	if c.RailFloorV < 0 {
		return fmt.Errorf("rail floor must be >= 0, had %v", c.RailFloorV)
	}
	if _, ok := c.Rails[c.OpticalRail]; !ok {
		return fmt.Errorf("optical rail %q is not a supervised rail", c.OpticalRail)
	}
	return nil
}
