package opticore

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/lumeon/opticore/model"
	"github.com/lumeon/opticore/service/safety"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from JSON or YAML; zero-valued fields inherit their
// package defaults during Service construction.
type Config struct {
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Safety  SafetyConfig  `json:"safety" yaml:"safety"`
}

// RuntimeConfig configures the dispatch engine.
type RuntimeConfig struct {
	// Mode selects SIMULATION or HARDWARE execution.
	Mode string `json:"mode" yaml:"mode"`
	// DescriptorURL locates the hardware personality manifest. Required in
	// HARDWARE mode, ignored otherwise.
	DescriptorURL string `json:"descriptorURL" yaml:"descriptorURL"`
	// NoiseSigma is the readout noise of the simulated mesh.
	NoiseSigma float64 `json:"noiseSigma" yaml:"noiseSigma"`
	// Seed fixes the mesh noise source.
	Seed int64 `json:"seed" yaml:"seed"`
	// SimLatencyMs is the artificial compute delay of the simulated path.
	SimLatencyMs int `json:"simLatencyMs" yaml:"simLatencyMs"`
	// PoolSizeMB sizes the transfer arena used in HARDWARE mode.
	PoolSizeMB int `json:"poolSizeMB" yaml:"poolSizeMB"`
	// BlackboxURL is the directory the crash dump recorder writes to.
	BlackboxURL string `json:"blackboxURL" yaml:"blackboxURL"`
}

// SafetyConfig configures the supervisor. Durations are expressed in
// milliseconds so the struct round-trips through plain YAML integers.
type SafetyConfig struct {
	ThermalLimitC   float64 `json:"thermalLimitC" yaml:"thermalLimitC"`
	VoltageLimitV   float64 `json:"voltageLimitV" yaml:"voltageLimitV"`
	HeartbeatMs     int     `json:"heartbeatMs" yaml:"heartbeatMs"`
	ParkSettleMs    int     `json:"parkSettleMs" yaml:"parkSettleMs"`
	DischargeStepMs int     `json:"dischargeStepMs" yaml:"dischargeStepMs"`
	RailDecay       float64 `json:"railDecay" yaml:"railDecay"`
	RailFloorV      float64 `json:"railFloorV" yaml:"railFloorV"`
	// Rails overrides the initial supervised rail voltages.
	Rails map[string]float64 `json:"rails,omitempty" yaml:"rails,omitempty"`
}

// DefaultConfig returns a Config running a simulated device with stock
// safety thresholds.
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Mode:         string(model.ModeSimulated),
			NoiseSigma:   0.001,
			Seed:         1,
			SimLatencyMs: 5,
			PoolSizeMB:   64,
			BlackboxURL:  "file://localhost/var/log/opticore",
		},
		Safety: SafetyConfig{
			ThermalLimitC:   85.0,
			VoltageLimitV:   12.5,
			HeartbeatMs:     1000,
			ParkSettleMs:    200,
			DischargeStepMs: 100,
			RailDecay:       0.2,
			RailFloorV:      0.5,
		},
	}
}

// Validate returns an error describing the first invalid setting, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if _, err := model.ParseMode(c.Runtime.Mode); err != nil {
		return err
	}
	if model.Mode(c.Runtime.Mode) == model.ModeHardware && c.Runtime.DescriptorURL == "" {
		return fmt.Errorf("runtime.descriptorURL is required in %s mode", model.ModeHardware)
	}
	if c.Runtime.NoiseSigma < 0 {
		return fmt.Errorf("runtime.noiseSigma must be >= 0")
	}
	if c.Runtime.PoolSizeMB < 0 {
		return fmt.Errorf("runtime.poolSizeMB must be >= 0")
	}
	supervised := c.safetyConfig()
	return supervised.Validate()
}

// safetyConfig converts the serialisable safety block into the supervisor
// configuration, filling package defaults for zero-valued fields.
func (c *Config) safetyConfig() safety.Config {
	out := safety.DefaultConfig()
	if c.Safety.ThermalLimitC > 0 {
		out.ThermalLimitC = c.Safety.ThermalLimitC
	}
	if c.Safety.VoltageLimitV > 0 {
		out.VoltageLimitV = c.Safety.VoltageLimitV
	}
	if c.Safety.HeartbeatMs > 0 {
		out.Heartbeat = time.Duration(c.Safety.HeartbeatMs) * time.Millisecond
	}
	if c.Safety.ParkSettleMs > 0 {
		out.ParkSettle = time.Duration(c.Safety.ParkSettleMs) * time.Millisecond
	}
	if c.Safety.DischargeStepMs > 0 {
		out.DischargeStep = time.Duration(c.Safety.DischargeStepMs) * time.Millisecond
	}
	if c.Safety.RailDecay > 0 {
		out.RailDecay = c.Safety.RailDecay
	}
	if c.Safety.RailFloorV > 0 {
		out.RailFloorV = c.Safety.RailFloorV
	}
	if len(c.Safety.Rails) > 0 {
		out.Rails = c.Safety.Rails
	}
	return out
}

// LoadConfig reads a YAML configuration from URL, overlaying the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, &ConfigurationError{Field: "configURL", Err: err}
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, &ConfigurationError{Field: "config", Err: err}
	}
	if err := config.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "config", Err: err}
	}
	return config, nil
}
