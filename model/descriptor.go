package model

import "fmt"

// Descriptor describes the hardware personality loaded in Hardware mode. It
// is the logical equivalent of the device bitstream manifest: which mesh
// program to load, how many optical channels the crossbar exposes and how
// large the transfer window is.
type Descriptor struct {
	Device       string `json:"device" yaml:"device"`
	MeshProgram  string `json:"meshProgram" yaml:"meshProgram"`
	Channels     int    `json:"channels" yaml:"channels"`
	DMAWindowMB  int    `json:"dmaWindowMB" yaml:"dmaWindowMB"`
	RegisterBase uint64 `json:"registerBase" yaml:"registerBase"`
}

// Validate returns an error describing the first invalid descriptor field.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("descriptor was empty")
	}
	if d.MeshProgram == "" {
		return fmt.Errorf("descriptor meshProgram was empty")
	}
	if d.Channels <= 0 {
		return fmt.Errorf("descriptor channels must be > 0, had %d", d.Channels)
	}
	if d.DMAWindowMB <= 0 {
		return fmt.Errorf("descriptor dmaWindowMB must be > 0, had %d", d.DMAWindowMB)
	}
	return nil
}
