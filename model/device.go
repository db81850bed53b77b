package model

import "fmt"

// Mode selects the execution strategy of the accelerator runtime. It is
// fixed at construction; switching mode requires building a new runtime.
type Mode string

const (
	// ModeSimulated computes transforms numerically on the host.
	ModeSimulated Mode = "SIMULATION"
	// ModeHardware drives transforms through the transfer channel.
	ModeHardware Mode = "HARDWARE"
)

// ParseMode converts a textual mode into a Mode value.
func ParseMode(text string) (Mode, error) {
	switch Mode(text) {
	case ModeSimulated, ModeHardware:
		return Mode(text), nil
	}
	return "", fmt.Errorf("unknown device mode: %q", text)
}

// Status represents the device link status. It is set during initialization
// and is read-only afterwards except for the error transition.
type Status string

const (
	StatusOffline        Status = "OFFLINE"
	StatusVirtualReady   Status = "VIRTUAL_READY"
	StatusHardwareLinked Status = "HARDWARE_LINKED"
	StatusError          Status = "ERROR"
)

// Ready reports whether the device accepts dispatches in this status.
func (s Status) Ready() bool {
	return s == StatusVirtualReady || s == StatusHardwareLinked
}
