package safety

import "time"

// Shutdown phase names, in execution order.
const (
	PhasePark      = "park"
	PhaseDischarge = "discharge"
	PhaseDetach    = "detach"
	PhasePersist   = "persist"
	PhaseTerminate = "terminate"
)

// Event is one discrete, ordered step of the shutdown sequence. The journal
// of events is the observable record the phase-ordering guarantees are
// verified against.
type Event struct {
	Phase  string    `json:"phase"`
	Step   string    `json:"step"`
	Detail string    `json:"detail,omitempty"`
	Volts  float64   `json:"volts,omitempty"`
	At     time.Time `json:"at"`
}
