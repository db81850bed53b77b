// Package dispatch models one tensor transform request as a tracked record
// with an explicit lifecycle, so callers can audit in-flight and historic
// work by ID.
package dispatch

import (
	"time"

	"github.com/lumeon/opticore/internal/clock"
	"github.com/lumeon/opticore/internal/idgen"
	"github.com/lumeon/opticore/model"
)

// State is the lifecycle position of a dispatch.
type State string

const (
	StatePending      State = "pending"
	StateStaging      State = "staging"
	StateTransferring State = "transferring"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transition can occur.
func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// Dispatch is a single tensor transform request.
type Dispatch struct {
	ID          string     `json:"id"`
	Mode        model.Mode `json:"mode"`
	Rows        int        `json:"rows"`
	Cols        int        `json:"cols"`
	State       State      `json:"state"`
	Error       string     `json:"error,omitempty"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// New creates a pending dispatch for a rows x cols input.
func New(mode model.Mode, rows, cols int) *Dispatch {
	return &Dispatch{
		ID:          idgen.New(),
		Mode:        mode,
		Rows:        rows,
		Cols:        cols,
		State:       StatePending,
		ScheduledAt: clock.Now(),
	}
}

// Start marks the dispatch as started.
func (d *Dispatch) Start() {
	now := clock.Now()
	d.StartedAt = &now
	d.State = StateStaging
}

// Transferring marks the hardware exchange as in flight.
func (d *Dispatch) Transferring() {
	d.State = StateTransferring
}

// Complete marks the dispatch as completed.
func (d *Dispatch) Complete() {
	now := clock.Now()
	d.CompletedAt = &now
	d.State = StateCompleted
}

// Fail marks the dispatch as failed.
func (d *Dispatch) Fail(err error) {
	now := clock.Now()
	d.CompletedAt = &now
	if err != nil {
		d.Error = err.Error()
	}
	d.State = StateFailed
}

// Duration returns the time between start and completion, when both known.
func (d *Dispatch) Duration() time.Duration {
	if d.StartedAt == nil || d.CompletedAt == nil {
		return 0
	}
	return d.CompletedAt.Sub(*d.StartedAt)
}
