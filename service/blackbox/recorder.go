// Package blackbox persists the forensic snapshot written during shutdown.
// One recorder writes at most one snapshot per process lifetime.
package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/lumeon/opticore/internal/clock"
)

// Snapshot is the immutable forensic record. Field names are fixed for
// post-mortem tooling compatibility.
type Snapshot struct {
	Timestamp         time.Time          `json:"timestamp"`
	Reason            string             `json:"reason"`
	FinalVoltageState map[string]float64 `json:"final_voltage_state"`
	OpticalState      string             `json:"optical_state"`
	UptimeSeconds     float64            `json:"uptime_seconds"`
	MemoryDumpRef     string             `json:"memory_dump_ref"`
	LastKernelMessage string             `json:"last_kernel_message"`
}

// PersistenceError reports a failed snapshot write. It is logged, never
// escalated: losing forensics must not abort the shutdown sequence.
type PersistenceError struct {
	URL string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist black box snapshot to %s: %v", e.URL, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Recorder serializes snapshots into the configured log directory. Any
// afs-addressable URL works (file, mem://, cloud storage).
type Recorder struct {
	fs      afs.Service
	baseURL string
	logger  zerolog.Logger

	mu         sync.Mutex
	written    bool
	writtenURL string
}

// New creates a recorder writing under baseURL.
func New(fs afs.Service, baseURL string, logger zerolog.Logger) *Recorder {
	return &Recorder{fs: fs, baseURL: baseURL, logger: logger}
}

// Record writes the snapshot as a self-describing JSON document keyed by
// the shutdown timestamp. A second call is a no-op returning the first
// document's URL.
func (r *Recorder) Record(ctx context.Context, snapshot *Snapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.written {
		return r.writtenURL, nil
	}
	r.written = true

	name := fmt.Sprintf("crash_dump_%d.json", clock.Now().Unix())
	URL := url.Join(r.baseURL, name)
	data, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		return "", &PersistenceError{URL: URL, Err: err}
	}
	if err := r.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewBuffer(data)); err != nil {
		return "", &PersistenceError{URL: URL, Err: err}
	}
	r.writtenURL = URL
	r.logger.Info().Str("url", URL).Msg("black box snapshot persisted")
	return URL, nil
}

// Written reports whether a snapshot has been persisted.
func (r *Recorder) Written() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
