package blackbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/lumeon/opticore/internal/clock"
)

func TestRecorderWritesSnapshot(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	ctx := context.Background()
	fs := afs.New()
	recorder := New(fs, "mem://localhost/blackbox", zerolog.Nop())

	snapshot := &Snapshot{
		Timestamp:         now,
		Reason:            "THERMAL RUNAWAY",
		FinalVoltageState: map[string]float64{"VDD_CORE": 1.2, "VDD_OPTICAL": 0.0, "V_AUX": 3.3},
		OpticalState:      "PARKED",
		UptimeSeconds:     12.5,
		MemoryDumpRef:     "dma:test",
		LastKernelMessage: "PCIe link down",
	}
	URL, err := recorder.Record(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "mem://localhost/blackbox/crash_dump_1700000000.json", URL)

	data, err := fs.DownloadWithURL(ctx, URL)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "THERMAL RUNAWAY", decoded["reason"])
	assert.Equal(t, "PARKED", decoded["optical_state"])
	assert.Equal(t, "PCIe link down", decoded["last_kernel_message"])
	rails := decoded["final_voltage_state"].(map[string]interface{})
	assert.Equal(t, 0.0, rails["VDD_OPTICAL"])
}

func TestRecorderWritesAtMostOnce(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	recorder := New(fs, "mem://localhost/blackbox-once", zerolog.Nop())

	first, err := recorder.Record(ctx, &Snapshot{Reason: "VOLTAGE SPIKE"})
	require.NoError(t, err)
	assert.True(t, recorder.Written())

	second, err := recorder.Record(ctx, &Snapshot{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	objects, err := fs.List(ctx, "mem://localhost/blackbox-once")
	require.NoError(t, err)
	files := 0
	for _, object := range objects {
		if !object.IsDir() {
			files++
		}
	}
	assert.Equal(t, 1, files)
}

func TestRecorderSurfacesPersistenceError(t *testing.T) {
	ctx := context.Background()
	recorder := New(afs.New(), "mem:///", zerolog.Nop())
	// Force a marshal failure through a NaN value, which JSON rejects.
	_, err := recorder.Record(ctx, &Snapshot{
		Reason:            "forced",
		FinalVoltageState: map[string]float64{"VDD_OPTICAL": nan()},
	})
	require.Error(t, err)
	var persistence *PersistenceError
	assert.ErrorAs(t, err, &persistence)
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
