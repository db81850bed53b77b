package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")

	if err := Init("opticore", "0.0.1", fname); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "dispatch")
	span.WithAttributes(map[string]string{"mode": "SIMULATION"})
	EndSpan(span, nil)
	_, failing := StartSpan(ctx, "shutdown")
	EndSpan(failing, errors.New("forced halt"))

	data, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("no data written to trace file")
	}
}

func TestSpanNilSafety(t *testing.T) {
	var span *Span
	span.WithAttributes(map[string]string{"k": "v"})
	EndSpan(span, nil)

	if err := InitWithExporter("opticore", "0.0.1", nil); err != nil {
		t.Fatalf("nil exporter must be a no-op, got %v", err)
	}
}
