// Package tracing wires OpenTelemetry into the engine behind two small
// helpers (StartSpan/EndSpan) so instrumented code never imports the
// upstream packages directly. Applications that do not need tracing simply
// never call Init and every span becomes a no-op.
package tracing
