// Package opticore provides the runtime engine and safety supervisor for a
// photonic tensor co-processor.
//
// The engine executes tensor transforms through one of two interchangeable
// paths selected at construction: a numeric simulation of the optical
// crossbar, or a buffer-staged exchange over the hardware transfer channel.
// A safety supervisor runs alongside the engine, sampling device vitals
// against static thermal and voltage thresholds, and on any excursion or
// external interrupt executes a strictly ordered shutdown sequence ending
// in process termination.
//
// Host applications interact through the Service facade exposed by this
// package:
//
//	srv, _ := opticore.New(opticore.WithConfig(config))
//	_ = srv.Start(ctx)
//	out, _ := srv.Runtime().Dispatch(ctx, input)
//
// For details see the individual sub-packages.
package opticore
