// Package trace records what the checker is doing, phase by phase.
//
// Enable it from the CLI:
//
//	kpc check --trace=- --trace-level=detail
//
// Tracers:
//
//   - Nop: disabled, zero overhead
//   - StreamTracer: writes text or NDJSON lines as events arrive
//   - RingTracer: keeps the last events in memory; the driver dumps it
//     when an internal consistency error aborts the run
//   - MultiTracer: fan-out
//
// Scopes go from coarse to fine: driver, pass, package, decl. The level
// decides which scopes are emitted.
//
// Tracers travel through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "layout.fixpoint", 0)
//	defer span.End("")
package trace
