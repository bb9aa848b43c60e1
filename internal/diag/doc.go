// Package diag defines the diagnostic model shared by all semantic phases.
//
// A Diagnostic is a primary message bound to one AST position plus optional
// notes, each bound to a related node ("previous definition here"). The
// message is the payload users rely on; Code groups diagnostics by kind:
//
//   - RES – name resolution (undefined, duplicate, ambiguous uses, cycles)
//   - GEN – generic instantiation (argument count, constraint, size)
//   - VAR – variance of overriding and implementation
//   - LAY – layout and dispatch-table conflicts
//   - CON – compile-time constant evaluation
//   - PRJ – project files, exports and I/O
//
// Phases emit through a Reporter; they never format or print. Rendering
// lives in internal/diagfmt, error counting and the error ceiling in
// internal/session.
package diag
