// Package fuzztests houses Go fuzz harnesses that push arbitrary package
// documents through the whole checking pipeline. A harness fails on a panic,
// an internal error, a hang, or a run without errors whose layout or
// dispatch tables break their invariants.
package fuzztests
