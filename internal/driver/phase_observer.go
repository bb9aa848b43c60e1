package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a pipeline phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

func (s PhaseStatus) String() string {
	if s == PhaseStart {
		return "start"
	}
	return "end"
}

// PhaseEvent describes a phase boundary. Elapsed is set on PhaseEnd when
// tracing is enabled.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during Compile, in order,
// on the calling goroutine.
type PhaseObserver func(PhaseEvent)

// Phases lists the phase names Compile reports, in order. A run that stops
// early or writes no exports reports a prefix.
var Phases = []string{"load", "order", "sema", "layout", "dispatch", "export"}
