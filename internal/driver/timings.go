package driver

import (
	"fmt"

	"kpc/internal/observ"
)

// Timings is the serialisable timing report of a compilation.
type Timings struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// Timings returns the phase report, or nil when timings were not requested.
func (r *Result) Timings(path string) *Timings {
	if r == nil || r.Timer == nil {
		return nil
	}
	report := r.Timer.Report()
	return &Timings{Kind: "pipeline", Path: path, TotalMS: report.TotalMS, Phases: report.Phases}
}

func (t *Timings) String() string {
	msg := fmt.Sprintf("timings (%s): total %.2f ms", t.Kind, t.TotalMS)
	if t.Path != "" {
		msg += " for " + t.Path
	}
	return msg
}
