package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSON(t *testing.T) {
	bag, fs := sample()
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true, PathMode: PathModeBasename})
	out.Timings = map[string]float64{"total_ms": 1.5}

	var buf bytes.Buffer
	if err := JSON(&buf, out); err != nil {
		t.Fatal(err)
	}
	var got struct {
		DiagnosticsOutput
		Timings map[string]float64 `json:"timings"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.Count != 2 || len(got.Diagnostics) != 2 {
		t.Fatalf("count = %d", got.Count)
	}
	d := got.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "RES1001" || d.Location != (LocationJSON{File: "shapes.yaml", Line: 4, Col: 25}) {
		t.Fatalf("first diagnostic = %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.Line != 1 {
		t.Fatalf("notes = %+v", d.Notes)
	}
	if got.Timings["total_ms"] != 1.5 {
		t.Fatalf("timings = %v", got.Timings)
	}
}

func TestJSONMax(t *testing.T) {
	bag, fs := sample()
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || out.Diagnostics[0].Notes != nil || out.Diagnostics[0].Location.Line != 0 {
		t.Fatalf("out = %+v", out)
	}
}
