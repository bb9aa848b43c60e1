package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(2 * time.Millisecond), base.Add(2 * time.Millisecond), base.Add(5 * time.Millisecond)}
	tm := NewTimer()
	tm.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	tm.Measure("resolve", func() string { return "3 packages" })
	idx := tm.Begin("layout")
	tm.End(idx, "")
	tm.End(99, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].DurationMS != 2 || r.Phases[1].DurationMS != 3 || r.TotalMS != 5 {
		t.Fatalf("unexpected report %+v", r)
	}
	if s := tm.Summary(); !strings.Contains(s, "// 3 packages") || !strings.Contains(s, "total") {
		t.Fatalf("unexpected summary:\n%s", s)
	}
}
