package ui

import (
	"strings"
	"testing"
	"time"

	"kpc/internal/driver"
)

func TestProgressModelTracksPhases(t *testing.T) {
	m := NewProgressModel("kpc check", []string{"load", "sema"}, nil).(*progressModel)

	m.Update(eventMsg{Name: "load", Status: driver.PhaseStart})
	if m.items[0].status != "running" || m.current != "load" {
		t.Fatalf("after start: %+v", m.items[0])
	}
	m.Update(eventMsg{Name: "load", Status: driver.PhaseEnd, Elapsed: 2 * time.Millisecond})
	m.Update(eventMsg{Name: "unknown", Status: driver.PhaseStart})
	if m.items[0].status != "done" || m.items[1].status != "queued" {
		t.Fatalf("items = %+v", m.items)
	}
	view := m.View()
	if !strings.Contains(view, "kpc check (load)") || !strings.Contains(view, "2.0 ms") {
		t.Fatalf("view:\n%s", view)
	}

	_, cmd := m.Update(doneMsg{})
	if cmd == nil || !m.done || m.items[1].status != "skipped" {
		t.Fatalf("done: %+v", m.items)
	}
	if view := m.View(); !strings.Contains(view, "done: kpc check") {
		t.Fatalf("view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"dispatch", 0, "dispatch"},
		{"dispatch", 8, "dispatch"},
		{"dispatch", 6, "dis..."},
		{"dispatch", 2, "di"},
	}
	for _, c := range cases {
		if got := truncate(c.in, c.width); got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.width, got, c.want)
		}
	}
}

func TestRunWithProgressReturnsCompileError(t *testing.T) {
	var out strings.Builder
	want := "boom"
	err := RunWithProgress(&out, "kpc check", func(obs driver.PhaseObserver) error {
		obs(driver.PhaseEvent{Name: "load", Status: driver.PhaseStart})
		obs(driver.PhaseEvent{Name: "load", Status: driver.PhaseEnd})
		return errString(want)
	})
	if err == nil || err.Error() != want {
		t.Fatalf("err = %v", err)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
