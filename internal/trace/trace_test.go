package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "ERROR", "Phase", "detail", "debug"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopePackage) {
		t.Error("phase level must drop package events")
	}
	if !LevelDetail.ShouldEmit(ScopePackage) || LevelDetail.ShouldEmit(ScopeDecl) {
		t.Error("detail level must keep package and drop decl events")
	}
	if LevelOff.ShouldEmit(ScopeDriver) {
		t.Error("off must drop everything")
	}
}

func TestRingTracerWraps(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeDecl, name, "")
	}
	snap := ring.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	got := []string{snap[0].Name, snap[1].Name, snap[2].Name}
	if strings.Join(got, "") != "cde" {
		t.Fatalf("unexpected ring order %v", got)
	}
}

func TestStreamTracerSpan(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDetail, FormatText)
	span := Begin(st, ScopePass, "layout.fixpoint", 0)
	inner := Begin(st, ScopeDecl, "class:A", span.ID())
	inner.End("")
	span.WithExtra("rounds", "2").End("done")

	out := buf.String()
	if strings.Contains(out, "class:A") {
		t.Fatalf("decl span leaked at detail level:\n%s", out)
	}
	if !strings.Contains(out, "→ layout.fixpoint") || !strings.Contains(out, "(done) {rounds=2}") {
		t.Fatalf("unexpected trace output:\n%s", out)
	}
	if inner.ID() != 0 {
		t.Fatal("filtered span must be inert")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, ring, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop || ring != nil {
		t.Fatalf("New(off) = %v, %v, %v", tr, ring, err)
	}
}
