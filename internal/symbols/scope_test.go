package symbols

import (
	"testing"

	"kpc/internal/source"
)

func TestScopeInsertKeepsOrder(t *testing.T) {
	strs := source.NewInterner()
	s := NewScope[int](ScopePackage, nil)
	names := []string{"zeta", "alpha", "mid"}
	for i, n := range names {
		if _, ok := s.Insert(strs.Intern(n), i, source.Pos{File: 1, Line: uint32(i + 1)}); !ok {
			t.Fatalf("insert %q failed", n)
		}
	}
	prev, ok := s.Insert(strs.Intern("alpha"), 42, source.NoPos)
	if ok {
		t.Fatal("duplicate insert must fail")
	}
	if prev.Value != 1 || prev.Pos.Line != 2 {
		t.Fatalf("conflict returned %+v", prev)
	}
	got := s.Values()
	want := []int{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
}

func TestScopeChainedLookup(t *testing.T) {
	strs := source.NewInterner()
	uses := NewScope[string](ScopeUses, nil)
	pkg := NewScope[string](ScopePackage, uses)
	circle := strs.Intern("Circle")
	round := strs.Intern("Round")

	uses.Insert(round, "Shapes.Circle", source.NoPos)
	pkg.Insert(circle, "Main.Circle", source.NoPos)

	if e, ok := pkg.Lookup(round); !ok || e.Value != "Shapes.Circle" {
		t.Fatalf("chained lookup failed: %+v %v", e, ok)
	}
	if _, ok := pkg.LookupLocal(round); ok {
		t.Fatal("LookupLocal must not walk the chain")
	}
	if !pkg.Replace(circle, "Main.Circle2") {
		t.Fatal("Replace failed")
	}
	if e, _ := pkg.Lookup(circle); e.Value != "Main.Circle2" {
		t.Fatalf("Replace did not rebind: %v", e.Value)
	}
	var nilScope *Scope[string]
	if nilScope.Len() != 0 || nilScope.Values() != nil {
		t.Fatal("nil scope must behave as empty")
	}
}
