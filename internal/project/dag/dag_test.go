package dag

import (
	"slices"
	"testing"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

func addPackage(prog *ast.Program, name string, line uint32, uses ...string) ast.PkgID {
	id := prog.NewPackage(prog.Strings.Intern(name), source.Pos{File: 1, Line: line, Col: 1}, 1)
	pkg := prog.Package(id)
	for i, u := range uses {
		pkg.Uses = append(pkg.Uses, ast.Use{
			Name: prog.Strings.Intern(u),
			Pos:  source.Pos{File: 1, Line: line, Col: uint32(10 + i)},
		})
	}
	return id
}

func names(prog *ast.Program, ids []ast.PkgID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, prog.Name(prog.Package(id).Name))
	}
	return out
}

func TestWalkPostOrder(t *testing.T) {
	g := map[string][]string{
		"app":  {"net", "core"},
		"net":  {"core"},
		"core": nil,
	}
	got := Walk([]string{"app"}, func(n string) []string { return g[n] }, nil)
	want := []string{"core", "net", "app"}
	if !slices.Equal(got, want) {
		t.Fatalf("Walk = %v, want %v", got, want)
	}
}

func TestWalkBreaksCycles(t *testing.T) {
	g := map[string][]string{"a": {"b"}, "b": {"c"}, "c": {"a"}}
	var cycles [][2]string
	got := Walk([]string{"a"}, func(n string) []string { return g[n] }, func(from, to string) {
		cycles = append(cycles, [2]string{from, to})
	})
	if len(got) != 3 {
		t.Fatalf("every node must be ordered once, got %v", got)
	}
	if len(cycles) != 1 || cycles[0] != [2]string{"c", "a"} {
		t.Fatalf("cycles = %v", cycles)
	}
}

func TestOrderIndependentOfDeclarationOrder(t *testing.T) {
	build := func(reverse bool) []string {
		prog := ast.NewProgram(ast.Hints{}, nil, nil)
		decls := []func(){
			func() { addPackage(prog, "App", 1, "Lists", "Strings") },
			func() { addPackage(prog, "Lists", 2, "Core") },
			func() { addPackage(prog, "Strings", 3, "Core") },
			func() { addPackage(prog, "Core", 4) },
		}
		if reverse {
			slices.Reverse(decls)
		}
		for _, d := range decls {
			d()
		}
		bag := diag.NewBag(0)
		order := OrderPackages(prog, diag.BagReporter{Bag: bag}, nil)
		if bag.Len() != 0 {
			t.Fatalf("unexpected diagnostics: %d", bag.Len())
		}
		return names(prog, order)
	}

	forward, backward := build(false), build(true)
	if !slices.Equal(forward, backward) {
		t.Fatalf("order depends on declaration order: %v vs %v", forward, backward)
	}
	if want := []string{"Core", "Lists", "Strings", "App"}; !slices.Equal(forward, want) {
		t.Fatalf("order = %v, want %v", forward, want)
	}
}

func TestOrderFromMainOnlyReachable(t *testing.T) {
	prog := ast.NewProgram(ast.Hints{}, nil, nil)
	app := addPackage(prog, "App", 1, "Core")
	addPackage(prog, "Core", 2)
	addPackage(prog, "Unused", 3)

	order := OrderPackages(prog, diag.NopReporter{}, []ast.PkgID{app})
	if got := names(prog, order); !slices.Equal(got, []string{"Core", "App"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestOrderReportsCycleOnceAndContinues(t *testing.T) {
	prog := ast.NewProgram(ast.Hints{}, nil, nil)
	a := addPackage(prog, "A", 1, "B")
	addPackage(prog, "B", 2, "A")

	bag := diag.NewBag(0)
	order := OrderPackages(prog, diag.BagReporter{Bag: bag}, nil)

	cycles := bag.Filter(diag.ResPackageCycle)
	if len(cycles) != 1 {
		t.Fatalf("expected one cycle diagnostic, got %d", len(cycles))
	}
	if len(order) != 2 {
		t.Fatalf("both packages must still be ordered, got %v", names(prog, order))
	}
	// B -> A closes the cycle when walking from A; that edge is dropped.
	if !prog.Package(a).Uses[0].Target.IsValid() {
		t.Fatal("A -> B must stay bound")
	}
	if got := names(prog, order); !slices.Equal(got, []string{"B", "A"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestOrderDuplicateAndUndefined(t *testing.T) {
	prog := ast.NewProgram(ast.Hints{}, nil, nil)
	first := addPackage(prog, "Core", 1)
	addPackage(prog, "Core", 5)
	app := addPackage(prog, "App", 9, "Core", "Missing")

	bag := diag.NewBag(0)
	order := OrderPackages(prog, diag.BagReporter{Bag: bag}, nil)

	dups := bag.Filter(diag.ResDuplicatePackage)
	if len(dups) != 1 || dups[0].Primary.Line != 5 || len(dups[0].Notes) != 1 || dups[0].Notes[0].Pos.Line != 1 {
		t.Fatalf("duplicate package diagnostics: %+v", dups)
	}
	if len(bag.Filter(diag.ResUndefinedPackage)) != 1 {
		t.Fatal("expected one undefined package diagnostic")
	}
	uses := prog.Package(app).Uses
	if uses[0].Target != first || uses[1].Target.IsValid() {
		t.Fatalf("use targets = %d, %d", uses[0].Target, uses[1].Target)
	}
	if got := names(prog, order); !slices.Equal(got, []string{"Core", "App"}) {
		t.Fatalf("order = %v", got)
	}
}
