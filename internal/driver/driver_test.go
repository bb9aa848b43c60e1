package driver

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/export"
	"kpc/internal/loader"
	"kpc/internal/session"
	"kpc/internal/testkit"
	"kpc/internal/types"
)

func inputs(docs ...string) []loader.Input {
	out := make([]loader.Input, len(docs))
	for i, doc := range docs {
		out[i] = loader.Input{Path: "pkg" + string(rune('a'+i)) + ".yaml", Content: []byte(doc)}
	}
	return out
}

func compile(t *testing.T, opts Options, docs ...string) *Result {
	t.Helper()
	res, err := Compile(context.Background(), inputs(docs...), opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return res
}

func messages(res *Result) []string {
	var out []string
	for _, d := range res.Session.Bag.Items() {
		out = append(out, d.Code.ID()+" "+d.Message)
	}
	return out
}

func requireClean(t *testing.T, res *Result) {
	t.Helper()
	if res.Session.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", messages(res))
	}
}

// requireSound checks the layout and dispatch invariants of a clean run.
func requireSound(t *testing.T, res *Result) {
	t.Helper()
	requireClean(t, res)
	if err := testkit.CheckLayout(res.Prog, res.Order); err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckDispatch(res.Prog, res.Order); err != nil {
		t.Fatal(err)
	}
}

func lookupDef(t *testing.T, res *Result, pkg, name string) *ast.Def {
	t.Helper()
	prog := res.Prog
	for _, id := range prog.PackageIDs() {
		p := prog.Package(id)
		if prog.Name(p.Name) != pkg {
			continue
		}
		if e, ok := p.Scope.LookupLocal(prog.Strings.Intern(name)); ok {
			return prog.Def(e.Value)
		}
	}
	t.Fatalf("no %s.%s", pkg, name)
	return nil
}

func offsetOf(res *Result, d *ast.Def, sel string) int32 {
	s := res.Prog.Strings.Intern(sel)
	for _, p := range d.Protos {
		if pr := res.Prog.Proto(p); pr.Selector == s {
			return pr.Offset
		}
	}
	return -1
}

const roundTrip = `package: Shapes
header:
  classes:
    - name: A
      fields: [{name: x, type: int}]
    - name: B
      params: [T]
      super: A
      fields: [{name: y, type: {ptr: T}}]
    - name: User
      fields: [{name: b, type: {ptr: {named: B, args: [char]}}}]
`

func TestRoundTripExample(t *testing.T) {
	res := compile(t, Options{}, roundTrip)
	requireSound(t, res)

	b := lookupDef(t, res, "Shapes", "B")
	if len(b.Fields) != 2 {
		t.Fatalf("B has %d fields", len(b.Fields))
	}
	for i, want := range []struct {
		name         string
		offset, size int32
	}{{"x", 4, 4}, {"y", 8, 4}} {
		v := res.Prog.Var(b.Fields[i])
		if res.Prog.Name(v.Name) != want.name || v.Offset != want.offset || v.Size != want.size {
			t.Fatalf("field %d = %s offset %d size %d", i, res.Prog.Name(v.Name), v.Offset, v.Size)
		}
	}
	if b.Size != 12 {
		t.Fatalf("B size = %d, want 12", b.Size)
	}
}

func TestGenericSuperclassInstantiated(t *testing.T) {
	res := compile(t, Options{}, `package: Shapes
header:
  classes:
    - name: A
      fields: [{name: x, type: int}]
    - name: B
      params: [T]
      super: A
      fields: [{name: y, type: {ptr: T}}]
      methods: [{selector: get, returns: {ptr: T}}]
    - name: C
      super: {named: B, args: [char]}
`)
	requireSound(t, res)
	eng := types.New(res.Prog, diag.NopReporter{}, false, 0)

	c := lookupDef(t, res, "Shapes", "C")
	if len(c.Fields) != 2 {
		t.Fatalf("C has %d fields", len(c.Fields))
	}
	y := res.Prog.Var(c.Fields[1])
	if res.Prog.Name(y.Name) != "y" || y.Offset != 8 || y.Size != 4 {
		t.Fatalf("C.y = %s offset %d size %d", res.Prog.Name(y.Name), y.Offset, y.Size)
	}
	if got := eng.String(y.Type); got != "ptr to char" {
		t.Fatalf("C.y has type %q", got)
	}

	var get *ast.Proto
	for _, p := range c.Protos {
		if pp := res.Prog.Proto(p); res.Prog.Name(pp.Selector) == "get" {
			get = pp
		}
	}
	if get == nil || !get.From.IsValid() {
		t.Fatal("C did not inherit get")
	}
	if got := eng.String(get.Ret); got != "ptr to char" {
		t.Fatalf("C get returns %q", got)
	}
	if c.Size != 12 {
		t.Fatalf("C size = %d, want 12", c.Size)
	}
}

func TestConstantFoldingExample(t *testing.T) {
	res := compile(t, Options{}, `package: Buffers
header:
  consts:
    - name: N
      value: {op: "-", args: [{op: "*", args: [4, {sizeOf: {array: {len: 10, of: int}}}]}, 4]}
  classes:
    - name: Holder
      fields: [{name: data, type: {array: {len: N, of: char}}}]
`)
	requireSound(t, res)

	n := lookupDef(t, res, "Buffers", "N")
	if v, ok := res.Prog.IntValue(n.Value); !ok || v != 156 {
		t.Fatalf("N = %d (%v), want 156", v, ok)
	}
	holder := lookupDef(t, res, "Buffers", "Holder")
	data := res.Prog.Var(holder.Fields[0])
	if data.Offset != 4 || data.Size != 160 {
		t.Fatalf("data offset %d size %d", data.Offset, data.Size)
	}
	if holder.Size != 164 {
		t.Fatalf("Holder size = %d, want 164", holder.Size)
	}
	if res.Rounds < 2 {
		t.Fatalf("rounds = %d", res.Rounds)
	}
}

const core = `package: Core
header:
  interfaces:
    - {name: Shape, messages: [{selector: area, returns: int}, {selector: name}]}
  classes:
    - name: Base
      implements: [Shape]
      fields: [{name: id, type: int}]
      methods: [{selector: key, returns: int}, {selector: name}, {selector: area, returns: int}]
`

const app = `package: App
uses: [Core]
header:
  classes:
    - name: Circle
      super: Base
      fields: [{name: radius, type: int}]
      methods: [{selector: radius, returns: int}]
`

func TestExportReuse(t *testing.T) {
	dir := t.TempDir()
	first := compile(t, Options{ExportDir: dir}, core, app)
	requireSound(t, first)
	if len(first.Imported) != 0 {
		t.Fatalf("nothing to import yet, imported %v", first.Imported)
	}
	for _, pkg := range []string{"Core", "App"} {
		if _, ok, err := export.Read(dir, pkg); !ok || err != nil {
			t.Fatalf("export of %s: ok=%v err=%v", pkg, ok, err)
		}
	}

	second := compile(t, Options{ExportDir: dir}, core, app)
	requireSound(t, second)
	if len(second.Imported) != 2 {
		t.Fatalf("imported %d packages, want 2", len(second.Imported))
	}
	for _, sel := range []string{"key", "name", "area", "radius"} {
		before := offsetOf(first, lookupDef(t, first, "App", "Circle"), sel)
		after := offsetOf(second, lookupDef(t, second, "App", "Circle"), sel)
		if before <= 0 || before != after {
			t.Fatalf("Circle.%s: %d then %d", sel, before, after)
		}
	}

	// editing Core invalidates both exports
	edited := strings.Replace(core, "{selector: name}]}", "{selector: name}, {selector: color}]}", 1)
	third := compile(t, Options{ExportDir: dir}, edited, app)
	if len(third.Imported) != 0 {
		t.Fatalf("stale exports reused: %v", third.Imported)
	}
}

func TestConflictExample(t *testing.T) {
	dir := t.TempDir()
	lib := `package: Lib
header:
  interfaces:
    - {name: I1, messages: [{selector: foo}]}
    - {name: I2, messages: [{selector: foo}]}
`
	requireClean(t, compile(t, Options{ExportDir: dir}, lib))

	// unrelated in Lib, so another compiler was free to use two slots
	f, ok, err := export.Read(dir, "Lib")
	if !ok || err != nil {
		t.Fatalf("read export: ok=%v err=%v", ok, err)
	}
	for i := range f.Abstracts {
		f.Abstracts[i].Selectors[0].Offset = int32(4 * (i + 1))
	}
	if err := export.Write(dir, f); err != nil {
		t.Fatal(err)
	}

	res := compile(t, Options{ExportDir: dir}, lib, `package: App
uses: [Lib]
header:
  classes:
    - name: Both
      implements: [I1, I2]
      methods: [{selector: foo}, {selector: bar}]
`)
	if !slices.Contains(res.Imported, res.Order[0]) {
		t.Fatal("Lib offsets come from its export")
	}
	conflicts := res.Session.Bag.Filter(diag.LayConflict)
	if len(conflicts) != 1 || res.Session.Bag.Len() != 1 {
		t.Fatalf("diagnostics: %v", messages(res))
	}
	if msg := conflicts[0].Message; !strings.Contains(msg, "I1") || !strings.Contains(msg, "I2") {
		t.Fatalf("conflict does not name both interfaces: %s", msg)
	}
	if got := offsetOf(res, lookupDef(t, res, "App", "Both"), "bar"); got <= 8 {
		t.Fatalf("bar at %d overlaps a reserved slot", got)
	}
}

func TestMainSelectsReachablePackages(t *testing.T) {
	extra := `package: Extra
header:
  classes: [{name: Unused}]
`
	res := compile(t, Options{Main: "App"}, core, app, extra)
	requireClean(t, res)
	var names []string
	for _, id := range res.Order {
		names = append(names, res.Prog.Name(res.Prog.Package(id).Name))
	}
	if !slices.Equal(names, []string{"Core", "App"}) {
		t.Fatalf("order = %v", names)
	}

	res = compile(t, Options{Main: "Missing"}, core)
	if len(res.Session.Bag.Filter(diag.ResUndefinedPackage)) != 1 {
		t.Fatalf("diagnostics: %v", messages(res))
	}
}

func TestErrorCeiling(t *testing.T) {
	opts := Options{Session: session.Options{MaxErrors: 1}}
	res, err := Compile(context.Background(), inputs(`package: P
header:
  classes:
    - {name: A, super: Missing1}
    - {name: B, super: Missing2}
`), opts)
	if !errors.Is(err, session.ErrTooManyErrors) {
		t.Fatalf("err = %v", err)
	}
	if res.Session.Errors() != 1 || res.Layout != nil {
		t.Fatalf("errors=%d layout ran=%v", res.Session.Errors(), res.Layout != nil)
	}
}

func TestPhasesAreObservedAndTimed(t *testing.T) {
	var events []string
	opts := Options{
		Timings: true,
		Observer: func(ev PhaseEvent) {
			events = append(events, ev.Name+":"+ev.Status.String())
		},
	}
	res := compile(t, opts, roundTrip)
	want := []string{
		"load:start", "load:end", "order:start", "order:end", "sema:start", "sema:end",
		"layout:start", "layout:end", "dispatch:start", "dispatch:end",
	}
	if !slices.Equal(events, want) {
		t.Fatalf("events = %v", events)
	}
	tm := res.Timings("shapes")
	if tm == nil || len(tm.Phases) != 5 || tm.Phases[3].Name != "layout" {
		t.Fatalf("timings = %+v", tm)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Compile(ctx, inputs(roundTrip), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
