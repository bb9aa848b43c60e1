package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

const shapesHeader = `package: Shapes
uses:
  - Core
  - name: Util
    rename: {max: umax}
header:
  consts:
    - name: N
      value: {op: "-", args: [{op: "*", args: [4, {sizeOf: Buf}]}, 4]}
    - {name: Pi, type: double, value: 3.25}
  types:
    - {name: Buf, type: {array: {len: 10, of: int}}}
  interfaces:
    - name: Shape
      messages:
        - {selector: area, returns: double}
  classes:
    - name: Circle
      params: [T, {name: U, constraint: Shape}]
      super: {named: Base, args: [int]}
      implements: [Shape]
      fields:
        - {name: radius, type: double}
        - {name: tag, type: {ptr: T}}
      methods:
        - {selector: area, returns: double}
        - {selector: "+", kind: infix, params: [{name: other, type: Circle}], returns: Circle}
  functions:
    - name: unit
      params: [{name: r, type: double}]
      returns: Circle
code:
  globals:
    - {name: count, type: int, value: 0}
  functions:
    - name: unit
      params: [{name: r, type: double}]
      returns: Circle
      locals: [{name: c, type: Circle}]
  behaviors:
    - class: Circle
      methods:
        - {selector: area, returns: double}
`

func load(t *testing.T, inputs ...Input) (*ast.Program, []ast.PkgID, *diag.Bag) {
	t.Helper()
	prog := ast.NewProgram(ast.Hints{}, nil, nil)
	bag := diag.NewBag(0)
	pkgs := LoadSource(prog, diag.BagReporter{Bag: bag}, inputs...)
	return prog, pkgs, bag
}

func TestLoadHeaderAndCode(t *testing.T) {
	prog, pkgs, bag := load(t, Input{Path: "shapes.yaml", Content: []byte(shapesHeader)})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages", len(pkgs))
	}
	pkg := prog.Package(pkgs[0])
	if prog.Name(pkg.Name) != "Shapes" || !pkg.HasCode {
		t.Fatalf("package %q HasCode=%v", prog.Name(pkg.Name), pkg.HasCode)
	}
	if pkg.Pos != (source.Pos{File: 1, Line: 1, Col: 10}) {
		t.Fatalf("package position %v", pkg.Pos)
	}
	if len(pkg.Uses) != 2 || len(pkg.Uses[1].Renamings) != 1 || prog.Name(pkg.Uses[1].Renamings[0].To) != "umax" {
		t.Fatalf("uses %+v", pkg.Uses)
	}
	if len(pkg.Consts) != 2 || len(pkg.Aliases) != 1 || len(pkg.Interfaces) != 1 ||
		len(pkg.Classes) != 1 || len(pkg.Functions) != 1 || len(pkg.Globals) != 1 || len(pkg.Behaviors) != 1 {
		t.Fatalf("declaration counts: %+v", pkg)
	}

	n := prog.Def(pkg.Consts[0])
	value := prog.Expr(n.Value)
	if value.Kind != ast.ExprBinary || prog.Name(value.Name) != "-" || len(value.Args) != 2 {
		t.Fatalf("N = %+v", value)
	}
	mul := prog.Expr(value.Args[0])
	if mul.Kind != ast.ExprBinary || prog.Expr(mul.Args[1]).Kind != ast.ExprSizeOf {
		t.Fatalf("N lhs = %+v", mul)
	}
	if pi := prog.Expr(prog.Def(pkg.Consts[1]).Value); pi.Kind != ast.ExprDouble || pi.Double != 3.25 {
		t.Fatalf("Pi = %+v", pi)
	}

	circle := prog.Def(pkg.Classes[0])
	if !circle.Exported || len(circle.TypeParams) != 2 || len(circle.Fields) != 2 || len(circle.Protos) != 2 {
		t.Fatalf("Circle = %+v", circle)
	}
	if c := prog.TypeParam(circle.TypeParams[1]).Constraint; prog.Type(c).Kind != ast.TypeNamed {
		t.Fatal("U must be constrained by a named type")
	}
	super := prog.Type(circle.Super)
	if prog.Name(super.Name) != "Base" || len(super.Args) != 1 || prog.Type(super.Args[0]).Kind != ast.TypeInt {
		t.Fatalf("super = %+v", super)
	}
	if prog.Var(circle.Fields[1]).Owner != pkg.Classes[0] {
		t.Fatal("fields are owned by their class")
	}
	if k := prog.Proto(circle.Protos[1]).Kind; k != ast.ProtoInfix {
		t.Fatalf("+ is %s", k)
	}

	fn := prog.Def(pkg.Functions[0])
	if !fn.Exported || !fn.Body.IsValid() || len(prog.Method(fn.Body).Locals) != 1 {
		t.Fatalf("unit = %+v", fn)
	}
	if prog.Def(pkg.Globals[0]).Exported {
		t.Fatal("globals of the code section are private")
	}
	if len(pkg.Behaviors[0].Methods) != 1 {
		t.Fatalf("behavior %+v", pkg.Behaviors[0])
	}
}

func TestCodeOnlyFileJoinsItsPackage(t *testing.T) {
	header := `package: Util
header:
  functions:
    - {name: max, params: [{name: a, type: int}, {name: b, type: int}], returns: int}
`
	code := `package: Util
code:
  functions:
    - {name: max, params: [{name: a, type: int}, {name: b, type: int}], returns: int}
    - {name: helper, returns: int}
`
	// the code file comes first; headers are built before code sections
	prog, pkgs, bag := load(t,
		Input{Path: "util_code.yaml", Content: []byte(code)},
		Input{Path: "util.yaml", Content: []byte(header)},
	)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages", len(pkgs))
	}
	pkg := prog.Package(pkgs[0])
	if !pkg.HasCode || pkg.CodeFile != 1 || pkg.File != 2 {
		t.Fatalf("HasCode=%v CodeFile=%d File=%d", pkg.HasCode, pkg.CodeFile, pkg.File)
	}
	if len(pkg.Functions) != 2 {
		t.Fatalf("got %d functions", len(pkg.Functions))
	}
	maxFn, helper := prog.Def(pkg.Functions[0]), prog.Def(pkg.Functions[1])
	if !maxFn.Exported || !maxFn.Body.IsValid() {
		t.Fatal("max keeps its header declaration and gets the body")
	}
	if helper.Exported || !helper.Proto.IsValid() || !helper.Body.IsValid() {
		t.Fatal("helper is a private function with prototype and body")
	}
	if prog.Files.Get(2).Flags&source.FileHeaderOnly != 0 {
		t.Fatal("util.yaml has no code section but its package does")
	}
}

func TestHeaderOnlyPackage(t *testing.T) {
	prog, pkgs, bag := load(t, Input{Path: "core.yaml", Content: []byte("package: Core\nheader:\n  classes:\n    - {name: Base}\n")})
	if bag.Len() != 0 || len(pkgs) != 1 {
		t.Fatalf("diagnostics %+v", bag.Items())
	}
	if prog.Package(pkgs[0]).HasCode {
		t.Fatal("no code section")
	}
	if prog.Files.Get(1).Flags&source.FileHeaderOnly == 0 {
		t.Fatal("file must be flagged header-only")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    uint32
	}{
		{"unknown key", "package: A\nheader:\n  clases: []\n", 3},
		{"syntax", "package: A\nheader: [\n", 0},
		{"no name", "header: {}\n", 1},
		{"two forms", "package: A\nheader:\n  types:\n    - {name: T, type: {ptr: int, record: []}}\n", 4},
		{"wide int", "package: A\nheader:\n  consts:\n    - {name: C, value: 4294967296}\n", 4},
		{"bad char", "package: A\nheader:\n  consts:\n    - {name: C, value: {char: ab}}\n", 4},
		{"bad kind", "package: A\nheader:\n  interfaces:\n    - {name: I, messages: [{selector: x, kind: postfix}]}\n", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, bag := load(t, Input{Path: "a.yaml", Content: []byte(tt.content)})
			errs := bag.Filter(diag.PrjLoadError)
			if len(errs) != 1 {
				t.Fatalf("got %d load errors: %+v", len(errs), bag.Items())
			}
			if tt.line == 0 {
				if errs[0].Primary.Line == 0 {
					t.Fatalf("syntax error without a line: %s", errs[0].Message)
				}
				return
			}
			if errs[0].Primary.Line != tt.line {
				t.Fatalf("reported at line %d, want %d: %s", errs[0].Primary.Line, tt.line, errs[0].Message)
			}
		})
	}
}

func TestCodeForUndeclaredPackage(t *testing.T) {
	_, pkgs, bag := load(t, Input{Path: "x.yaml", Content: []byte("package: X\ncode: {}\n")})
	if len(pkgs) != 0 || len(bag.Filter(diag.PrjLoadError)) != 1 {
		t.Fatalf("pkgs=%v diagnostics=%+v", pkgs, bag.Items())
	}
}

func TestIdentifiersAreNormalized(t *testing.T) {
	composed := "package: P\nheader:\n  consts:\n    - {name: \"café\", value: 1}\n    - {name: D, value: \"café\"}\n"
	prog, pkgs, bag := load(t, Input{Path: "p.yaml", Content: []byte(composed)})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	pkg := prog.Package(pkgs[0])
	ref := prog.Expr(prog.Def(pkg.Consts[1]).Value)
	if ref.Kind != ast.ExprName || ref.Name != prog.Def(pkg.Consts[0]).Name {
		t.Fatalf("decomposed reference %q does not match the composed name", prog.Name(ref.Name))
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.yaml")
	if err := os.WriteFile(path, []byte(shapesHeader), 0o644); err != nil {
		t.Fatal(err)
	}
	prog := ast.NewProgram(ast.Hints{}, nil, nil)
	bag := diag.NewBag(0)
	pkgs, err := Load(context.Background(), prog, []Input{{Path: path}, {Path: filepath.Join(dir, "missing.yaml")}},
		Options{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 1 || len(bag.Filter(diag.PrjLoadError)) != 1 {
		t.Fatalf("pkgs=%v diagnostics=%+v", pkgs, bag.Items())
	}
	if prog.Files.Len() != 2 {
		t.Fatalf("registered %d files", prog.Files.Len())
	}
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prog := ast.NewProgram(ast.Hints{}, nil, nil)
	_, err := Load(ctx, prog, []Input{{Path: "a.yaml", Content: []byte("package: A\n")}}, Options{})
	if err == nil {
		t.Fatal("a canceled load must fail")
	}
}
