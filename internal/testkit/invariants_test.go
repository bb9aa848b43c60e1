package testkit_test

import (
	"context"
	"strings"
	"testing"

	"kpc/internal/driver"
	"kpc/internal/loader"
	"kpc/internal/testkit"
)

const shapes = `package: Shapes
header:
  interfaces:
    - {name: Named, messages: [{selector: name}]}
  classes:
    - name: A
      implements: [Named]
      fields: [{name: x, type: int}]
      methods: [{selector: name}, {selector: area, returns: int}]
    - name: B
      super: A
      fields: [{name: y, type: int}]
      methods: [{selector: scale}]
`

func compileShapes(t *testing.T) *driver.Result {
	t.Helper()
	res, err := driver.Compile(context.Background(), []loader.Input{{Path: "shapes.yaml", Content: []byte(shapes)}}, driver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", res.Session.Bag.Len())
	}
	return res
}

func TestCleanProgramPasses(t *testing.T) {
	res := compileShapes(t)
	if err := testkit.CheckLayout(res.Prog, res.Order); err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckDispatch(res.Prog, res.Order); err != nil {
		t.Fatal(err)
	}
}

func TestOverlappingFieldIsCaught(t *testing.T) {
	res := compileShapes(t)
	pkg := res.Prog.Package(res.Order[0])
	b := res.Prog.Def(pkg.Classes[1])
	res.Prog.Var(b.Fields[1]).Offset = 6

	err := testkit.CheckLayout(res.Prog, res.Order)
	if err == nil || !strings.Contains(err.Error(), "Shapes.B") || !strings.Contains(err.Error(), "overlaps") {
		t.Fatalf("err = %v", err)
	}
}

func TestMovedSelectorIsCaught(t *testing.T) {
	res := compileShapes(t)
	pkg := res.Prog.Package(res.Order[0])
	b := res.Prog.Def(pkg.Classes[1])
	for _, p := range b.Protos {
		if proto := res.Prog.Proto(p); res.Prog.Name(proto.Selector) == "area" {
			proto.Offset += 400
		}
	}

	err := testkit.CheckDispatch(res.Prog, res.Order)
	if err == nil || !strings.Contains(err.Error(), "selector area") {
		t.Fatalf("err = %v", err)
	}
}
