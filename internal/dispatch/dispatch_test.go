package dispatch

import (
	"testing"

	"github.com/nalgeon/be"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

type fixture struct {
	prog *ast.Program
	line uint32
}

func newFixture() *fixture {
	return &fixture{prog: ast.NewProgram(ast.Hints{}, nil, nil)}
}

func (fx *fixture) pos() source.Pos {
	fx.line++
	return source.Pos{File: 1, Line: fx.line, Col: 1}
}

func (fx *fixture) pkg(name string) ast.PkgID {
	return fx.prog.NewPackage(fx.prog.Strings.Intern(name), fx.pos(), 1)
}

func (fx *fixture) ref(def ast.DefID) ast.TypeID {
	return fx.prog.NewBoundNamed(def, nil, fx.pos())
}

// abstract declares an interface or class. Selectors of the supers are
// copied first, the way inheritance does for classes and extends does for
// interfaces; own selectors follow.
func (fx *fixture) abstract(pkg ast.PkgID, kind ast.DefKind, name string, super ast.DefID, impls []ast.DefID, own ...string) ast.DefID {
	p := fx.prog
	d := ast.Def{Kind: kind, Name: p.Strings.Intern(name), Pos: fx.pos(), Pkg: pkg}
	var inherited []ast.DefID
	if kind == ast.DefClass {
		if super.IsValid() {
			d.Super = fx.ref(super)
			inherited = append(inherited, super)
		}
		for _, i := range impls {
			d.Implements = append(d.Implements, fx.ref(i))
		}
	} else {
		for _, i := range impls {
			d.Extends = append(d.Extends, fx.ref(i))
			inherited = append(inherited, i)
		}
	}
	id := p.NewDef(d)

	var protos []ast.ProtoID
	seen := map[source.StringID]bool{}
	for _, from := range inherited {
		for _, src := range p.Def(from).Protos {
			pr := *p.Proto(src)
			if seen[pr.Selector] {
				continue
			}
			seen[pr.Selector] = true
			protos = append(protos, p.NewProto(ast.Proto{Kind: pr.Kind, Selector: pr.Selector, Owner: id, From: src, Pos: pr.Pos}))
		}
	}
	for _, sel := range own {
		s := p.Strings.Intern(sel)
		if seen[s] {
			continue
		}
		seen[s] = true
		protos = append(protos, p.NewProto(ast.Proto{Kind: ast.ProtoNormal, Selector: s, Owner: id, Pos: fx.pos()}))
	}
	p.Def(id).Protos = protos

	pk := p.Package(pkg)
	if kind == ast.DefClass {
		pk.Classes = append(pk.Classes, id)
	} else {
		pk.Interfaces = append(pk.Interfaces, id)
	}
	return id
}

func (fx *fixture) offset(def ast.DefID, sel string) int32 {
	s := fx.prog.Strings.Intern(sel)
	for _, p := range fx.prog.Def(def).Protos {
		if pr := fx.prog.Proto(p); pr.Selector == s {
			return pr.Offset
		}
	}
	return -1
}

func (fx *fixture) selectors(def ast.DefID) []string {
	var out []string
	for _, p := range fx.prog.Def(def).Protos {
		out = append(out, fx.prog.Name(fx.prog.Proto(p).Selector))
	}
	return out
}

// checkConsistent walks every inheritance edge transitively and compares
// the offsets of shared selectors.
func (fx *fixture) checkConsistent(t *testing.T, defs []ast.DefID) {
	t.Helper()
	var supers func(ast.DefID) []ast.DefID
	supers = func(id ast.DefID) []ast.DefID {
		d := fx.prog.Def(id)
		var direct []ast.TypeID
		if d.Super.IsValid() {
			direct = append(direct, d.Super)
		}
		direct = append(direct, d.Implements...)
		direct = append(direct, d.Extends...)
		var out []ast.DefID
		for _, r := range direct {
			s := fx.prog.Type(r).Def
			out = append(out, s)
			out = append(out, supers(s)...)
		}
		return out
	}
	for _, a := range defs {
		for _, b := range supers(a) {
			for _, sel := range fx.selectors(b) {
				if fx.offset(a, sel) == -1 {
					continue
				}
				be.Equal(t, fx.offset(a, sel), fx.offset(b, sel))
			}
		}
	}
}

func TestChain(t *testing.T) {
	c := DefaultChain()
	first := c.First()
	be.Equal(t, first.Value, int32(4))
	second := c.Next(first)
	be.Equal(t, second.Value, int32(8))
	be.True(t, c.Next(first) == second)
	be.True(t, c.At(8) == second)
	be.True(t, c.At(20) != nil)
	be.Equal(t, c.At(20).Value, int32(20))
	be.True(t, c.At(6) == nil)
	be.True(t, c.At(0) == nil)
	be.Equal(t, c.Len(), 5)
}

func TestOffsetsConsistentAcrossLattice(t *testing.T) {
	fx := newFixture()
	app := fx.pkg("App")
	i := fx.abstract(app, ast.DefInterface, "I", ast.NoDefID, nil, "a", "b")
	j := fx.abstract(app, ast.DefInterface, "J", ast.NoDefID, nil, "d", "e")
	a := fx.abstract(app, ast.DefClass, "A", ast.NoDefID, []ast.DefID{i}, "a", "b", "c")
	b := fx.abstract(app, ast.DefClass, "B", a, nil, "d")
	c := fx.abstract(app, ast.DefClass, "C", b, []ast.DefID{j}, "e")

	bag := diag.NewBag(0)
	Assign(fx.prog, app, Options{Reporter: diag.BagReporter{Bag: bag}})

	be.Equal(t, bag.Len(), 0)
	be.True(t, fx.prog.Package(app).Compiled)
	all := []ast.DefID{i, j, a, b, c}
	for _, d := range all {
		for _, p := range fx.prog.Def(d).Protos {
			be.True(t, fx.prog.Proto(p).Offset >= 4)
		}
	}
	fx.checkConsistent(t, all)

	// selectors of one class never share a slot
	used := map[int32]string{}
	for _, sel := range fx.selectors(c) {
		off := fx.offset(c, sel)
		if prev, ok := used[off]; ok {
			t.Fatalf("%s and %s share offset %d", prev, sel, off)
		}
		used[off] = sel
	}
}

func TestSiblingsReuseSlots(t *testing.T) {
	fx := newFixture()
	app := fx.pkg("App")
	base := fx.abstract(app, ast.DefClass, "Base", ast.NoDefID, nil, "draw")
	left := fx.abstract(app, ast.DefClass, "Left", base, nil, "spin")
	right := fx.abstract(app, ast.DefClass, "Right", base, nil, "jump")

	Assign(fx.prog, app, Options{})

	be.Equal(t, fx.offset(base, "draw"), int32(4))
	be.Equal(t, fx.offset(left, "draw"), int32(4))
	be.Equal(t, fx.offset(left, "spin"), int32(8))
	be.Equal(t, fx.offset(right, "jump"), int32(8))
}

func TestForeignOffsetsAreStable(t *testing.T) {
	fx := newFixture()
	chain := DefaultChain()
	core := fx.pkg("Core")
	shape := fx.abstract(core, ast.DefInterface, "Shape", ast.NoDefID, nil, "area", "name")
	base := fx.abstract(core, ast.DefClass, "Base", ast.NoDefID, []ast.DefID{shape}, "id", "name", "area")
	Assign(fx.prog, core, Options{Chain: chain})

	before := map[string]int32{}
	for _, d := range []ast.DefID{shape, base} {
		for _, sel := range fx.selectors(d) {
			before[fx.prog.DefName(d)+"."+sel] = fx.offset(d, sel)
		}
	}

	app := fx.pkg("App")
	circle := fx.abstract(app, ast.DefClass, "Circle", base, []ast.DefID{shape}, "radius")
	ring := fx.abstract(app, ast.DefClass, "Ring", circle, nil, "inner")
	bag := diag.NewBag(0)
	Assign(fx.prog, app, Options{Chain: chain, Reporter: diag.BagReporter{Bag: bag}})

	be.Equal(t, bag.Len(), 0)
	for _, d := range []ast.DefID{shape, base} {
		for _, sel := range fx.selectors(d) {
			be.Equal(t, fx.offset(d, sel), before[fx.prog.DefName(d)+"."+sel])
		}
	}
	for _, sel := range []string{"id", "name", "area"} {
		be.Equal(t, fx.offset(circle, sel), fx.offset(base, sel))
		be.Equal(t, fx.offset(ring, sel), fx.offset(base, sel))
	}
	be.Equal(t, fx.offset(ring, "radius"), fx.offset(circle, "radius"))
	be.True(t, fx.offset(circle, "radius") > fx.offset(base, "area"))

	// a second run leaves a compiled package alone
	inner := fx.offset(ring, "inner")
	fx.prog.Proto(fx.prog.Def(ring).Protos[4]).Offset = 0
	Assign(fx.prog, app, Options{Chain: chain})
	be.Equal(t, fx.offset(ring, "inner"), int32(0))
	be.True(t, inner > 0)
}

func TestForeignConflict(t *testing.T) {
	fx := newFixture()
	lib := fx.pkg("Lib")
	i1 := fx.abstract(lib, ast.DefInterface, "I1", ast.NoDefID, nil, "foo")
	i2 := fx.abstract(lib, ast.DefInterface, "I2", ast.NoDefID, nil, "foo")
	// as imported from an export: unrelated there, so different slots
	fx.prog.Proto(fx.prog.Def(i1).Protos[0]).Offset = 4
	fx.prog.Proto(fx.prog.Def(i2).Protos[0]).Offset = 8
	fx.prog.Package(lib).Compiled = true

	app := fx.pkg("App")
	both := fx.abstract(app, ast.DefClass, "Both", ast.NoDefID, []ast.DefID{i1, i2}, "foo", "bar")
	sub := fx.abstract(app, ast.DefClass, "Sub", both, nil, "baz")

	bag := diag.NewBag(0)
	Assign(fx.prog, app, Options{Reporter: diag.BagReporter{Bag: bag}})

	conflicts := bag.Filter(diag.LayConflict)
	be.Equal(t, len(conflicts), 1)
	be.Equal(t, bag.Len(), 1)
	be.Equal(t, len(conflicts[0].Notes), 2)
	be.Equal(t, conflicts[0].Notes[0].Pos, fx.prog.Def(i1).Pos)
	be.Equal(t, conflicts[0].Notes[1].Pos, fx.prog.Def(i2).Pos)

	// the first offset wins and the rest of the package is still assigned
	be.Equal(t, fx.offset(both, "foo"), int32(4))
	be.Equal(t, fx.offset(sub, "foo"), int32(4))
	be.True(t, fx.offset(both, "bar") > 8)
	be.Equal(t, fx.offset(i2, "foo"), int32(8))
	be.True(t, fx.offset(sub, "baz") > 0)
}

func TestForeignCollision(t *testing.T) {
	fx := newFixture()
	lib := fx.pkg("Lib")
	i1 := fx.abstract(lib, ast.DefInterface, "Reader", ast.NoDefID, nil, "read")
	i2 := fx.abstract(lib, ast.DefInterface, "Writer", ast.NoDefID, nil, "write")
	Assign(fx.prog, lib, Options{})
	be.Equal(t, fx.offset(i1, "read"), fx.offset(i2, "write"))

	app := fx.pkg("App")
	fx.abstract(app, ast.DefClass, "File", ast.NoDefID, []ast.DefID{i1, i2}, "read", "write")
	bag := diag.NewBag(0)
	Assign(fx.prog, app, Options{Reporter: diag.BagReporter{Bag: bag}})

	be.Equal(t, len(bag.Filter(diag.LayCollision)), 1)
}
