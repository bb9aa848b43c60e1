package ast

import (
	"testing"

	"kpc/internal/source"
)

func TestArenaSentinel(t *testing.T) {
	a := NewArena[int](0)
	if a.Get(0) != nil {
		t.Fatal("index 0 must be the sentinel")
	}
	id := a.Allocate(7)
	if id != 1 || *a.Get(id) != 7 {
		t.Fatalf("Allocate returned %d", id)
	}
	a.Set(id, 9)
	if *a.Get(id) != 9 {
		t.Fatal("Set did not overwrite")
	}
	if a.Get(2) != nil {
		t.Fatal("out of range Get must return nil")
	}
}

func TestReplaceExprKeepsPosition(t *testing.T) {
	prog := NewProgram(Hints{}, nil, nil)
	pos := source.Pos{File: 1, Line: 5, Col: 7}
	sum := prog.NewExpr(Expr{Kind: ExprBinary, Pos: pos})
	prog.ReplaceExpr(sum, Expr{Kind: ExprInt, Int: 12})

	e := prog.Expr(sum)
	if e.Kind != ExprInt || e.Int != 12 || e.Pos != pos {
		t.Fatalf("unexpected folded expr %+v", e)
	}
	if v, ok := prog.IntValue(sum); !ok || v != 12 {
		t.Fatalf("IntValue = %d,%v", v, ok)
	}
}

func TestPrimitivesByArity(t *testing.T) {
	strs := source.NewInterner()
	prims := NewPrimitives(strs)
	minus := strs.Intern("-")

	if op, ok := prims.Lookup(minus, 2); !ok || op != PrimSub {
		t.Fatalf("binary minus = %v,%v", op, ok)
	}
	if op, ok := prims.Lookup(minus, 1); !ok || op != PrimNeg {
		t.Fatalf("unary minus = %v,%v", op, ok)
	}
	if _, ok := prims.Lookup(strs.Intern("frobnicate"), 1); ok {
		t.Fatal("unknown spelling must not resolve")
	}
	if !prims.Reserved(strs.Intern("&&"), 2) || !prims.Reserved(strs.Intern("*"), 1) {
		t.Fatal("reserved operator spellings not recognised")
	}
	if prims.Reserved(strs.Intern("*"), 2) {
		t.Fatal("infix * is an ordinary selector")
	}
	if prims.Spelling(PrimUShr) != ">>>" {
		t.Fatalf("Spelling(PrimUShr) = %q", prims.Spelling(PrimUShr))
	}
}

func TestNewDefStartsUnsized(t *testing.T) {
	prog := NewProgram(Hints{}, nil, nil)
	pkg := prog.NewPackage(prog.Strings.Intern("Shapes"), source.NoPos, source.NoFileID)
	id := prog.NewDef(Def{Kind: DefClass, Name: prog.Strings.Intern("Circle"), Pkg: pkg})
	if prog.Def(id).Size != SizeUnknown {
		t.Fatal("class size must start unknown")
	}
	if got := prog.DefName(id); got != "Shapes.Circle" {
		t.Fatalf("DefName = %q", got)
	}
}
