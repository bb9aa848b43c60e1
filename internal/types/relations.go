package types

import (
	"kpc/internal/ast"
	"kpc/internal/source"
)

// Equal reports structural equality after alias resolution.
func (e *Engine) Equal(a, b ast.TypeID) bool {
	defer e.root(a, b)()
	return e.equal(a, b)
}

// IsSubType reports whether a value of type a can stand where b is expected.
func (e *Engine) IsSubType(a, b ast.TypeID) bool {
	defer e.root(a, b)()
	return e.isSubType(a, b)
}

// Assignable reports whether a variable of type dst may receive a value
// of type src. It is stricter than IsSubType: apart from pointers and
// null, the types must be equal, and function types are never assignable.
func (e *Engine) Assignable(dst, src ast.TypeID) bool {
	defer e.root(dst, src)()
	return e.assignable(dst, src)
}

// Compatible is the relation used by override and implementation checks.
// Function-typed parameters are accepted when equal even though
// Assignable rejects function types outright.
func (e *Engine) Compatible(dst, src ast.TypeID) bool {
	defer e.root(dst, src)()
	return e.equal(dst, src) || e.assignable(dst, src)
}

// pair fetches both nodes after alias resolution. ok is false when the
// error policy decides the answer.
func (e *Engine) pair(a, b ast.TypeID) (ast.Type, ast.Type, bool) {
	a, b = e.Resolve(a), e.Resolve(b)
	if e.IsErr(a) || e.IsErr(b) {
		return ast.Type{}, ast.Type{}, false
	}
	return *e.prog.Type(a), *e.prog.Type(b), true
}

func (e *Engine) pos(a, b ast.TypeID) source.Pos {
	if t := e.prog.Type(a); t != nil && t.Pos.IsValid() {
		return t.Pos
	}
	if t := e.prog.Type(b); t != nil {
		return t.Pos
	}
	return source.NoPos
}

// sameVoid decides comparisons where one side is a missing return type.
func sameVoid(a, b ast.TypeID) (decided, result bool) {
	switch {
	case !a.IsValid() && !b.IsValid():
		return true, true
	case !a.IsValid() || !b.IsValid():
		return true, false
	}
	return false, false
}

func (e *Engine) equal(a, b ast.TypeID) bool {
	if a == b {
		return true
	}
	if decided, r := sameVoid(a, b); decided {
		return r
	}
	ta, tb, ok := e.pair(a, b)
	if !ok {
		return true
	}
	if ta.Kind != tb.Kind {
		return false
	}
	if ta.Kind.IsScalar() {
		return true
	}
	if !e.descend(e.pos(a, b)) {
		return true
	}
	defer e.ascend()

	switch ta.Kind {
	case ast.TypePtr:
		return e.equal(ta.Elem, tb.Elem)

	case ast.TypeArray:
		if !e.equal(ta.Elem, tb.Elem) {
			return false
		}
		la, oka := e.lenOf(ta)
		lb, okb := e.lenOf(tb)
		return oka == okb && la == lb

	case ast.TypeRecord:
		if len(ta.Fields) != len(tb.Fields) {
			return false
		}
		for i := range ta.Fields {
			fa, fb := e.prog.Var(ta.Fields[i]), e.prog.Var(tb.Fields[i])
			if fa.Name != fb.Name || !e.equal(fa.Type, fb.Type) {
				return false
			}
		}
		return true

	case ast.TypeFunction:
		if len(ta.Params) != len(tb.Params) {
			return false
		}
		for i := range ta.Params {
			if !e.equal(ta.Params[i], tb.Params[i]) {
				return false
			}
		}
		return e.equal(ta.Ret, tb.Ret)

	case ast.TypeNamed:
		if ta.Param.IsValid() || tb.Param.IsValid() {
			return ta.Param == tb.Param
		}
		if ta.Def != tb.Def || len(ta.Args) != len(tb.Args) {
			return false
		}
		for i := range ta.Args {
			if !e.equal(ta.Args[i], tb.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (e *Engine) lenOf(t ast.Type) (int32, bool) {
	if !t.Len.IsValid() {
		return 0, false
	}
	return e.prog.IntValue(t.Len)
}

func (e *Engine) isSubType(a, b ast.TypeID) bool {
	if e.equal(a, b) {
		return true
	}
	if !a.IsValid() || !b.IsValid() {
		return false
	}
	ta, tb, ok := e.pair(a, b)
	if !ok {
		return true
	}
	if tb.Kind == ast.TypeAny {
		return true
	}
	if !e.descend(e.pos(a, b)) {
		return true
	}
	defer e.ascend()

	switch {
	case ta.Kind == ast.TypeNull && tb.Kind == ast.TypePtr:
		return true

	case ta.Kind == ast.TypePtr && tb.Kind == ast.TypePtr:
		if !e.Safe && (e.isVoid(ta.Elem) || e.isVoid(tb.Elem)) {
			return true
		}
		return e.isSubType(ta.Elem, tb.Elem)

	case ta.Kind == ast.TypeFunction && tb.Kind == ast.TypeFunction:
		if len(ta.Params) != len(tb.Params) {
			return false
		}
		for i := range ta.Params {
			if !e.isSubType(tb.Params[i], ta.Params[i]) {
				return false
			}
		}
		if decided, r := sameVoid(ta.Ret, tb.Ret); decided {
			return r
		}
		return e.isSubType(ta.Ret, tb.Ret)

	case ta.Kind == ast.TypeNamed && ta.Param.IsValid():
		c := e.prog.TypeParam(ta.Param).Constraint
		if !c.IsValid() {
			// unconstrained: only anyType, handled above
			return false
		}
		return e.isSubType(c, b)

	case ta.Kind == ast.TypeNamed && tb.Kind == ast.TypeNamed && tb.Def.IsValid():
		return e.walkSupers(e.Resolve(a), b)
	}
	return false
}

// walkSupers climbs the superclass, implements and extends edges of the
// abstract named by a, instantiating each edge with a's arguments.
func (e *Engine) walkSupers(a, b ast.TypeID) bool {
	t := e.prog.Type(a)
	d := e.prog.Def(t.Def)
	if d == nil {
		return true
	}
	s := e.SubstFor(a)
	var edges []ast.TypeID
	switch d.Kind {
	case ast.DefClass:
		if d.Super.IsValid() {
			edges = append(edges, d.Super)
		}
		edges = append(edges, d.Implements...)
	case ast.DefInterface:
		edges = d.Extends
	default:
		return false
	}
	for _, edge := range edges {
		if e.prog.Type(edge).Err {
			continue
		}
		if e.isSubType(e.Apply(edge, s), b) {
			return true
		}
	}
	return false
}

func (e *Engine) isVoid(id ast.TypeID) bool {
	t := e.prog.Type(e.Resolve(id))
	return t != nil && t.Kind == ast.TypeVoid
}

func (e *Engine) assignable(dst, src ast.TypeID) bool {
	if decided, r := sameVoid(dst, src); decided {
		return r
	}
	tt, ts, ok := e.pair(dst, src)
	if !ok {
		return true
	}
	if tt.Kind == ast.TypeFunction || ts.Kind == ast.TypeFunction {
		return false
	}
	switch {
	case tt.Kind == ast.TypePtr && ts.Kind == ast.TypeNull:
		return true
	case tt.Kind == ast.TypePtr && ts.Kind == ast.TypePtr:
		return e.isSubType(src, dst)
	case tt.Kind == ast.TypeArray && ts.Kind == ast.TypeArray:
		if !e.equal(tt.Elem, ts.Elem) {
			return false
		}
		lt, okt := e.lenOf(tt)
		ls, oks := e.lenOf(ts)
		return !okt || !oks || lt == ls
	}
	return e.equal(dst, src)
}
