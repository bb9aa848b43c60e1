// Package types is the type algebra of the checker: substitutions of
// generic parameters and the equality, subtype and assignability relations
// over the ast type graph.
//
// All relations follow one error policy: a type that earlier phases flagged
// as erroneous, or that is not bound to a definition, relates to everything.
// That keeps one bad declaration from producing a cascade of mismatches.
package types

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

// Engine decides type relations for one program. It is not safe for
// concurrent use: the recursion guard and the substitution memo are shared
// by every query.
type Engine struct {
	prog *ast.Program
	rep  diag.Reporter

	// Safe disables the ptr-to-void relaxation of IsSubType.
	Safe bool

	limit   int
	depth   int
	tripped bool
	// root queries that already reported a recursive type
	reported map[[2]ast.TypeID]bool

	memo map[ast.TypeID]*Subst
}

// New creates an engine. limit bounds the nesting of one comparison.
func New(prog *ast.Program, rep diag.Reporter, safe bool, limit int) *Engine {
	if limit <= 0 {
		limit = 100
	}
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Engine{
		prog:     prog,
		rep:      rep,
		Safe:     safe,
		limit:    limit,
		reported: make(map[[2]ast.TypeID]bool),
		memo:     make(map[ast.TypeID]*Subst),
	}
}

// Resolve follows alias definitions until it reaches a type that is not an
// alias reference. Alias cycles are broken by the alias check; the step
// bound only protects queries issued before it ran.
func (e *Engine) Resolve(id ast.TypeID) ast.TypeID {
	for steps := 0; steps <= e.limit; steps++ {
		t := e.prog.Type(id)
		if t == nil || t.Kind != ast.TypeNamed || t.Err {
			return id
		}
		d := e.prog.Def(t.Def)
		if d == nil || d.Kind != ast.DefAlias || !d.Type.IsValid() {
			return id
		}
		id = d.Type
	}
	return id
}

// IsErr reports types the relations treat as matching anything.
func (e *Engine) IsErr(id ast.TypeID) bool {
	t := e.prog.Type(id)
	if t == nil || t.Kind == ast.TypeInvalid {
		return true
	}
	return t.Kind == ast.TypeNamed && (t.Err || !t.IsBound())
}

// ArrayLen returns the folded length of an array type.
func (e *Engine) ArrayLen(id ast.TypeID) (int32, bool) {
	t := e.prog.Type(id)
	if t == nil || t.Kind != ast.TypeArray || !t.Len.IsValid() {
		return 0, false
	}
	return e.prog.IntValue(t.Len)
}

// root starts a top-level query. The returned func must run when the
// query ends; it re-arms the recursion guard.
func (e *Engine) root(a, b ast.TypeID) func() {
	if e.depth > 0 {
		return func() {}
	}
	key := [2]ast.TypeID{a, b}
	e.tripped = e.reported[key]
	return func() {
		if e.tripped {
			e.reported[key] = true
		}
		e.tripped = false
		e.depth = 0
	}
}

// descend enters one level of structural comparison. It returns false once
// the nesting limit is exceeded, and the caller then answers true. Only the
// first overflow within a root query is reported.
func (e *Engine) descend(pos source.Pos) bool {
	if e.tripped {
		return false
	}
	if e.depth >= e.limit {
		e.tripped = true
		diag.ReportError(e.rep, diag.VarRecursiveType, pos, "recursively defined type").Emit()
		return false
	}
	e.depth++
	return true
}

func (e *Engine) ascend() { e.depth-- }
