// Package consteval folds compile-time expressions in place. A folded node
// is overwritten by its literal in the expression arena, so every type and
// declaration holding its ID observes the value.
package consteval

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/session"
)

// SizeFunc returns the size in bytes sizeOf yields for a type, or false
// while that size is not known yet.
type SizeFunc func(ast.TypeID) (int32, bool)

// Folder evaluates expressions whose operands are literals. Expressions that
// still depend on an unknown size or an unfolded constant are left alone and
// retried on the next sweep.
type Folder struct {
	prog   *ast.Program
	rep    diag.Reporter
	sizeOf SizeFunc

	visiting map[ast.DefID]bool
	changed  bool
}

// New creates a folder. sizeOf may be nil, in which case sizeOf expressions
// never fold.
func New(prog *ast.Program, rep diag.Reporter, sizeOf SizeFunc) *Folder {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Folder{
		prog:     prog,
		rep:      rep,
		sizeOf:   sizeOf,
		visiting: make(map[ast.DefID]bool),
	}
}

// Fold sweeps the whole expression arena once in allocation order and
// reports whether any node was replaced.
func (f *Folder) Fold() bool {
	f.changed = false
	n := f.prog.Exprs.Len()
	for i := uint32(1); i <= n; i++ {
		f.fold(ast.ExprID(i))
	}
	return f.changed
}

func (f *Folder) fold(id ast.ExprID) bool {
	e := f.prog.Expr(id)
	if e == nil {
		return false
	}
	switch e.Kind {
	case ast.ExprInt, ast.ExprDouble, ast.ExprChar, ast.ExprBool, ast.ExprNull:
		return true
	case ast.ExprName:
		return f.foldName(id, e.Def)
	case ast.ExprSizeOf:
		if f.sizeOf == nil {
			return false
		}
		size, ok := f.sizeOf(e.Type)
		if !ok {
			return false
		}
		f.replace(id, ast.Expr{Kind: ast.ExprInt, Int: size})
		return true
	case ast.ExprUnary, ast.ExprBinary, ast.ExprCall:
		args := append([]ast.ExprID(nil), e.Args...)
		op := e.Op
		ready := true
		for _, a := range args {
			if !f.fold(a) {
				ready = false
			}
		}
		if !ready {
			return false
		}
		operands := make([]ast.Expr, len(args))
		for i, a := range args {
			operands[i] = *f.prog.Expr(a)
		}
		f.replace(id, f.apply(id, op, operands))
		return true
	case ast.ExprInvalid:
		return false
	default:
		session.Internal("unexpected expression kind %d", e.Kind)
		return false
	}
}

// foldName substitutes a reference to a constant by a copy of its value.
// Constants referring to each other in a circle never fold.
func (f *Folder) foldName(id ast.ExprID, def ast.DefID) bool {
	d := f.prog.Def(def)
	if d == nil || d.Kind != ast.DefConst || f.visiting[def] {
		return false
	}
	value := d.Value
	f.visiting[def] = true
	ok := f.fold(value)
	delete(f.visiting, def)
	if !ok {
		return false
	}
	f.replace(id, *f.prog.Expr(value))
	return true
}

func (f *Folder) replace(id ast.ExprID, lit ast.Expr) {
	lit.Args = nil
	lit.Def = ast.NoDefID
	lit.Op = ast.PrimNone
	lit.Type = ast.NoTypeID
	f.prog.ReplaceExpr(id, lit)
	f.changed = true
}

// IsConstant reports whether id is a folded literal.
func IsConstant(prog *ast.Program, id ast.ExprID) bool {
	e := prog.Expr(id)
	return e != nil && e.Kind.IsLiteral()
}

// KindOf maps a literal to the scalar type kind of its value.
func KindOf(e *ast.Expr) ast.TypeKind {
	switch e.Kind {
	case ast.ExprInt:
		return ast.TypeInt
	case ast.ExprDouble:
		return ast.TypeDouble
	case ast.ExprChar:
		return ast.TypeChar
	case ast.ExprBool:
		return ast.TypeBool
	case ast.ExprNull:
		return ast.TypeNull
	default:
		return ast.TypeInvalid
	}
}
