package consteval

import (
	"math"

	"kpc/internal/ast"
	"kpc/internal/diag"
)

func intLit(v int32) ast.Expr      { return ast.Expr{Kind: ast.ExprInt, Int: v} }
func doubleLit(v float64) ast.Expr { return ast.Expr{Kind: ast.ExprDouble, Double: v} }
func boolLit(v bool) ast.Expr      { return ast.Expr{Kind: ast.ExprBool, Bool: v} }
func charLit(v byte) ast.Expr      { return ast.Expr{Kind: ast.ExprChar, Char: v} }

// apply evaluates op over literal operands. Errors are reported at the
// node and replaced by a zero of the expected kind so the sweep moves on.
func (f *Folder) apply(id ast.ExprID, op ast.PrimitiveOp, xs []ast.Expr) ast.Expr {
	pos := f.prog.Expr(id).Pos
	spelling := f.prog.Primitives.Spelling(op)

	bad := func() ast.Expr {
		kinds := make([]any, 0, len(xs))
		for _, x := range xs {
			kinds = append(kinds, x.Kind.String())
		}
		switch len(xs) {
		case 1:
			diag.ReportError(f.rep, diag.ConBadOperand, pos, "operation %q cannot be applied to %s", spelling, kinds[0]).Emit()
		default:
			diag.ReportError(f.rep, diag.ConBadOperand, pos, "operation %q cannot be applied to %s and %s", spelling, kinds[0], kinds[1]).Emit()
		}
		return intLit(0)
	}
	overflow := func() ast.Expr {
		diag.ReportError(f.rep, diag.ConOverflow, pos, "integer overflow in constant expression %q", spelling).Emit()
		return intLit(0)
	}
	double := func(v float64) ast.Expr {
		if math.IsNaN(v) {
			diag.ReportError(f.rep, diag.ConNaN, pos, "constant expression %q is not a number", spelling).Emit()
			return doubleLit(0)
		}
		return doubleLit(v)
	}

	if len(xs) == 1 {
		return f.unary(op, xs[0], bad, overflow, double)
	}
	if len(xs) != 2 {
		return bad()
	}
	a, b := xs[0], xs[1]

	switch op {
	case ast.PrimAdd, ast.PrimSub, ast.PrimMul, ast.PrimDiv, ast.PrimRem:
		switch {
		case a.Kind == ast.ExprInt && b.Kind == ast.ExprInt:
			var (
				v  int32
				ok bool
			)
			switch op {
			case ast.PrimAdd:
				v, ok = addChecked(a.Int, b.Int)
			case ast.PrimSub:
				v, ok = subChecked(a.Int, b.Int)
			case ast.PrimMul:
				v, ok = mulChecked(a.Int, b.Int)
			default:
				var zero, over bool
				v, zero, over = divChecked(a.Int, b.Int, op == ast.PrimRem)
				if zero {
					diag.ReportError(f.rep, diag.ConDivByZero, pos, "division by zero in constant expression").Emit()
					return intLit(0)
				}
				ok = !over
			}
			if !ok {
				return overflow()
			}
			return intLit(v)
		case a.Kind == ast.ExprDouble && b.Kind == ast.ExprDouble:
			switch op {
			case ast.PrimAdd:
				return double(a.Double + b.Double)
			case ast.PrimSub:
				return double(a.Double - b.Double)
			case ast.PrimMul:
				return double(a.Double * b.Double)
			case ast.PrimDiv:
				return double(a.Double / b.Double)
			default:
				return double(math.Mod(a.Double, b.Double))
			}
		}
		return bad()

	case ast.PrimEq, ast.PrimNe:
		eq, ok := literalEqual(a, b)
		if !ok {
			return bad()
		}
		return boolLit(eq == (op == ast.PrimEq))

	case ast.PrimLt, ast.PrimLe, ast.PrimGt, ast.PrimGe:
		c, ok := literalCompare(a, b)
		if !ok {
			return bad()
		}
		switch op {
		case ast.PrimLt:
			return boolLit(c < 0)
		case ast.PrimLe:
			return boolLit(c <= 0)
		case ast.PrimGt:
			return boolLit(c > 0)
		default:
			return boolLit(c >= 0)
		}

	case ast.PrimAnd, ast.PrimOr:
		if a.Kind != ast.ExprBool || b.Kind != ast.ExprBool {
			return bad()
		}
		if op == ast.PrimAnd {
			return boolLit(a.Bool && b.Bool)
		}
		return boolLit(a.Bool || b.Bool)

	case ast.PrimBitAnd, ast.PrimBitOr, ast.PrimBitXor:
		switch {
		case a.Kind == ast.ExprInt && b.Kind == ast.ExprInt:
			switch op {
			case ast.PrimBitAnd:
				return intLit(a.Int & b.Int)
			case ast.PrimBitOr:
				return intLit(a.Int | b.Int)
			default:
				return intLit(a.Int ^ b.Int)
			}
		case a.Kind == ast.ExprBool && b.Kind == ast.ExprBool:
			switch op {
			case ast.PrimBitAnd:
				return boolLit(a.Bool && b.Bool)
			case ast.PrimBitOr:
				return boolLit(a.Bool || b.Bool)
			default:
				return boolLit(a.Bool != b.Bool)
			}
		}
		return bad()

	case ast.PrimShl, ast.PrimShr, ast.PrimUShr:
		if a.Kind != ast.ExprInt || b.Kind != ast.ExprInt {
			return bad()
		}
		if b.Int < 0 || b.Int > 31 {
			diag.ReportError(f.rep, diag.ConOverflow, pos, "shift count %d out of range 0..31", b.Int).Emit()
			return intLit(0)
		}
		switch op {
		case ast.PrimShl:
			return intLit(a.Int << b.Int)
		case ast.PrimShr:
			return intLit(a.Int >> b.Int)
		default:
			return intLit(int32(uint32(a.Int) >> b.Int)) //nolint:gosec // logical shift reinterprets the bits
		}
	}
	return bad()
}

func (f *Folder) unary(op ast.PrimitiveOp, x ast.Expr, bad, overflow func() ast.Expr, double func(float64) ast.Expr) ast.Expr {
	switch op {
	case ast.PrimNeg:
		switch x.Kind {
		case ast.ExprInt:
			v, ok := negChecked(x.Int)
			if !ok {
				return overflow()
			}
			return intLit(v)
		case ast.ExprDouble:
			return double(-x.Double)
		}
	case ast.PrimNot:
		if x.Kind == ast.ExprBool {
			return boolLit(!x.Bool)
		}
	case ast.PrimBitNot:
		if x.Kind == ast.ExprInt {
			return intLit(^x.Int)
		}
	case ast.PrimIntToDouble:
		if x.Kind == ast.ExprInt {
			return doubleLit(float64(x.Int))
		}
	case ast.PrimDoubleToInt:
		if x.Kind == ast.ExprDouble {
			if math.IsNaN(x.Double) {
				return double(x.Double)
			}
			t := math.Trunc(x.Double)
			if t < math.MinInt32 || t > math.MaxInt32 {
				return overflow()
			}
			return intLit(int32(t))
		}
	case ast.PrimIntToChar:
		if x.Kind == ast.ExprInt {
			if x.Int < 0 || x.Int > math.MaxUint8 {
				return overflow()
			}
			return charLit(byte(x.Int))
		}
	case ast.PrimCharToInt:
		if x.Kind == ast.ExprChar {
			return intLit(int32(x.Char))
		}
	case ast.PrimPtrToBool:
		if x.Kind == ast.ExprNull {
			return boolLit(false)
		}
	}
	return bad()
}

func literalEqual(a, b ast.Expr) (bool, bool) {
	if a.Kind != b.Kind {
		return false, false
	}
	switch a.Kind {
	case ast.ExprInt:
		return a.Int == b.Int, true
	case ast.ExprDouble:
		return a.Double == b.Double, true
	case ast.ExprChar:
		return a.Char == b.Char, true
	case ast.ExprBool:
		return a.Bool == b.Bool, true
	case ast.ExprNull:
		return true, true
	}
	return false, false
}

func literalCompare(a, b ast.Expr) (int, bool) {
	if a.Kind != b.Kind {
		return 0, false
	}
	var x, y float64
	switch a.Kind {
	case ast.ExprInt:
		x, y = float64(a.Int), float64(b.Int)
	case ast.ExprDouble:
		x, y = a.Double, b.Double
	case ast.ExprChar:
		x, y = float64(a.Char), float64(b.Char)
	default:
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}
