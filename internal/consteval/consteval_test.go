package consteval

import (
	"math"
	"testing"

	"github.com/nalgeon/be"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

type fixture struct {
	prog *ast.Program
	bag  *diag.Bag
	line uint32
}

func newFixture() *fixture {
	return &fixture{prog: ast.NewProgram(ast.Hints{}, nil, nil), bag: diag.NewBag(0)}
}

func (fx *fixture) pos() source.Pos {
	fx.line++
	return source.Pos{File: 1, Line: fx.line, Col: 1}
}

func (fx *fixture) int(v int32) ast.ExprID { return fx.prog.NewIntLit(v, fx.pos()) }

func (fx *fixture) double(v float64) ast.ExprID {
	return fx.prog.NewExpr(ast.Expr{Kind: ast.ExprDouble, Double: v, Pos: fx.pos()})
}

func (fx *fixture) op(op ast.PrimitiveOp, args ...ast.ExprID) ast.ExprID {
	kind := ast.ExprBinary
	if len(args) == 1 {
		kind = ast.ExprUnary
	}
	return fx.prog.NewExpr(ast.Expr{Kind: kind, Op: op, Args: args, Pos: fx.pos()})
}

func (fx *fixture) folder(sizeOf SizeFunc) *Folder {
	return New(fx.prog, diag.BagReporter{Bag: fx.bag}, sizeOf)
}

func TestFoldSizeOfArithmetic(t *testing.T) {
	fx := newFixture()
	intType := fx.prog.NewType(ast.TypeInt, fx.pos())
	arr := fx.prog.NewArray(intType, fx.int(10), fx.pos())
	size := fx.prog.NewExpr(ast.Expr{Kind: ast.ExprSizeOf, Type: arr, Pos: fx.pos()})
	value := fx.op(ast.PrimSub, fx.op(ast.PrimMul, fx.int(4), size), fx.int(4))
	n := fx.prog.NewDef(ast.Def{Kind: ast.DefConst, Name: fx.prog.Strings.Intern("N"), Value: value})
	ref := fx.prog.NewExpr(ast.Expr{Kind: ast.ExprName, Def: n, Pos: fx.pos()})

	known := false
	f := fx.folder(func(id ast.TypeID) (int32, bool) {
		if id == arr && known {
			return 40, true
		}
		return 0, false
	})

	be.True(t, !f.Fold())
	be.True(t, !IsConstant(fx.prog, value))

	known = true
	be.True(t, f.Fold())
	v, ok := fx.prog.IntValue(ref)
	be.True(t, ok)
	be.Equal(t, v, int32(156))
	be.Equal(t, fx.bag.Len(), 0)

	be.True(t, !f.Fold())
}

func TestFoldKeepsPositions(t *testing.T) {
	fx := newFixture()
	sum := fx.op(ast.PrimAdd, fx.int(1), fx.int(2))
	before := fx.prog.Expr(sum).Pos
	fx.folder(nil).Fold()

	e := fx.prog.Expr(sum)
	be.Equal(t, e.Kind, ast.ExprInt)
	be.Equal(t, e.Int, int32(3))
	be.Equal(t, e.Pos, before)
	be.Equal(t, len(e.Args), 0)
}

func TestFoldIntegerErrors(t *testing.T) {
	tests := []struct {
		name string
		op   ast.PrimitiveOp
		a, b int32
		code diag.Code
	}{
		{"add overflow", ast.PrimAdd, math.MaxInt32, 1, diag.ConOverflow},
		{"sub overflow", ast.PrimSub, math.MinInt32, 1, diag.ConOverflow},
		{"mul overflow", ast.PrimMul, 1 << 20, 1 << 12, diag.ConOverflow},
		{"div by zero", ast.PrimDiv, 7, 0, diag.ConDivByZero},
		{"rem by zero", ast.PrimRem, 7, 0, diag.ConDivByZero},
		{"min over minus one", ast.PrimDiv, math.MinInt32, -1, diag.ConOverflow},
		{"shift too far", ast.PrimShl, 1, 32, diag.ConOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			id := fx.op(tt.op, fx.int(tt.a), fx.int(tt.b))
			fx.folder(nil).Fold()

			be.Equal(t, len(fx.bag.Filter(tt.code)), 1)
			be.Equal(t, fx.bag.Len(), 1)
			v, ok := fx.prog.IntValue(id)
			be.True(t, ok)
			be.Equal(t, v, int32(0))

			// the replaced literal is not reported again
			fx.folder(nil).Fold()
			be.Equal(t, fx.bag.Len(), 1)
		})
	}
}

func TestFoldNegateMinInt(t *testing.T) {
	fx := newFixture()
	fx.op(ast.PrimNeg, fx.int(math.MinInt32))
	fx.folder(nil).Fold()
	be.Equal(t, len(fx.bag.Filter(diag.ConOverflow)), 1)
}

func TestFoldRemainderOfMinByMinusOne(t *testing.T) {
	fx := newFixture()
	id := fx.op(ast.PrimRem, fx.int(math.MinInt32), fx.int(-1))
	fx.folder(nil).Fold()
	v, ok := fx.prog.IntValue(id)
	be.True(t, ok)
	be.Equal(t, v, int32(0))
	be.Equal(t, fx.bag.Len(), 0)
}

func TestFoldDoubles(t *testing.T) {
	fx := newFixture()
	half := fx.op(ast.PrimDiv, fx.double(1), fx.double(2))
	nan := fx.op(ast.PrimSub, fx.op(ast.PrimDiv, fx.double(1), fx.double(0)), fx.op(ast.PrimDiv, fx.double(1), fx.double(0)))
	fx.folder(nil).Fold()

	be.Equal(t, fx.prog.Expr(half).Double, 0.5)
	be.Equal(t, fx.prog.Expr(nan).Kind, ast.ExprDouble)
	be.Equal(t, len(fx.bag.Filter(diag.ConNaN)), 1)
}

func TestFoldConversions(t *testing.T) {
	fx := newFixture()
	toDouble := fx.op(ast.PrimIntToDouble, fx.int(3))
	toInt := fx.op(ast.PrimDoubleToInt, fx.double(-2.75))
	toChar := fx.op(ast.PrimIntToChar, fx.int(65))
	back := fx.op(ast.PrimCharToInt, fx.op(ast.PrimIntToChar, fx.int(200)))
	null := fx.op(ast.PrimPtrToBool, fx.prog.NewExpr(ast.Expr{Kind: ast.ExprNull, Pos: fx.pos()}))
	tooBig := fx.op(ast.PrimIntToChar, fx.int(256))
	fx.folder(nil).Fold()

	be.Equal(t, fx.prog.Expr(toDouble).Double, 3.0)
	be.Equal(t, fx.prog.Expr(toInt).Int, int32(-2))
	be.Equal(t, fx.prog.Expr(toChar).Char, byte('A'))
	be.Equal(t, fx.prog.Expr(back).Int, int32(200))
	be.Equal(t, fx.prog.Expr(null).Kind, ast.ExprBool)
	be.Equal(t, fx.prog.Expr(null).Bool, false)
	be.Equal(t, fx.prog.Expr(tooBig).Kind, ast.ExprInt)
	be.Equal(t, len(fx.bag.Filter(diag.ConOverflow)), 1)
}

func TestFoldComparisonsAndLogic(t *testing.T) {
	fx := newFixture()
	lt := fx.op(ast.PrimLt, fx.int(1), fx.int(2))
	and := fx.op(ast.PrimAnd, lt, fx.op(ast.PrimNot, fx.op(ast.PrimEq, fx.int(3), fx.int(4))))
	ushr := fx.op(ast.PrimUShr, fx.int(-1), fx.int(28))
	shr := fx.op(ast.PrimShr, fx.int(-16), fx.int(2))
	fx.folder(nil).Fold()

	be.Equal(t, fx.prog.Expr(and).Bool, true)
	be.Equal(t, fx.prog.Expr(ushr).Int, int32(15))
	be.Equal(t, fx.prog.Expr(shr).Int, int32(-4))
	be.Equal(t, fx.bag.Len(), 0)
}

func TestFoldBadOperand(t *testing.T) {
	fx := newFixture()
	id := fx.op(ast.PrimAdd, fx.int(1), fx.double(2))
	fx.folder(nil).Fold()
	be.Equal(t, len(fx.bag.Filter(diag.ConBadOperand)), 1)
	be.True(t, IsConstant(fx.prog, id))
}

func TestFoldCircularConstantsStayUnfolded(t *testing.T) {
	fx := newFixture()
	a := fx.prog.NewDef(ast.Def{Kind: ast.DefConst, Name: fx.prog.Strings.Intern("A")})
	b := fx.prog.NewDef(ast.Def{Kind: ast.DefConst, Name: fx.prog.Strings.Intern("B")})
	refB := fx.prog.NewExpr(ast.Expr{Kind: ast.ExprName, Def: b, Pos: fx.pos()})
	refA := fx.prog.NewExpr(ast.Expr{Kind: ast.ExprName, Def: a, Pos: fx.pos()})
	fx.prog.Def(a).Value = refB
	fx.prog.Def(b).Value = refA

	be.True(t, !fx.folder(nil).Fold())
	be.True(t, !IsConstant(fx.prog, refA))
	be.Equal(t, fx.bag.Len(), 0)
}
