package ast

import "kpc/internal/source"

// ExprKind is the closed set of compile-time expression variants.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprInt
	ExprDouble
	ExprChar
	ExprBool
	ExprNull
	ExprName   // reference to a named constant
	ExprUnary  // Op applied to Args[0]
	ExprBinary // Op applied to Args[0], Args[1]
	ExprCall   // primitive function call: Op(Args...)
	ExprSizeOf // sizeOf(Type)
)

func (k ExprKind) String() string {
	switch k {
	case ExprInt:
		return "int"
	case ExprDouble:
		return "double"
	case ExprChar:
		return "char"
	case ExprBool:
		return "bool"
	case ExprNull:
		return "null"
	case ExprName:
		return "name"
	case ExprUnary:
		return "unary"
	case ExprBinary:
		return "binary"
	case ExprCall:
		return "call"
	case ExprSizeOf:
		return "sizeOf"
	default:
		return "invalid"
	}
}

// IsLiteral reports kinds that need no further folding.
func (k ExprKind) IsLiteral() bool {
	return k >= ExprInt && k <= ExprNull
}

// Expr is a compile-time expression node. A folded node is overwritten in
// place by its literal, so every reference to it sees the value.
type Expr struct {
	Kind ExprKind
	Pos  source.Pos

	Int    int32
	Double float64
	Char   byte
	Bool   bool

	Name source.StringID // ExprName; spelling for unary/binary/call
	Def  DefID           // ExprName after binding
	Op   PrimitiveOp     // unary/binary/call after binding
	Args []ExprID
	Type TypeID // ExprSizeOf
}

// NewExpr allocates an expression node.
func (p *Program) NewExpr(e Expr) ExprID {
	return ExprID(p.Exprs.Allocate(e))
}

// NewIntLit allocates an int literal.
func (p *Program) NewIntLit(v int32, pos source.Pos) ExprID {
	return p.NewExpr(Expr{Kind: ExprInt, Pos: pos, Int: v})
}

// IntValue returns the value of an int literal.
func (p *Program) IntValue(id ExprID) (int32, bool) {
	e := p.Expr(id)
	if e == nil || e.Kind != ExprInt {
		return 0, false
	}
	return e.Int, true
}

// ReplaceExpr overwrites id with a literal, keeping the original position.
func (p *Program) ReplaceExpr(id ExprID, lit Expr) {
	old := p.Expr(id)
	lit.Pos = old.Pos
	p.Exprs.Set(uint32(id), lit)
}
