package ast

import "kpc/internal/source"

// PrimitiveOp identifies an operation the constant folder understands.
type PrimitiveOp uint8

const (
	PrimNone PrimitiveOp = iota
	// binary
	PrimAdd
	PrimSub
	PrimMul
	PrimDiv
	PrimRem
	PrimEq
	PrimNe
	PrimLt
	PrimLe
	PrimGt
	PrimGe
	PrimAnd
	PrimOr
	PrimBitAnd
	PrimBitOr
	PrimBitXor
	PrimShl
	PrimShr  // arithmetic
	PrimUShr // logical
	// unary
	PrimNeg
	PrimNot
	PrimBitNot
	// conversions
	PrimIntToDouble
	PrimDoubleToInt
	PrimIntToChar
	PrimCharToInt
	PrimPtrToBool
)

type primKey struct {
	name  source.StringID
	arity int
}

// Primitives is the side table from spelling and arity to PrimitiveOp.
// Identifiers stay plain interned strings; only this table knows which of
// them denote built-in operations.
type Primitives struct {
	ops      map[primKey]PrimitiveOp
	names    map[PrimitiveOp]string
	reserved map[primKey]bool
}

var primitiveSpellings = []struct {
	name  string
	arity int
	op    PrimitiveOp
}{
	{"+", 2, PrimAdd}, {"-", 2, PrimSub}, {"*", 2, PrimMul}, {"/", 2, PrimDiv}, {"%", 2, PrimRem},
	{"==", 2, PrimEq}, {"!=", 2, PrimNe}, {"<", 2, PrimLt}, {"<=", 2, PrimLe}, {">", 2, PrimGt}, {">=", 2, PrimGe},
	{"&&", 2, PrimAnd}, {"||", 2, PrimOr},
	{"&", 2, PrimBitAnd}, {"|", 2, PrimBitOr}, {"^", 2, PrimBitXor},
	{"<<", 2, PrimShl}, {">>", 2, PrimShr}, {">>>", 2, PrimUShr},
	{"-", 1, PrimNeg}, {"!", 1, PrimNot}, {"~", 1, PrimBitNot},
	{"intToDouble", 1, PrimIntToDouble}, {"doubleToInt", 1, PrimDoubleToInt},
	{"intToChar", 1, PrimIntToChar}, {"charToInt", 1, PrimCharToInt},
	{"ptrToBool", 1, PrimPtrToBool},
}

// Operator spellings user prefix/infix methods may not take: the expression
// grammar already gives them built-in meaning (address-of, dereference,
// short-circuit logic).
var reservedSpellings = []struct {
	name  string
	arity int
}{
	{"&", 1}, {"*", 1}, {"&&", 2}, {"||", 2},
}

// NewPrimitives interns every primitive spelling once.
func NewPrimitives(strs *source.Interner) *Primitives {
	p := &Primitives{
		ops:      make(map[primKey]PrimitiveOp, len(primitiveSpellings)),
		names:    make(map[PrimitiveOp]string, len(primitiveSpellings)),
		reserved: make(map[primKey]bool, len(reservedSpellings)),
	}
	for _, s := range primitiveSpellings {
		p.ops[primKey{strs.Intern(s.name), s.arity}] = s.op
		p.names[s.op] = s.name
	}
	for _, s := range reservedSpellings {
		p.reserved[primKey{strs.Intern(s.name), s.arity}] = true
	}
	return p
}

// Lookup returns the primitive for a spelling used with arity operands.
func (p *Primitives) Lookup(name source.StringID, arity int) (PrimitiveOp, bool) {
	op, ok := p.ops[primKey{name, arity}]
	return op, ok
}

// Reserved reports whether a selector of the given operand arity (1 for
// prefix, 2 for infix) collides with a built-in operator spelling.
func (p *Primitives) Reserved(name source.StringID, arity int) bool {
	return p.reserved[primKey{name, arity}]
}

// Spelling returns the source spelling of op.
func (p *Primitives) Spelling(op PrimitiveOp) string {
	return p.names[op]
}
