package ast

import "kpc/internal/source"

// TypeKind is the closed set of type variants.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeInt
	TypeDouble
	TypeChar
	TypeBool
	TypeVoid
	TypeNull // typeOfNull
	TypeAny  // anyType
	TypePtr
	TypeArray
	TypeRecord
	TypeFunction
	TypeNamed
)

func (k TypeKind) String() string {
	switch k {
	case TypeInt:
		return "int"
	case TypeDouble:
		return "double"
	case TypeChar:
		return "char"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	case TypeNull:
		return "typeOfNull"
	case TypeAny:
		return "anyType"
	case TypePtr:
		return "ptr"
	case TypeArray:
		return "array"
	case TypeRecord:
		return "record"
	case TypeFunction:
		return "function"
	case TypeNamed:
		return "named"
	default:
		return "invalid"
	}
}

// IsScalar reports kinds without substructure.
func (k TypeKind) IsScalar() bool {
	return k >= TypeInt && k <= TypeAny
}

// Type is a node of the type graph. Which fields are meaningful depends on Kind:
//
//	TypePtr      Elem
//	TypeArray    Elem, Len (NoExprID for a dynamic array), Count, Stride
//	TypeRecord   Fields
//	TypeFunction Params, Ret
//	TypeNamed    Name, Args, and after binding either Def or Param (or Err)
//
// Size, Count and Stride are written once by the layout solver.
type Type struct {
	Kind TypeKind
	Pos  source.Pos

	Elem   TypeID
	Len    ExprID
	Fields []VarID
	Params []TypeID
	Ret    TypeID

	Name  source.StringID
	Args  []TypeID
	Def   DefID
	Param TypeParamID
	Err   bool

	Size   int32
	Count  int32
	Stride int32
}

// IsBound reports whether a named type points at a definition or type parameter.
func (t *Type) IsBound() bool {
	return t.Def.IsValid() || t.Param.IsValid()
}

func newType(kind TypeKind, pos source.Pos) Type {
	return Type{Kind: kind, Pos: pos, Size: SizeUnknown, Count: SizeUnknown, Stride: SizeUnknown}
}

// NewType allocates a type of the given kind with unknown layout.
func (p *Program) NewType(kind TypeKind, pos source.Pos) TypeID {
	return TypeID(p.Types.Allocate(newType(kind, pos)))
}

// NewPtr allocates "ptr to elem".
func (p *Program) NewPtr(elem TypeID, pos source.Pos) TypeID {
	t := newType(TypePtr, pos)
	t.Elem = elem
	return TypeID(p.Types.Allocate(t))
}

// NewArray allocates "array [length] of elem"; length may be NoExprID.
func (p *Program) NewArray(elem TypeID, length ExprID, pos source.Pos) TypeID {
	t := newType(TypeArray, pos)
	t.Elem = elem
	t.Len = length
	return TypeID(p.Types.Allocate(t))
}

// NewRecord allocates a record over already allocated field vars.
func (p *Program) NewRecord(fields []VarID, pos source.Pos) TypeID {
	t := newType(TypeRecord, pos)
	t.Fields = fields
	return TypeID(p.Types.Allocate(t))
}

// NewFunctionType allocates "function (params) returns ret".
func (p *Program) NewFunctionType(params []TypeID, ret TypeID, pos source.Pos) TypeID {
	t := newType(TypeFunction, pos)
	t.Params = params
	t.Ret = ret
	return TypeID(p.Types.Allocate(t))
}

// NewNamed allocates an unbound named type reference.
func (p *Program) NewNamed(name source.StringID, args []TypeID, pos source.Pos) TypeID {
	t := newType(TypeNamed, pos)
	t.Name = name
	t.Args = args
	return TypeID(p.Types.Allocate(t))
}

// NewBoundNamed allocates a named type already bound to def.
func (p *Program) NewBoundNamed(def DefID, args []TypeID, pos source.Pos) TypeID {
	t := newType(TypeNamed, pos)
	t.Def = def
	t.Args = args
	if d := p.Def(def); d != nil {
		t.Name = d.Name
	}
	return TypeID(p.Types.Allocate(t))
}

// NewParamRef allocates a named type bound to a type parameter.
func (p *Program) NewParamRef(param TypeParamID, pos source.Pos) TypeID {
	t := newType(TypeNamed, pos)
	t.Param = param
	if tp := p.TypeParam(param); tp != nil {
		t.Name = tp.Name
	}
	return TypeID(p.Types.Allocate(t))
}
