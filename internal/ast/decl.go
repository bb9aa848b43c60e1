package ast

import (
	"kpc/internal/source"
	"kpc/internal/symbols"
)

// DefKind is the closed set of package-level definitions.
type DefKind uint8

const (
	DefInvalid DefKind = iota
	DefConst
	DefError
	DefGlobal
	DefAlias
	DefFunction
	DefInterface
	DefClass
)

func (k DefKind) String() string {
	switch k {
	case DefConst:
		return "constant"
	case DefError:
		return "error"
	case DefGlobal:
		return "global"
	case DefAlias:
		return "type"
	case DefFunction:
		return "function"
	case DefInterface:
		return "interface"
	case DefClass:
		return "class"
	default:
		return "invalid"
	}
}

// IsAbstract reports classes and interfaces.
func (k DefKind) IsAbstract() bool {
	return k == DefClass || k == DefInterface
}

// Def is a package-level definition. Field use by kind:
//
//	DefConst     Type (optional), Value
//	DefError     Params
//	DefGlobal    Var (type, data offset), Value (optional initializer)
//	DefAlias     Type (refined toward the concrete target)
//	DefFunction  Proto, Body
//	DefInterface TypeParams, Extends, Protos, Selectors, Inherited
//	DefClass     TypeParams, Super, Implements, Fields, Protos, Methods,
//	             FieldScope, Selectors, Bodies, Size
type Def struct {
	Kind     DefKind
	Name     source.StringID
	Pos      source.Pos
	Pkg      PkgID
	Exported bool // declared in the header section

	Type  TypeID
	Value ExprID
	Var   VarID

	Params []VarID
	Proto  ProtoID
	Body   MethodID

	TypeParams []TypeParamID
	Super      TypeID
	Implements []TypeID
	Extends    []TypeID
	Fields     []VarID
	Protos     []ProtoID
	Methods    []MethodID

	// side list of messages reached through several extends edges,
	// reconciled by the extends check
	Inherited []ProtoID

	FieldScope *symbols.Scope[VarID]
	Selectors  *symbols.Scope[ProtoID]
	Bodies     *symbols.Scope[MethodID]
	ParamScope *symbols.Scope[TypeParamID]

	// Inheritance of fields and prototypes has run.
	Resolved bool

	Size int32
}

// NewDef allocates a definition with unknown size.
func (p *Program) NewDef(d Def) DefID {
	d.Size = SizeUnknown
	return DefID(p.Defs.Allocate(d))
}

// TypeParam is a generic parameter of a class or interface.
type TypeParam struct {
	Name       source.StringID
	Pos        source.Pos
	Constraint TypeID // NoTypeID means anyType
	Owner      DefID
	// Set by the layout solver when the parameter is used by value, which
	// limits instantiations to arguments of at most 4 bytes.
	PointerSized bool
}

// NewTypeParam allocates a type parameter.
func (p *Program) NewTypeParam(tp TypeParam) TypeParamID {
	return TypeParamID(p.TypeParams.Allocate(tp))
}
