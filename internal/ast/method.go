package ast

import (
	"kpc/internal/source"
)

// ProtoKind distinguishes selector syntax; override and implementation
// checks require the kinds to match.
type ProtoKind uint8

const (
	ProtoInvalid  ProtoKind = iota
	ProtoNormal             // foo (a, b)
	ProtoPrefix             // -x
	ProtoInfix              // a + b
	ProtoKeyword            // at: i put: v
	ProtoFunction           // package-level function signature
)

func (k ProtoKind) String() string {
	switch k {
	case ProtoNormal:
		return "normal"
	case ProtoPrefix:
		return "prefix"
	case ProtoInfix:
		return "infix"
	case ProtoKeyword:
		return "keyword"
	case ProtoFunction:
		return "function"
	default:
		return "invalid"
	}
}

// Proto is a method, message or function prototype.
type Proto struct {
	Kind     ProtoKind
	Pos      source.Pos
	Selector source.StringID
	Params   []VarID
	Ret      TypeID // NoTypeID means void
	Owner    DefID

	// Body that runs for this selector. Inherited copies point at the
	// ancestor's original body.
	ImplementedBy MethodID
	// Prototype this one was copied from during inheritance.
	From ProtoID
	// Abstract that contributed an inherited message (for conflict notes).
	Via DefID

	// Dispatch-table offset, 0 until assigned.
	Offset int32
}

// NewProto allocates a prototype.
func (p *Program) NewProto(pr Proto) ProtoID {
	return ProtoID(p.Protos.Allocate(pr))
}

// Method is a body from a code section: a class behavior method or a
// function implementation.
type Method struct {
	Kind     ProtoKind
	Pos      source.Pos
	Selector source.StringID
	Params   []VarID
	Ret      TypeID
	Locals   []VarID
	Owner    DefID
	Proto    ProtoID

	FrameSize int32
}

// NewMethod allocates a body with an unknown frame.
func (p *Program) NewMethod(m Method) MethodID {
	m.FrameSize = SizeUnknown
	return MethodID(p.Methods.Allocate(m))
}

// VarKind tells where a variable lives.
type VarKind uint8

const (
	VarInvalid     VarKind = iota
	VarField               // class field, offset from object start
	VarRecordField         // record field, offset from record start
	VarParam               // method/function parameter, frame slot
	VarLocal               // method/function local, frame slot
	VarErrorParam          // error declaration parameter, frame slot
	VarGlobal              // package data area
)

func (k VarKind) String() string {
	switch k {
	case VarField:
		return "field"
	case VarRecordField:
		return "record field"
	case VarParam:
		return "parameter"
	case VarLocal:
		return "local"
	case VarErrorParam:
		return "error parameter"
	case VarGlobal:
		return "global"
	default:
		return "invalid"
	}
}

// Var is a field, parameter, local or global.
type Var struct {
	Kind  VarKind
	Name  source.StringID
	Pos   source.Pos
	Type  TypeID
	Init  ExprID
	Owner DefID // declaring class for fields, even in inherited copies
	// Variable this one was copied from during inheritance or substitution.
	From VarID

	Offset int32
	Size   int32
}

// NewVar allocates a variable with unknown layout.
func (p *Program) NewVar(v Var) VarID {
	v.Offset = SizeUnknown
	v.Size = SizeUnknown
	return VarID(p.Vars.Allocate(v))
}
