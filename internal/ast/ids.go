package ast

type (
	// главные сущности
	PkgID  uint32
	DefID  uint32
	TypeID uint32
	ExprID uint32
	// подсущности
	ProtoID     uint32
	MethodID    uint32
	VarID       uint32
	TypeParamID uint32
)

const (
	NoPkgID       PkgID       = 0
	NoDefID       DefID       = 0
	NoTypeID      TypeID      = 0
	NoExprID      ExprID      = 0
	NoProtoID     ProtoID     = 0
	NoMethodID    MethodID    = 0
	NoVarID       VarID       = 0
	NoTypeParamID TypeParamID = 0
)

func (id PkgID) IsValid() bool       { return id != NoPkgID }
func (id DefID) IsValid() bool       { return id != NoDefID }
func (id TypeID) IsValid() bool      { return id != NoTypeID }
func (id ExprID) IsValid() bool      { return id != NoExprID }
func (id ProtoID) IsValid() bool     { return id != NoProtoID }
func (id MethodID) IsValid() bool    { return id != NoMethodID }
func (id VarID) IsValid() bool       { return id != NoVarID }
func (id TypeParamID) IsValid() bool { return id != NoTypeParamID }

// SizeUnknown marks sizes and offsets the layout solver has not fixed yet.
const SizeUnknown int32 = -1
