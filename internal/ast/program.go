package ast

import (
	"kpc/internal/source"
)

// Hints are capacity suggestions for the arenas.
type Hints struct{ Packages, Defs, Types, Exprs uint }

// Program owns every node of a compilation. Nodes refer to each other by ID
// only, so back references (owning class, resolved definition, implementing
// body) never form pointer cycles.
type Program struct {
	Strings    *source.Interner
	Files      *source.FileSet
	Primitives *Primitives

	Packages   *Arena[Package]
	Defs       *Arena[Def]
	Types      *Arena[Type]
	Exprs      *Arena[Expr]
	Protos     *Arena[Proto]
	Methods    *Arena[Method]
	Vars       *Arena[Var]
	TypeParams *Arena[TypeParam]
}

// NewProgram allocates empty arenas sharing one interner and file set.
func NewProgram(h Hints, strs *source.Interner, files *source.FileSet) *Program {
	if h.Packages == 0 {
		h.Packages = 1 << 3
	}
	if h.Defs == 0 {
		h.Defs = 1 << 7
	}
	if h.Types == 0 {
		h.Types = 1 << 9
	}
	if h.Exprs == 0 {
		h.Exprs = 1 << 8
	}
	if strs == nil {
		strs = source.NewInterner()
	}
	if files == nil {
		files = source.NewFileSet()
	}
	return &Program{
		Strings:    strs,
		Files:      files,
		Primitives: NewPrimitives(strs),
		Packages:   NewArena[Package](h.Packages),
		Defs:       NewArena[Def](h.Defs),
		Types:      NewArena[Type](h.Types),
		Exprs:      NewArena[Expr](h.Exprs),
		Protos:     NewArena[Proto](h.Defs),
		Methods:    NewArena[Method](h.Defs),
		Vars:       NewArena[Var](h.Defs),
		TypeParams: NewArena[TypeParam](h.Packages),
	}
}

func (p *Program) Package(id PkgID) *Package           { return p.Packages.Get(uint32(id)) }
func (p *Program) Def(id DefID) *Def                   { return p.Defs.Get(uint32(id)) }
func (p *Program) Type(id TypeID) *Type                { return p.Types.Get(uint32(id)) }
func (p *Program) Expr(id ExprID) *Expr                { return p.Exprs.Get(uint32(id)) }
func (p *Program) Proto(id ProtoID) *Proto             { return p.Protos.Get(uint32(id)) }
func (p *Program) Method(id MethodID) *Method          { return p.Methods.Get(uint32(id)) }
func (p *Program) Var(id VarID) *Var                   { return p.Vars.Get(uint32(id)) }
func (p *Program) TypeParam(id TypeParamID) *TypeParam { return p.TypeParams.Get(uint32(id)) }

// Name returns the spelling of an interned identifier.
func (p *Program) Name(id source.StringID) string {
	s, _ := p.Strings.Lookup(id)
	return s
}

// DefName returns "Pkg.Name" for diagnostics.
func (p *Program) DefName(id DefID) string {
	d := p.Def(id)
	if d == nil {
		return "<none>"
	}
	if pkg := p.Package(d.Pkg); pkg != nil {
		return p.Name(pkg.Name) + "." + p.Name(d.Name)
	}
	return p.Name(d.Name)
}

// PackageIDs returns every package ID in allocation order.
func (p *Program) PackageIDs() []PkgID {
	n := p.Packages.Len()
	out := make([]PkgID, 0, n)
	for i := uint32(1); i <= n; i++ {
		out = append(out, PkgID(i))
	}
	return out
}
