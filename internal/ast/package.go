package ast

import (
	"kpc/internal/source"
	"kpc/internal/symbols"
)

// Renaming imports a used package's name under another one.
type Renaming struct {
	From source.StringID
	To   source.StringID
	Pos  source.Pos
}

// Use is a "uses" edge; Target is filled by the topological resolver.
type Use struct {
	Name      source.StringID
	Pos       source.Pos
	Target    PkgID
	Renamings []Renaming
}

// Behavior collects method bodies of one class from a code section.
type Behavior struct {
	Class   source.StringID
	Pos     source.Pos
	Methods []MethodID
}

// Package is a header/code pair. Declaration lists keep source order inside
// each kind; the scope builder inserts kinds in a fixed order.
type Package struct {
	Name    source.StringID
	Pos     source.Pos
	File    source.FileID
	HasCode bool
	// File of a code section stored apart from the header, if any.
	CodeFile source.FileID

	Uses []Use

	Consts     []DefID
	Errors     []DefID
	Globals    []DefID
	Aliases    []DefID
	Functions  []DefID
	Interfaces []DefID
	Classes    []DefID
	Behaviors  []Behavior

	// Abstracts in processing order: interfaces, then classes, ancestors first.
	Order []DefID

	UsesScope *symbols.Scope[DefID]
	Scope     *symbols.Scope[DefID]
	ErrScope  *symbols.Scope[DefID]

	// Offsets are fixed: imported from an export or assigned earlier in
	// this run. Dispatch assignment never touches a compiled package.
	Compiled bool

	DataSize int32
}

// NewPackage allocates an empty package.
func (p *Program) NewPackage(name source.StringID, pos source.Pos, file source.FileID) PkgID {
	return PkgID(p.Packages.Allocate(Package{Name: name, Pos: pos, File: file, DataSize: SizeUnknown}))
}

// Abstracts returns the interfaces and classes of a package in processing
// order once ordering has run, declaration order before that.
func (pkg *Package) Abstracts() []DefID {
	if len(pkg.Order) > 0 {
		return pkg.Order
	}
	out := make([]DefID, 0, len(pkg.Interfaces)+len(pkg.Classes))
	out = append(out, pkg.Interfaces...)
	return append(out, pkg.Classes...)
}
