package dispatch

import (
	"github.com/hashicorp/go-set/v3"

	"kpc/internal/ast"
	"kpc/internal/source"
)

// node is an abstract of the package being assigned.
type node struct {
	def ast.DefID
	pos source.Pos

	supers []*node // direct, in this package
	subs   []*node // direct, in this package
	// every ancestor in this package
	ancestors []*node
	// nearest ancestors in other packages; the walk stops at each of them
	foreign []ast.DefID

	protos    []ast.ProtoID
	selectors map[source.StringID]ast.ProtoID
	offsets   map[source.StringID]*Offset
	// foreign abstract an offset was adopted from
	adopted     map[source.StringID]ast.DefID
	unavailable *set.Set[*Offset]
}

func (n *node) declares(sel source.StringID) bool {
	_, ok := n.selectors[sel]
	return ok
}

// universe builds nodes for the package's abstracts, ancestors first.
func (a *assigner) universe() {
	pkg := a.prog.Package(a.pkgID)
	for _, id := range pkg.Abstracts() {
		d := a.prog.Def(id)
		n := &node{
			def:         id,
			pos:         d.Pos,
			protos:      append([]ast.ProtoID(nil), d.Protos...),
			selectors:   make(map[source.StringID]ast.ProtoID, len(d.Protos)),
			offsets:     make(map[source.StringID]*Offset, len(d.Protos)),
			adopted:     make(map[source.StringID]ast.DefID),
			unavailable: set.New[*Offset](len(d.Protos)),
		}
		for _, p := range d.Protos {
			n.selectors[a.prog.Proto(p).Selector] = p
		}
		a.nodes[id] = n
		a.order = append(a.order, n)
	}

	for _, n := range a.order {
		ancestors := set.New[*node](4)
		foreign := set.New[ast.DefID](2)
		for _, sup := range a.edges(n.def) {
			if s, ok := a.nodes[sup]; ok {
				n.supers = append(n.supers, s)
				s.subs = append(s.subs, n)
				if ancestors.Insert(s) {
					n.ancestors = append(n.ancestors, s)
				}
				// ancestors first, so s is complete
				for _, anc := range s.ancestors {
					if ancestors.Insert(anc) {
						n.ancestors = append(n.ancestors, anc)
					}
				}
				for _, f := range s.foreign {
					if foreign.Insert(f) {
						n.foreign = append(n.foreign, f)
					}
				}
				continue
			}
			if foreign.Insert(sup) {
				n.foreign = append(n.foreign, sup)
			}
		}
	}
}

// edges returns the abstracts def directly inherits from.
func (a *assigner) edges(def ast.DefID) []ast.DefID {
	d := a.prog.Def(def)
	var refs []ast.TypeID
	switch d.Kind {
	case ast.DefClass:
		if d.Super.IsValid() {
			refs = append(refs, d.Super)
		}
		refs = append(refs, d.Implements...)
	case ast.DefInterface:
		refs = append(refs, d.Extends...)
	}
	out := make([]ast.DefID, 0, len(refs))
	for _, r := range refs {
		t := a.prog.Type(r)
		if t == nil || t.Err || !t.Def.IsValid() || t.Def == def {
			continue
		}
		out = append(out, t.Def)
	}
	return out
}

// foreignOffset is the offset a compiled abstract recorded for sel.
func (a *assigner) foreignOffset(def ast.DefID, sel source.StringID) (*Offset, ast.ProtoID) {
	for _, p := range a.prog.Def(def).Protos {
		pr := a.prog.Proto(p)
		if pr.Selector != sel || pr.Offset <= 0 {
			continue
		}
		return a.chain.At(pr.Offset), p
	}
	return nil, ast.NoProtoID
}
