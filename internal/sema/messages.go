package sema

import (
	"strings"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
	"kpc/internal/symbols"
)

// inheritMessages puts an interface's own messages in its selector scope and
// collects instantiated copies of every extended interface's messages in
// Def.Inherited. A selector may arrive along several extends edges;
// checkExtends reconciles them.
func (c *checker) inheritMessages(id ast.DefID) {
	d := c.prog.Def(id)
	sels := symbols.NewScope[ast.ProtoID](symbols.ScopeSelectors, nil)
	for _, p := range d.Protos {
		pp := c.prog.Proto(p)
		if prev, ok := sels.Insert(pp.Selector, p, pp.Pos); !ok {
			c.errorf(diag.ResDuplicateSel, pp.Pos, "message %q is declared twice in %s", c.name(pp.Selector), c.prog.DefName(id)).
				WithNote(prev.Pos, "previous declaration").
				Emit()
		}
	}

	var inherited []ast.ProtoID
	for _, ext := range d.Extends {
		t := c.prog.Type(ext)
		if t.Err || !t.Def.IsValid() {
			continue
		}
		via := t.Def
		s := c.eng.SubstFor(ext)
		for _, p := range c.prog.Def(via).Protos {
			inherited = append(inherited, c.copyProto(p, s, via))
		}
	}

	d = c.prog.Def(id)
	d.Selectors = sels
	d.Inherited = inherited
}

// checkExtends installs one canonical copy per inherited selector. When the
// interface declares the selector itself, every inherited copy must be
// overridable by it. Otherwise all copies must have exactly equal
// signatures.
func (c *checker) checkExtends(id ast.DefID) {
	d := c.prog.Def(id)
	var order []ast.ProtoID
	bySel := make(map[ast.ProtoID][]ast.ProtoID)
	first := make(map[source.StringID]ast.ProtoID)
	for _, p := range d.Inherited {
		key := c.prog.Proto(p).Selector
		head, seen := first[key]
		if !seen {
			first[key] = p
			order = append(order, p)
			head = p
		}
		bySel[head] = append(bySel[head], p)
	}

	var canonical []ast.ProtoID
	for _, head := range order {
		copies := bySel[head]
		sel := c.prog.Proto(head).Selector
		if e, ok := d.Selectors.LookupLocal(sel); ok {
			for _, cp := range copies {
				c.checkOverride(e.Value, cp)
			}
			continue
		}
		for _, cp := range copies[1:] {
			if c.sameSignature(head, cp) {
				continue
			}
			a, b := c.prog.Proto(head), c.prog.Proto(cp)
			c.errorf(diag.VarExtendsConflict, d.Pos, "%s inherits message %q with different signatures from %s and %s",
				c.prog.DefName(id), c.name(sel), c.prog.DefName(a.Via), c.prog.DefName(b.Via)).
				WithNote(a.Pos, "declared as %s in %s", c.signature(head), c.prog.DefName(a.Owner)).
				WithNote(b.Pos, "declared as %s in %s", c.signature(cp), c.prog.DefName(b.Owner)).
				Emit()
			break
		}
		d.Selectors.Insert(sel, head, c.prog.Proto(head).Pos)
		canonical = append(canonical, head)
	}
	d.Protos = append(canonical, d.Protos...)
}

// sameSignature is exact equality of kind, parameter types and result.
func (c *checker) sameSignature(a, b ast.ProtoID) bool {
	pa, pb := c.prog.Proto(a), c.prog.Proto(b)
	if pa.Kind != pb.Kind || len(pa.Params) != len(pb.Params) {
		return false
	}
	for i := range pa.Params {
		if !c.eng.Equal(c.prog.Var(pa.Params[i]).Type, c.prog.Var(pb.Params[i]).Type) {
			return false
		}
	}
	return c.eng.Equal(pa.Ret, pb.Ret)
}

func (c *checker) signature(p ast.ProtoID) string {
	pp := c.prog.Proto(p)
	params := make([]string, len(pp.Params))
	for i, v := range pp.Params {
		params[i] = c.typeString(c.prog.Var(v).Type)
	}
	out := "(" + strings.Join(params, ", ") + ")"
	if pp.Ret.IsValid() {
		out += " returns " + c.typeString(pp.Ret)
	}
	return out
}
