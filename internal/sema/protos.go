package sema

import (
	"slices"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
	"kpc/internal/symbols"
	"kpc/internal/types"
)

// inheritMethodProtos builds the body and selector scopes of a class, links
// prototypes to bodies and copies the superclass prototypes in. A copy whose
// selector the class already uses is renamed with SuperMarker prefixes, so
// the overridden implementation stays callable; its ImplementedBy still
// names the ancestor's body.
func (c *checker) inheritMethodProtos(id ast.DefID) {
	d := c.prog.Def(id)
	own := slices.Clone(d.Protos)

	bodies := symbols.NewScope[ast.MethodID](symbols.ScopeBodies, nil)
	for _, m := range d.Methods {
		mm := c.prog.Method(m)
		if prev, ok := bodies.Insert(mm.Selector, m, mm.Pos); !ok {
			c.errorf(diag.VarDuplicateBody, mm.Pos, "method %q of %s has more than one body", c.name(mm.Selector), c.prog.DefName(id)).
				WithNote(prev.Pos, "first body here").
				Emit()
		}
	}
	sels := symbols.NewScope[ast.ProtoID](symbols.ScopeSelectors, nil)
	for _, p := range own {
		pp := c.prog.Proto(p)
		if prev, ok := sels.Insert(pp.Selector, p, pp.Pos); !ok {
			c.errorf(diag.ResDuplicateSel, pp.Pos, "selector %q is declared twice in %s", c.name(pp.Selector), c.prog.DefName(id)).
				WithNote(prev.Pos, "previous declaration").
				Emit()
		}
	}
	c.checkBodies(id, own, sels, bodies)

	var inherited []ast.ProtoID
	if super, ref := c.superOf(id); super.IsValid() {
		inherited = c.copySuperProtos(id, super, c.eng.SubstFor(ref), sels)
	}

	d = c.prog.Def(id)
	d.Protos = append(inherited, own...)
	d.Selectors = sels
	d.Bodies = bodies
}

// copySuperProtos copies the superclass prototypes in two passes: first the
// ones the class overrides, so a single SuperMarker always names the direct
// superclass's implementation, then the rest in declaration order.
func (c *checker) copySuperProtos(id, super ast.DefID, s *types.Subst, sels *symbols.Scope[ast.ProtoID]) []ast.ProtoID {
	src := c.prog.Def(super).Protos
	copies := make([]ast.ProtoID, len(src))
	for i, sp := range src {
		copies[i] = c.copyProto(sp, s, super)
	}

	overridden := func(i int) bool {
		e, ok := sels.LookupLocal(c.prog.Proto(copies[i]).Selector)
		return ok && c.isOwn(e.Value, id)
	}
	done := make([]bool, len(copies))
	for i, cp := range copies {
		if overridden(i) {
			e, _ := sels.LookupLocal(c.prog.Proto(cp).Selector)
			c.checkOverride(e.Value, cp)
			c.installCopy(cp, sels)
			done[i] = true
		}
	}
	for i, cp := range copies {
		if !done[i] {
			c.installCopy(cp, sels)
		}
	}
	return copies
}

func (c *checker) installCopy(cp ast.ProtoID, sels *symbols.Scope[ast.ProtoID]) {
	p := c.prog.Proto(cp)
	for sels.Has(p.Selector) {
		p.Selector = c.prog.Strings.Intern(SuperMarker + c.name(p.Selector))
	}
	sels.Insert(p.Selector, cp, p.Pos)
}

// isOwn reports a prototype declared by owner itself rather than copied.
func (c *checker) isOwn(p ast.ProtoID, owner ast.DefID) bool {
	pp := c.prog.Proto(p)
	return pp.Owner == owner && !pp.From.IsValid()
}

// copyProto instantiates an ancestor's prototype. Parameter lists are shared
// when the substitution changes nothing.
func (c *checker) copyProto(id ast.ProtoID, s *types.Subst, via ast.DefID) ast.ProtoID {
	p := *c.prog.Proto(id)
	params := p.Params
	if s.Len() > 0 {
		params = make([]ast.VarID, len(p.Params))
		for i, v := range p.Params {
			pv := *c.prog.Var(v)
			params[i] = c.prog.NewVar(ast.Var{
				Kind: pv.Kind,
				Name: pv.Name,
				Pos:  pv.Pos,
				Type: c.eng.Apply(pv.Type, s),
				From: v,
			})
		}
	}
	return c.prog.NewProto(ast.Proto{
		Kind:          p.Kind,
		Pos:           p.Pos,
		Selector:      p.Selector,
		Params:        params,
		Ret:           c.eng.Apply(p.Ret, s),
		Owner:         p.Owner,
		ImplementedBy: p.ImplementedBy,
		From:          id,
		Via:           via,
	})
}

// checkBodies links each own prototype to its body. Missing bodies are only
// an error in a package that has a code section; a header-only package
// describes code compiled elsewhere.
func (c *checker) checkBodies(id ast.DefID, own []ast.ProtoID, sels *symbols.Scope[ast.ProtoID], bodies *symbols.Scope[ast.MethodID]) {
	for _, p := range own {
		pp := c.prog.Proto(p)
		e, ok := bodies.LookupLocal(pp.Selector)
		if !ok {
			if c.pkg.HasCode {
				c.errorf(diag.VarMissingBody, pp.Pos, "method %q of %s has no body", c.name(pp.Selector), c.prog.DefName(id)).Emit()
			}
			continue
		}
		c.matchBody(p, e.Value)
	}
	for _, e := range bodies.Entries {
		if !sels.Has(e.Name) {
			c.errorf(diag.VarBodyWithoutProto, e.Pos, "body of %q has no prototype in %s", c.name(e.Name), c.prog.DefName(id)).Emit()
		}
	}
}

// checkFunctionBodies links package functions to their bodies.
func (c *checker) checkFunctionBodies() {
	for _, id := range c.pkg.Functions {
		d := c.prog.Def(id)
		if !d.Body.IsValid() {
			if c.pkg.HasCode {
				c.errorf(diag.VarMissingBody, d.Pos, "function %q has no body", c.name(d.Name)).Emit()
			}
			continue
		}
		c.matchBody(d.Proto, d.Body)
	}
}

// matchBody checks a body against its prototype and links the two.
func (c *checker) matchBody(p ast.ProtoID, m ast.MethodID) {
	pp, mm := c.prog.Proto(p), c.prog.Method(m)
	pp.ImplementedBy = m
	mm.Proto = p
	sel := c.name(pp.Selector)

	if mm.Kind != pp.Kind {
		c.errorf(diag.VarKindMismatch, mm.Pos, "body of %q is a %s method but its prototype is %s", sel, mm.Kind, pp.Kind).
			WithNote(pp.Pos, "prototype here").
			Emit()
		return
	}
	if len(mm.Params) != len(pp.Params) {
		c.errorf(diag.VarParamCount, mm.Pos, "body of %q has %d parameters, its prototype %d", sel, len(mm.Params), len(pp.Params)).
			WithNote(pp.Pos, "prototype here").
			Emit()
		return
	}
	for i := range mm.Params {
		bv, pv := c.prog.Var(mm.Params[i]), c.prog.Var(pp.Params[i])
		if bv.Name != pv.Name {
			c.errorf(diag.VarParamName, bv.Pos, "parameter %d of %q is named %q in the body but %q in the prototype",
				i+1, sel, c.name(bv.Name), c.name(pv.Name)).
				WithNote(pv.Pos, "prototype parameter here").
				Emit()
		}
		if !c.eng.Equal(bv.Type, pv.Type) {
			c.errorf(diag.VarTypeMismatch, bv.Pos, "parameter %q of %q has type %s in the body but %s in the prototype",
				c.name(bv.Name), sel, c.typeString(bv.Type), c.typeString(pv.Type)).
				WithNote(pv.Pos, "prototype parameter here").
				Emit()
		}
	}
	if !c.eng.Equal(mm.Ret, pp.Ret) {
		c.errorf(diag.VarTypeMismatch, mm.Pos, "body of %q returns %s but its prototype returns %s",
			sel, c.typeString(mm.Ret), c.typeString(pp.Ret)).
			WithNote(pp.Pos, "prototype here").
			Emit()
	}
}

// checkOverride checks an own prototype against the inherited one it
// overrides: parameters contravariant, result covariant.
func (c *checker) checkOverride(own, inherited ast.ProtoID) {
	ip := c.prog.Proto(inherited)
	c.conforms(own, ip.Params, ip.Ret, ip.Kind, ip.Pos, "overridden in "+c.prog.DefName(ip.Owner))
}

// conforms checks that prototype p can stand in for a prototype with the
// given kind, parameter vars and result.
func (c *checker) conforms(p ast.ProtoID, params []ast.VarID, ret ast.TypeID, kind ast.ProtoKind, at source.Pos, where string) bool {
	pp := c.prog.Proto(p)
	sel := c.name(pp.Selector)
	if pp.Kind != kind {
		c.errorf(diag.VarKindMismatch, pp.Pos, "%q is a %s method but the prototype it conforms to is %s", sel, pp.Kind, kind).
			WithNote(at, "%s", where).
			Emit()
		return false
	}
	if len(pp.Params) != len(params) {
		c.errorf(diag.VarParamCount, pp.Pos, "%q has %d parameters but the prototype it conforms to has %d", sel, len(pp.Params), len(params)).
			WithNote(at, "%s", where).
			Emit()
		return false
	}
	ok := true
	for i := range params {
		mine, theirs := c.prog.Var(pp.Params[i]).Type, c.prog.Var(params[i]).Type
		if !c.eng.Compatible(mine, theirs) {
			c.errorf(diag.VarOverrideParam, c.prog.Var(pp.Params[i]).Pos, "parameter %d of %q has type %s, which cannot accept %s",
				i+1, sel, c.typeString(mine), c.typeString(theirs)).
				WithNote(at, "%s", where).
				Emit()
			ok = false
		}
	}
	if !c.eng.Compatible(ret, pp.Ret) {
		c.errorf(diag.VarOverrideReturn, pp.Pos, "%q returns %s, which is not compatible with %s",
			sel, c.typeString(pp.Ret), c.typeString(ret)).
			WithNote(at, "%s", where).
			Emit()
		ok = false
	}
	return ok
}
