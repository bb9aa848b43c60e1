package sema

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
)

// checkImplementsAll checks every class of the package against the
// interfaces it lists.
func (c *checker) checkImplementsAll() {
	for _, id := range c.pkg.Classes {
		if c.aborted() {
			return
		}
		for _, impl := range c.prog.Def(id).Implements {
			c.checkImplements(id, impl)
		}
	}
}

// checkImplements requires, for every message of the interface after
// substitution, a prototype of the same kind with a compatible signature.
// Inherited prototypes count.
func (c *checker) checkImplements(id ast.DefID, impl ast.TypeID) {
	t := c.prog.Type(impl)
	if t.Err || !t.Def.IsValid() {
		return
	}
	iface := t.Def
	pos := t.Pos
	d := c.prog.Def(id)
	if d.Selectors == nil {
		return
	}
	s := c.eng.SubstFor(impl)
	for _, m := range c.prog.Def(iface).Protos {
		msg := *c.prog.Proto(m)
		e, ok := d.Selectors.LookupLocal(msg.Selector)
		if !ok {
			c.errorf(diag.VarMissingMessage, pos, "%s does not implement message %q of %s",
				c.prog.DefName(id), c.name(msg.Selector), c.prog.DefName(iface)).
				WithNote(msg.Pos, "message declared here").
				Emit()
			continue
		}
		params := msg.Params
		if s.Len() > 0 {
			params = make([]ast.VarID, len(msg.Params))
			for i, v := range msg.Params {
				pv := *c.prog.Var(v)
				pv.Type = c.eng.Apply(pv.Type, s)
				pv.From = v
				params[i] = c.prog.NewVar(pv)
			}
		}
		c.conforms(e.Value, params, c.eng.Apply(msg.Ret, s), msg.Kind, msg.Pos,
			"message of "+c.prog.DefName(iface))
	}
}

// checkOperatorSpellings rejects prefix and infix selectors that the
// expression grammar already uses for built-in operators.
func (c *checker) checkOperatorSpellings() {
	for _, id := range c.pkg.Order {
		for _, p := range c.prog.Def(id).Protos {
			if !c.isOwn(p, id) {
				continue
			}
			pp := c.prog.Proto(p)
			arity := 0
			switch pp.Kind {
			case ast.ProtoPrefix:
				arity = 1
			case ast.ProtoInfix:
				arity = 2
			default:
				continue
			}
			if c.prog.Primitives.Reserved(pp.Selector, arity) {
				c.errorf(diag.VarOperatorSpelling, pp.Pos, "%s operator %q is reserved and cannot be declared as a method",
					pp.Kind, c.name(pp.Selector)).Emit()
			}
		}
	}
}
