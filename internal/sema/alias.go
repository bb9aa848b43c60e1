package sema

import (
	"slices"

	"kpc/internal/ast"
	"kpc/internal/diag"
)

// checkAliases detects alias chains that lead back to themselves and
// refines every other alias to point past intermediate aliases, so that
// "type A = B; type B = int" leaves A's target as int.
func (c *checker) checkAliases() {
	for _, id := range c.pkg.Aliases {
		c.refineAlias(id)
	}
}

func (c *checker) refineAlias(id ast.DefID) {
	chain := []ast.DefID{id}
	cur := id
	for {
		t := c.prog.Type(c.prog.Def(cur).Type)
		if t == nil || t.Kind != ast.TypeNamed || t.Err || !t.Def.IsValid() {
			break
		}
		next := c.prog.Def(t.Def)
		if next.Kind != ast.DefAlias {
			break
		}
		if k := slices.Index(chain, t.Def); k >= 0 {
			c.aliasCycle(chain[k:])
			break
		}
		chain = append(chain, t.Def)
		cur = t.Def
	}
	if cur != id {
		c.prog.Def(id).Type = c.prog.Def(cur).Type
	}
}

// aliasCycle reports a cycle once, at its first member, and marks the
// target of every member erroneous.
func (c *checker) aliasCycle(cycle []ast.DefID) {
	first := c.prog.Def(cycle[0])
	b := c.errorf(diag.ResAliasCycle, first.Pos, "type %q is defined in terms of itself", c.name(first.Name))
	for _, m := range cycle[1:] {
		d := c.prog.Def(m)
		b.WithNote(d.Pos, "through %q", c.name(d.Name))
	}
	b.Emit()
	for _, m := range cycle {
		c.prog.Type(c.prog.Def(m).Type).Err = true
	}
}

// checkGenericArgs checks every instantiation bound in this package against
// the constraints of its definition, with the instantiation's own arguments
// substituted into the constraints.
func (c *checker) checkGenericArgs() {
	for _, id := range c.instances {
		t := *c.prog.Type(id)
		d := c.prog.Def(t.Def)
		s := c.eng.SubstFor(id)
		for i := 0; i < min(len(t.Args), len(d.TypeParams)); i++ {
			tp := c.prog.TypeParam(d.TypeParams[i])
			if !tp.Constraint.IsValid() {
				continue
			}
			want := c.eng.Apply(tp.Constraint, s)
			arg := t.Args[i]
			if c.eng.IsSubType(arg, want) {
				continue
			}
			c.errorf(diag.GenConstraint, c.prog.Type(arg).Pos, "type argument %s of %s does not satisfy constraint %s",
				c.typeString(arg), c.prog.DefName(t.Def), c.typeString(want)).
				WithNote(tp.Pos, "type parameter %q declared here", c.name(tp.Name)).
				Emit()
		}
	}
}
