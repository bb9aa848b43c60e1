package sema

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/symbols"
)

// superOf returns the superclass definition of a class and the
// substitution its superclass reference applies.
func (c *checker) superOf(id ast.DefID) (ast.DefID, ast.TypeID) {
	d := c.prog.Def(id)
	t := c.prog.Type(d.Super)
	if t == nil || t.Err || !t.Def.IsValid() {
		return ast.NoDefID, ast.NoTypeID
	}
	return t.Def, d.Super
}

// inheritFields prefixes the class's own fields with copies of the
// superclass fields, instantiated with the superclass arguments. Copies
// keep the declaring class as Owner.
func (c *checker) inheritFields(id ast.DefID) {
	scope := symbols.NewScope[ast.VarID](symbols.ScopeFields, nil)
	var fields []ast.VarID

	if super, ref := c.superOf(id); super.IsValid() {
		s := c.eng.SubstFor(ref)
		for _, f := range c.prog.Def(super).Fields {
			v := *c.prog.Var(f)
			cp := c.prog.NewVar(ast.Var{
				Kind:  ast.VarField,
				Name:  v.Name,
				Pos:   v.Pos,
				Type:  c.eng.Apply(v.Type, s),
				Owner: v.Owner,
				From:  f,
			})
			scope.Insert(v.Name, cp, v.Pos)
			fields = append(fields, cp)
		}
	}

	for _, f := range c.prog.Def(id).Fields {
		v := c.prog.Var(f)
		if prev, ok := scope.Insert(v.Name, f, v.Pos); !ok {
			b := c.errorf(diag.ResDuplicateName, v.Pos, "field %q is already declared in %s", c.name(v.Name), c.prog.DefName(id))
			if pv := c.prog.Var(prev.Value); pv.Owner != id {
				b.WithNote(prev.Pos, "inherited from %s", c.prog.DefName(pv.Owner))
			} else {
				b.WithNote(prev.Pos, "previous declaration")
			}
			b.Emit()
			continue
		}
		fields = append(fields, f)
	}

	d := c.prog.Def(id)
	d.Fields = fields
	d.FieldScope = scope
}
