package sema

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/project/dag"
)

// orderAbstracts fills Package.Order: interfaces ordered along extends
// edges, then classes ordered along superclass edges, ancestors first.
// Edge targets are bound the first time the walk follows them; a target in
// another package is bound but not walked, it was ordered with its package.
func (c *checker) orderAbstracts() {
	ifaces := dag.Walk(c.pkg.Interfaces, func(id ast.DefID) []ast.DefID {
		return c.localTargets(c.prog.Def(id).Extends, ast.DefInterface)
	}, c.inheritanceCycle)

	classes := dag.Walk(c.pkg.Classes, func(id ast.DefID) []ast.DefID {
		d := c.prog.Def(id)
		if !d.Super.IsValid() {
			return nil
		}
		return c.localTargets([]ast.TypeID{d.Super}, ast.DefClass)
	}, c.inheritanceCycle)

	order := make([]ast.DefID, 0, len(ifaces)+len(classes))
	order = append(order, ifaces...)
	c.pkg.Order = append(order, classes...)
}

func (c *checker) localTargets(edges []ast.TypeID, want ast.DefKind) []ast.DefID {
	var out []ast.DefID
	for _, edge := range edges {
		target := c.bindEdge(edge, want)
		if target.IsValid() && c.prog.Def(target).Pkg == c.pkgID {
			out = append(out, target)
		}
	}
	return out
}

// bindEdge binds a superclass or extends reference by name. Failures mark
// the edge erroneous, which every later phase treats as absent.
func (c *checker) bindEdge(edge ast.TypeID, want ast.DefKind) ast.DefID {
	t := c.prog.Type(edge)
	if t.Err {
		return ast.NoDefID
	}
	if t.Def.IsValid() {
		return t.Def
	}
	e, ok := c.pkg.Scope.Lookup(t.Name)
	if !ok {
		c.errorf(diag.ResUndefinedName, t.Pos, "undefined %s %q", want, c.name(t.Name)).Emit()
		t.Err = true
		return ast.NoDefID
	}
	d := c.prog.Def(e.Value)
	if d.Kind != want {
		code, article := diag.ResNotAClass, "a"
		if want == ast.DefInterface {
			code, article = diag.ResNotAnInterface, "an"
		}
		c.errorf(code, t.Pos, "%q is not %s %s", c.name(t.Name), article, want).
			WithNote(d.Pos, "%q declared here", c.name(t.Name)).
			Emit()
		t.Err = true
		return ast.NoDefID
	}
	t.Def = e.Value
	return e.Value
}

// inheritanceCycle breaks the edge from -> to.
func (c *checker) inheritanceCycle(from, to ast.DefID) {
	d := c.prog.Def(from)
	edges := d.Extends
	if d.Kind == ast.DefClass {
		edges = []ast.TypeID{d.Super}
	}
	for _, edge := range edges {
		t := c.prog.Type(edge)
		if t.Err || t.Def != to {
			continue
		}
		c.errorf(diag.ResInheritanceCycle, t.Pos, "circular inheritance: %s inherits from %s, which inherits from %s",
			c.prog.DefName(from), c.prog.DefName(to), c.prog.DefName(from)).
			WithNote(c.prog.Def(to).Pos, "%s declared here", c.prog.DefName(to)).
			Emit()
		t.Err = true
	}
}
