package sema

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
	"kpc/internal/symbols"
)

// buildPackageScope builds the uses scope and then the package scope, once.
// The package scope is chained to the uses scope so lookups see local
// declarations first.
func (c *checker) buildPackageScope() {
	pkg := c.pkg
	if pkg.Scope != nil {
		return
	}
	pkg.UsesScope = symbols.NewScope[ast.DefID](symbols.ScopeUses, nil)
	for i := range pkg.Uses {
		c.importUse(&pkg.Uses[i])
	}

	pkg.Scope = symbols.NewScope(symbols.ScopePackage, pkg.UsesScope)
	pkg.ErrScope = symbols.NewScope[ast.DefID](symbols.ScopeErrors, nil)
	groups := [][]ast.DefID{
		pkg.Consts, pkg.Errors, pkg.Globals, pkg.Aliases,
		pkg.Functions, pkg.Interfaces, pkg.Classes,
	}
	for _, group := range groups {
		for _, id := range group {
			c.declare(id)
		}
	}
}

// importUse adds the header declarations of a used package. Uses are not
// transitive: only the used package's own declarations are visible.
func (c *checker) importUse(u *ast.Use) {
	used := c.prog.Package(u.Target)
	if used == nil || used.Scope == nil {
		return
	}
	renames := make(map[source.StringID]ast.Renaming, len(u.Renamings))
	for _, r := range u.Renamings {
		e, ok := used.Scope.LookupLocal(r.From)
		if !ok || !c.prog.Def(e.Value).Exported {
			c.errorf(diag.ResRenameUnknown, r.Pos, "package %q exports no %q to rename", c.name(used.Name), c.name(r.From)).Emit()
			continue
		}
		renames[r.From] = r
	}

	for _, entry := range used.Scope.Entries {
		if !c.prog.Def(entry.Value).Exported {
			continue
		}
		name, pos := entry.Name, u.Pos
		if r, ok := renames[entry.Name]; ok {
			name, pos = r.To, r.Pos
		}
		prev, ok := c.pkg.UsesScope.Insert(name, entry.Value, pos)
		if ok || prev.Value == entry.Value {
			continue
		}
		c.errorf(diag.ResAmbiguousUses, pos, "%q is imported both as %s and as %s",
			c.name(name), c.prog.DefName(prev.Value), c.prog.DefName(entry.Value)).
			WithNote(prev.Pos, "%s imported here", c.prog.DefName(prev.Value)).
			Emit()
	}
}

func (c *checker) declare(id ast.DefID) {
	d := c.prog.Def(id)
	if prev, ok := c.pkg.Scope.LookupLocal(d.Name); ok {
		c.errorf(diag.ResDuplicateName, d.Pos, "%q is already declared in package %q", c.name(d.Name), c.name(c.pkg.Name)).
			WithNote(prev.Pos, "previous declaration of %q", c.name(d.Name)).
			Emit()
		return
	}
	if prev, ok := c.pkg.UsesScope.LookupLocal(d.Name); ok {
		c.errorf(diag.ResDuplicateName, d.Pos, "%q is already imported as %s", c.name(d.Name), c.prog.DefName(prev.Value)).
			WithNote(prev.Pos, "imported here").
			Emit()
		return
	}
	c.pkg.Scope.Insert(d.Name, id, d.Pos)
	if d.Kind == ast.DefError {
		c.pkg.ErrScope.Insert(d.Name, id, d.Pos)
	}
}

// bindBehaviors attaches the method bodies of each behavior block to its
// class.
func (c *checker) bindBehaviors() {
	for i := range c.pkg.Behaviors {
		b := &c.pkg.Behaviors[i]
		e, ok := c.pkg.Scope.LookupLocal(b.Class)
		if !ok {
			c.errorf(diag.ResUndefinedName, b.Pos, "behavior for undefined class %q", c.name(b.Class)).Emit()
			continue
		}
		d := c.prog.Def(e.Value)
		if d.Kind != ast.DefClass {
			c.errorf(diag.ResNotAClass, b.Pos, "behavior for %s %q, which is not a class", d.Kind, c.name(b.Class)).
				WithNote(d.Pos, "%q declared here", c.name(b.Class)).
				Emit()
			continue
		}
		for _, m := range b.Methods {
			c.prog.Method(m).Owner = e.Value
		}
		d.Methods = append(d.Methods, b.Methods...)
	}
}
