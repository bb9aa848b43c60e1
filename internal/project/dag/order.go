package dag

import (
	"cmp"
	"slices"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

// OrderPackages checks package names for uniqueness, binds every uses edge to
// its package and returns packages dependencies first. Packages reachable
// from roots are returned; with no roots every package is. The order depends
// only on package names and uses edges, never on input file order.
func OrderPackages(prog *ast.Program, r diag.Reporter, roots []ast.PkgID) []ast.PkgID {
	byName := indexPackages(prog, r)
	for _, id := range prog.PackageIDs() {
		if byName[prog.Package(id).Name] == id {
			bindUses(prog, r, id, byName)
		}
	}

	if len(roots) == 0 {
		roots = make([]ast.PkgID, 0, len(byName))
		for _, id := range byName {
			roots = append(roots, id)
		}
	}
	roots = slices.Clone(roots)
	slices.SortFunc(roots, func(a, b ast.PkgID) int {
		return cmp.Compare(prog.Name(prog.Package(a).Name), prog.Name(prog.Package(b).Name))
	})

	edges := func(id ast.PkgID) []ast.PkgID {
		pkg := prog.Package(id)
		out := make([]ast.PkgID, 0, len(pkg.Uses))
		for _, u := range pkg.Uses {
			if u.Target.IsValid() && !slices.Contains(out, u.Target) {
				out = append(out, u.Target)
			}
		}
		return out
	}
	onCycle := func(from, to ast.PkgID) {
		pkg := prog.Package(from)
		for i := range pkg.Uses {
			u := &pkg.Uses[i]
			if u.Target != to {
				continue
			}
			diag.ReportError(r, diag.ResPackageCycle, u.Pos,
				"circular use: package %q uses %q, which depends on %q", prog.Name(pkg.Name), prog.Name(u.Name), prog.Name(pkg.Name)).
				WithNote(prog.Package(to).Pos, "package %q declared here", prog.Name(u.Name)).
				Emit()
			u.Target = ast.NoPkgID
		}
	}
	return Walk(roots, edges, onCycle)
}

// indexPackages maps names to the first package declaring them.
func indexPackages(prog *ast.Program, r diag.Reporter) map[source.StringID]ast.PkgID {
	byName := make(map[source.StringID]ast.PkgID, prog.Packages.Len())
	for _, id := range prog.PackageIDs() {
		pkg := prog.Package(id)
		if prev, dup := byName[pkg.Name]; dup {
			diag.ReportError(r, diag.ResDuplicatePackage, pkg.Pos, "duplicate package %q", prog.Name(pkg.Name)).
				WithNote(prog.Package(prev).Pos, "previous declaration of %q", prog.Name(pkg.Name)).
				Emit()
			continue
		}
		byName[pkg.Name] = id
	}
	return byName
}

func bindUses(prog *ast.Program, r diag.Reporter, id ast.PkgID, byName map[source.StringID]ast.PkgID) {
	pkg := prog.Package(id)
	for i := range pkg.Uses {
		u := &pkg.Uses[i]
		target, ok := byName[u.Name]
		if !ok {
			diag.ReportError(r, diag.ResUndefinedPackage, u.Pos,
				"package %q uses undefined package %q", prog.Name(pkg.Name), prog.Name(u.Name)).Emit()
			continue
		}
		u.Target = target
	}
}
