package export

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

// Apply installs the offsets of f into package id and marks it compiled.
// Nothing is written unless every abstract and selector of the package is
// found in f; otherwise the export is stale, a warning is reported and
// Apply returns false so the caller assigns offsets afresh.
func Apply(prog *ast.Program, id ast.PkgID, f *File, r diag.Reporter) bool {
	if r == nil {
		r = diag.NopReporter{}
	}
	pkg := prog.Package(id)
	byName := make(map[string]*Abstract, len(f.Abstracts))
	for i := range f.Abstracts {
		byName[f.Abstracts[i].Name] = &f.Abstracts[i]
	}

	type write struct {
		proto  ast.ProtoID
		offset int32
	}
	var writes []write
	stale := func(pos source.Pos, format string, args ...any) bool {
		diag.ReportWarning(r, diag.PrjStaleExport, pos, format, args...).
			WithNote(pkg.Pos, "offsets of package %q are assigned again", prog.Name(pkg.Name)).
			Emit()
		return false
	}

	for _, d := range pkg.Abstracts() {
		def := prog.Def(d)
		name := prog.Name(def.Name)
		a, ok := byName[name]
		if !ok {
			return stale(def.Pos, "export of %q has no %s %q", f.Package, def.Kind, name)
		}
		if a.Kind != uint8(def.Kind) {
			return stale(def.Pos, "export of %q records %q as a %s", f.Package, name, ast.DefKind(a.Kind))
		}
		offsets := make(map[string]int32, len(a.Selectors))
		for _, s := range a.Selectors {
			offsets[s.Name] = s.Offset
		}
		for _, p := range def.Protos {
			pr := prog.Proto(p)
			sel := prog.Name(pr.Selector)
			off, ok := offsets[sel]
			if !ok || off <= 0 {
				return stale(pr.Pos, "export of %q has no offset for %s.%s", f.Package, name, sel)
			}
			writes = append(writes, write{p, off})
		}
	}

	for _, w := range writes {
		prog.Proto(w.proto).Offset = w.offset
	}
	pkg.Compiled = true
	return true
}
