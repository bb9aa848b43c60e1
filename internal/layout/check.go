package layout

import (
	"kpc/internal/ast"
	"kpc/internal/consteval"
	"kpc/internal/diag"
)

// CheckInstantiations runs after Solve. It reports generic arguments too
// large for parameters used by value, and constants and global initializers
// that did not fold to a literal of their declared type.
func (s *Solver) CheckInstantiations(pkgs []ast.PkgID) {
	s.checkArgs()
	for _, id := range pkgs {
		pkg := s.prog.Package(id)
		for _, d := range pkg.Consts {
			s.checkValue(d)
		}
		for _, d := range pkg.Globals {
			s.checkValue(d)
		}
	}
}

func (s *Solver) checkArgs() {
	n := s.prog.Types.Len()
	for i := uint32(1); i <= n; i++ {
		t := *s.prog.Type(ast.TypeID(i))
		if t.Kind != ast.TypeNamed || t.Err || len(t.Args) == 0 {
			continue
		}
		d := s.prog.Def(t.Def)
		if d == nil || !d.Kind.IsAbstract() {
			continue
		}
		for j, arg := range t.Args {
			if j >= len(d.TypeParams) {
				break
			}
			tp := s.prog.TypeParam(d.TypeParams[j])
			if !tp.PointerSized {
				continue
			}
			l, err := s.layoutOf(arg)
			if err != nil || l.Size <= s.Target.PtrSize {
				continue
			}
			diag.ReportError(s.rep, diag.GenTooLarge, s.prog.Type(arg).Pos,
				"type argument %s is %d bytes; parameter %s of %s takes at most %d",
				s.eng.String(arg), l.Size, s.prog.Name(tp.Name), s.prog.DefName(t.Def), s.Target.PtrSize).
				WithNote(tp.Pos, "parameter %s is used by value here", s.prog.Name(tp.Name)).
				Emit()
		}
	}
}

func (s *Solver) checkValue(id ast.DefID) {
	d := *s.prog.Def(id)
	if !d.Value.IsValid() {
		return
	}
	e := s.prog.Expr(d.Value)
	if !consteval.IsConstant(s.prog, d.Value) {
		if s.blockedBySizeOf(d.Value) {
			return
		}
		what := "value of constant"
		if d.Kind == ast.DefGlobal {
			what = "initializer of global"
		}
		diag.ReportError(s.rep, diag.ConNotConstant, e.Pos, "%s %q is not a compile-time constant", what, s.prog.Name(d.Name)).Emit()
		return
	}
	declared := d.Type
	if d.Kind == ast.DefGlobal {
		declared = s.prog.Var(d.Var).Type
	}
	if !declared.IsValid() || s.eng.IsErr(declared) {
		return
	}
	if !s.literalFits(declared, e) {
		diag.ReportError(s.rep, diag.VarTypeMismatch, e.Pos, "%s %q has type %s but its value is %s",
			d.Kind, s.prog.Name(d.Name), s.eng.String(declared), consteval.KindOf(e)).Emit()
	}
}

func (s *Solver) literalFits(declared ast.TypeID, e *ast.Expr) bool {
	t := s.prog.Type(s.eng.Resolve(declared))
	if t == nil || s.eng.IsErr(declared) {
		return true
	}
	lit := consteval.KindOf(e)
	if lit == ast.TypeNull {
		switch t.Kind {
		case ast.TypePtr, ast.TypeFunction, ast.TypeNull, ast.TypeNamed:
			return true
		}
		return false
	}
	return lit == t.Kind
}
