package layout

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
)

// reportSizeOfs explains every sizeOf expression still unfolded after the
// fixed point. Each argument type is reported once; an array length that is
// merely waiting on some other unfolded constant is left to whoever reports
// that constant.
func (s *Solver) reportSizeOfs() {
	s.cache.reset()
	n := s.prog.Exprs.Len()
	for i := uint32(1); i <= n; i++ {
		id := ast.ExprID(i)
		e := *s.prog.Expr(id)
		if e.Kind != ast.ExprSizeOf {
			continue
		}
		_, err := s.layoutOf(e.Type)
		if err == nil {
			continue
		}
		var note string
		switch {
		case err.Kind == LayoutErrPending:
			at := s.prog.Type(err.Type)
			if at == nil || at.Kind != ast.TypeArray || !s.reaches(at.Len, id, map[ast.DefID]bool{}) {
				continue
			}
			note = "it depends on its own value through the length of " + s.eng.String(err.Type)
		default:
			note = err.Error()
		}
		s.failedSizeOf[id] = true
		if s.reportedSizeOf[e.Type] {
			continue
		}
		s.reportedSizeOf[e.Type] = true
		diag.ReportError(s.rep, diag.LayUnsized, e.Pos, "sizeOf(%s) has no value: %s", s.eng.String(e.Type), note).Emit()
	}
}

// reaches reports whether the unfolded expression from refers to target,
// directly or through constants.
func (s *Solver) reaches(from, target ast.ExprID, seen map[ast.DefID]bool) bool {
	if from == target {
		return true
	}
	e := s.prog.Expr(from)
	if e == nil {
		return false
	}
	switch e.Kind {
	case ast.ExprName:
		d := s.prog.Def(e.Def)
		if d == nil || d.Kind != ast.DefConst || seen[e.Def] {
			return false
		}
		seen[e.Def] = true
		return s.reaches(d.Value, target, seen)
	case ast.ExprUnary, ast.ExprBinary, ast.ExprCall:
		for _, a := range e.Args {
			if s.reaches(a, target, seen) {
				return true
			}
		}
	}
	return false
}

// blockedBySizeOf reports whether the only thing keeping id from folding
// is a sizeOf that has already been explained.
func (s *Solver) blockedBySizeOf(id ast.ExprID) bool {
	blocked, other := s.blockers(id, map[ast.DefID]bool{})
	return blocked && !other
}

func (s *Solver) blockers(id ast.ExprID, seen map[ast.DefID]bool) (blocked, other bool) {
	e := s.prog.Expr(id)
	if e == nil {
		return false, true
	}
	switch e.Kind {
	case ast.ExprSizeOf:
		if s.failedSizeOf[id] {
			return true, false
		}
		return false, true
	case ast.ExprName:
		d := s.prog.Def(e.Def)
		if d == nil || d.Kind != ast.DefConst {
			return false, true
		}
		if seen[e.Def] {
			return false, false
		}
		seen[e.Def] = true
		return s.blockers(d.Value, seen)
	case ast.ExprUnary, ast.ExprBinary, ast.ExprCall:
		for _, a := range e.Args {
			b, o := s.blockers(a, seen)
			blocked = blocked || b
			other = other || o
		}
		return blocked, other
	case ast.ExprInvalid:
		return false, true
	default:
		return false, false
	}
}
