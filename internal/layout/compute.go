package layout

import (
	"fortio.org/safecast"

	"kpc/internal/ast"
	"kpc/internal/session"
)

func (s *Solver) word() TypeLayout {
	return TypeLayout{Size: s.Target.PtrSize, Align: s.Target.WordAlign}
}

// layoutOf returns the layout of t. A failure carries the innermost reason.
func (s *Solver) layoutOf(id ast.TypeID) (TypeLayout, *LayoutError) {
	if s.eng.IsErr(id) {
		// already reported where the type was bound
		return s.word(), nil
	}
	t := *s.prog.Type(id)
	switch t.Kind {
	case ast.TypeInt:
		return TypeLayout{Size: 4, Align: 4}, nil
	case ast.TypeDouble:
		return TypeLayout{Size: 8, Align: 4}, nil
	case ast.TypeChar, ast.TypeBool:
		return TypeLayout{Size: 1, Align: 1}, nil
	case ast.TypePtr, ast.TypeNull, ast.TypeFunction:
		return s.word(), nil
	case ast.TypeVoid, ast.TypeAny:
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnsized, Type: id, What: t.Kind.String()}
	case ast.TypeArray, ast.TypeRecord:
		if t.Size != ast.SizeUnknown {
			return TypeLayout{Size: t.Size, Align: s.alignOf(id)}, nil
		}
		return s.guarded(cacheKey{Type: id}, func() (TypeLayout, *LayoutError) {
			if t.Kind == ast.TypeArray {
				return s.arrayLayout(id)
			}
			return s.recordLayout(id)
		})
	case ast.TypeNamed:
		return s.namedLayout(id, t)
	default:
		session.Internal("unexpected type kind %d", t.Kind)
		return TypeLayout{}, nil
	}
}

// guarded runs compute once per key and pass, detecting types that reach
// themselves by value.
func (s *Solver) guarded(k cacheKey, compute func() (TypeLayout, *LayoutError)) (TypeLayout, *LayoutError) {
	if e, ok := s.cache.get(k); ok {
		return e.Layout, e.Err
	}
	if !s.state.push(k) {
		what := "type"
		if k.Def.IsValid() {
			what = s.prog.DefName(k.Def)
		} else if t := s.prog.Type(k.Type); t != nil {
			what = t.Kind.String()
		}
		return TypeLayout{}, &LayoutError{Kind: LayoutErrRecursive, Type: k.Type, Def: k.Def, What: what}
	}
	l, err := compute()
	s.state.pop()
	s.cache.put(k, cacheEntry{Layout: l, Err: err})
	return l, err
}

func (s *Solver) namedLayout(id ast.TypeID, t ast.Type) (TypeLayout, *LayoutError) {
	if t.Param.IsValid() {
		tp := s.prog.TypeParam(t.Param)
		if !s.constrained(tp.Constraint) {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnsized, Type: id,
				What: "unconstrained type parameter " + s.prog.Name(tp.Name)}
		}
		tp.PointerSized = true
		return s.word(), nil
	}
	d := s.prog.Def(t.Def)
	switch d.Kind {
	case ast.DefClass:
		return s.classLayout(t.Def)
	case ast.DefInterface:
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnsized, Type: id, What: "interface " + s.prog.DefName(t.Def)}
	case ast.DefAlias:
		target := d.Type
		return s.guarded(cacheKey{Type: id}, func() (TypeLayout, *LayoutError) {
			return s.layoutOf(target)
		})
	default:
		// bound to a non-type; reported by the resolver
		return s.word(), nil
	}
}

func (s *Solver) constrained(c ast.TypeID) bool {
	if !c.IsValid() {
		return false
	}
	t := s.prog.Type(s.eng.Resolve(c))
	return t != nil && t.Kind != ast.TypeAny
}

// alignOf is 1 for char and bool and a word for everything else.
func (s *Solver) alignOf(id ast.TypeID) int32 {
	t := s.prog.Type(s.eng.Resolve(id))
	if t != nil && (t.Kind == ast.TypeChar || t.Kind == ast.TypeBool) {
		return 1
	}
	return s.Target.WordAlign
}

// arrayLayout: count header, then count elements at stride, rounded to a word.
func (s *Solver) arrayLayout(id ast.TypeID) (TypeLayout, *LayoutError) {
	t := *s.prog.Type(id)
	if !t.Len.IsValid() {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnsized, Type: id, What: "array without a length"}
	}
	n, err := s.arrayCount(id, t.Len)
	if err != nil {
		return TypeLayout{}, err
	}
	elem, err := s.layoutOf(t.Elem)
	if err != nil {
		return TypeLayout{}, err
	}
	stride := alignUp(elem.Size, elem.Align)
	total := int64(s.Target.ArrayHeader) + int64(n)*int64(stride)
	total = (total + int64(s.Target.WordAlign) - 1) / int64(s.Target.WordAlign) * int64(s.Target.WordAlign)
	size, convErr := safecast.Conv[int32](total)
	if convErr != nil {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrOverflow, Type: id}
	}
	at := s.prog.Type(id)
	s.freeze(&at.Count, n)
	s.freeze(&at.Stride, stride)
	s.freeze(&at.Size, size)
	return TypeLayout{Size: size, Align: s.Target.WordAlign}, nil
}

func (s *Solver) arrayCount(id ast.TypeID, length ast.ExprID) (int32, *LayoutError) {
	e := s.prog.Expr(length)
	switch {
	case e.Kind == ast.ExprInt && e.Int > 0:
		return e.Int, nil
	case e.Kind == ast.ExprInt:
		return 0, &LayoutError{Kind: LayoutErrBadLength, Type: id, Value: e.Int}
	case e.Kind.IsLiteral():
		return 0, &LayoutError{Kind: LayoutErrBadLength, Type: id, What: e.Kind.String()}
	default:
		return 0, &LayoutError{Kind: LayoutErrPending, Type: id}
	}
}

// fieldsLayout places vars from offset start on, padding each to its
// alignment, and returns the end offset.
func (s *Solver) fieldsLayout(start int32, vars []ast.VarID) (int32, *LayoutError, bool) {
	layouts := make([]TypeLayout, len(vars))
	for i, v := range vars {
		vv := s.prog.Var(v)
		if vv.Size != ast.SizeUnknown {
			layouts[i] = TypeLayout{Size: vv.Size, Align: s.alignOf(vv.Type)}
			continue
		}
		l, err := s.layoutOf(vv.Type)
		if err != nil {
			if !s.report {
				return 0, err, false
			}
			s.reportVar(v, err)
			l = s.word()
		}
		layouts[i] = l
	}
	off := start
	for i, v := range vars {
		off = alignUp(off, layouts[i].Align)
		vv := s.prog.Var(v)
		s.freeze(&vv.Offset, off)
		s.freeze(&vv.Size, layouts[i].Size)
		off += layouts[i].Size
	}
	return off, nil, true
}

func (s *Solver) recordLayout(id ast.TypeID) (TypeLayout, *LayoutError) {
	fields := s.prog.Type(id).Fields
	end, err, ok := s.fieldsLayout(0, fields)
	if !ok {
		return TypeLayout{}, err
	}
	size := alignUp(end, s.Target.WordAlign)
	s.freeze(&s.prog.Type(id).Size, size)
	return TypeLayout{Size: size, Align: s.Target.WordAlign}, nil
}

// classLayout lays a class out after its superclass. Inherited field
// copies take the offsets fixed for the ancestor that declared them, so a
// subclass object starts with its superclass object.
func (s *Solver) classLayout(id ast.DefID) (TypeLayout, *LayoutError) {
	d := s.prog.Def(id)
	if d.Size != ast.SizeUnknown {
		return TypeLayout{Size: d.Size, Align: s.Target.WordAlign}, nil
	}
	return s.guarded(cacheKey{Def: id}, func() (TypeLayout, *LayoutError) {
		def := *s.prog.Def(id)
		start := s.Target.ObjectStart
		if sup := s.superDef(def.Super); sup.IsValid() {
			l, err := s.classLayout(sup)
			if err != nil {
				return TypeLayout{}, err
			}
			start = l.Size
		}

		own := make([]ast.VarID, 0, len(def.Fields))
		for _, f := range def.Fields {
			v := s.prog.Var(f)
			if v.Owner == id || !v.From.IsValid() {
				own = append(own, f)
				continue
			}
			src := *s.prog.Var(v.From)
			if src.Offset == ast.SizeUnknown {
				if !s.report {
					return TypeLayout{}, &LayoutError{Kind: LayoutErrPending, Type: v.Type}
				}
				continue
			}
			s.freeze(&v.Offset, src.Offset)
			s.freeze(&v.Size, src.Size)
		}

		end, err, ok := s.fieldsLayout(start, own)
		if !ok {
			return TypeLayout{}, err
		}
		size := alignUp(end, s.Target.WordAlign)
		s.freeze(&s.prog.Def(id).Size, size)
		return TypeLayout{Size: size, Align: s.Target.WordAlign}, nil
	})
}

func (s *Solver) superDef(super ast.TypeID) ast.DefID {
	if !super.IsValid() || s.eng.IsErr(super) {
		return ast.NoDefID
	}
	t := s.prog.Type(super)
	if d := s.prog.Def(t.Def); d != nil && d.Kind == ast.DefClass {
		return t.Def
	}
	return ast.NoDefID
}
