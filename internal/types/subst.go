package types

import (
	"kpc/internal/ast"
)

// Subst maps the type parameters of one generic definition to the
// arguments of one instantiation.
type Subst struct {
	params []ast.TypeParamID
	args   map[ast.TypeParamID]ast.TypeID
}

// BuildSubst zips params with args. Extra entries on either side are
// ignored (argument counts are checked elsewhere); nil means there is
// nothing to substitute.
func BuildSubst(params []ast.TypeParamID, args []ast.TypeID) *Subst {
	n := min(len(params), len(args))
	if n == 0 {
		return nil
	}
	s := &Subst{params: params[:n:n], args: make(map[ast.TypeParamID]ast.TypeID, n)}
	for i := range n {
		s.args[params[i]] = args[i]
	}
	return s
}

// Lookup returns the argument bound to p.
func (s *Subst) Lookup(p ast.TypeParamID) (ast.TypeID, bool) {
	if s == nil {
		return ast.NoTypeID, false
	}
	t, ok := s.args[p]
	return t, ok
}

// Len returns the number of bound parameters.
func (s *Subst) Len() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// Params returns the bound parameters in declaration order.
func (s *Subst) Params() []ast.TypeParamID {
	if s == nil {
		return nil
	}
	return s.params
}

// SubstFor returns the substitution a named type applies to its
// definition's parameters. Results are memoised per type node.
func (e *Engine) SubstFor(named ast.TypeID) *Subst {
	if s, ok := e.memo[named]; ok {
		return s
	}
	var s *Subst
	if t := e.prog.Type(named); t != nil && t.Kind == ast.TypeNamed && len(t.Args) > 0 {
		if d := e.prog.Def(t.Def); d != nil {
			s = BuildSubst(d.TypeParams, t.Args)
		}
	}
	e.memo[named] = s
	return s
}

// Apply rebuilds id with every reference to a substituted parameter
// replaced by its argument. Unchanged structure is shared: when nothing
// inside id changes, id itself is returned. Array length expressions are
// kept as they are and layout fields of rebuilt nodes start unknown.
func (e *Engine) Apply(id ast.TypeID, s *Subst) ast.TypeID {
	if s.Len() == 0 || !id.IsValid() {
		return id
	}
	node := e.prog.Type(id)
	if node == nil {
		return id
	}
	// copy: recursive calls may grow the arena
	t := *node
	switch t.Kind {
	case ast.TypeInvalid, ast.TypeInt, ast.TypeDouble, ast.TypeChar, ast.TypeBool,
		ast.TypeVoid, ast.TypeNull, ast.TypeAny:
		return id

	case ast.TypePtr:
		elem := e.Apply(t.Elem, s)
		if elem == t.Elem {
			return id
		}
		return e.prog.NewPtr(elem, t.Pos)

	case ast.TypeArray:
		elem := e.Apply(t.Elem, s)
		if elem == t.Elem {
			return id
		}
		return e.prog.NewArray(elem, t.Len, t.Pos)

	case ast.TypeRecord:
		return e.applyRecord(id, s)

	case ast.TypeFunction:
		params, changed := e.applyList(t.Params, s)
		ret := e.Apply(t.Ret, s)
		if !changed && ret == t.Ret {
			return id
		}
		return e.prog.NewFunctionType(params, ret, t.Pos)

	case ast.TypeNamed:
		if t.Param.IsValid() {
			if arg, ok := s.Lookup(t.Param); ok {
				return arg
			}
			return id
		}
		args, changed := e.applyList(t.Args, s)
		if !changed {
			return id
		}
		clone := t
		clone.Args = args
		clone.Size = ast.SizeUnknown
		return ast.TypeID(e.prog.Types.Allocate(clone))
	}
	return id
}

func (e *Engine) applyList(ids []ast.TypeID, s *Subst) ([]ast.TypeID, bool) {
	var out []ast.TypeID
	for i, id := range ids {
		n := e.Apply(id, s)
		if n != id && out == nil {
			out = make([]ast.TypeID, len(ids))
			copy(out, ids[:i])
		}
		if out != nil {
			out[i] = n
		}
	}
	if out == nil {
		return ids, false
	}
	return out, true
}

// applyRecord copies the field list only when some field type changes. The
// copies point back at the originals through From.
func (e *Engine) applyRecord(id ast.TypeID, s *Subst) ast.TypeID {
	t := *e.prog.Type(id)
	fields := t.Fields
	fieldTypes := make([]ast.TypeID, len(fields))
	changed := false
	for i, f := range fields {
		v := e.prog.Var(f)
		fieldTypes[i] = e.Apply(v.Type, s)
		changed = changed || fieldTypes[i] != v.Type
	}
	if !changed {
		return id
	}
	copies := make([]ast.VarID, len(fields))
	for i, f := range fields {
		v := *e.prog.Var(f)
		copies[i] = e.prog.NewVar(ast.Var{
			Kind:  v.Kind,
			Name:  v.Name,
			Pos:   v.Pos,
			Type:  fieldTypes[i],
			Owner: v.Owner,
			From:  f,
		})
	}
	return e.prog.NewRecord(copies, t.Pos)
}
