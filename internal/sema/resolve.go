package sema

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/symbols"
)

// resolveTypes binds every named type and every constant expression of the
// package. Inside a class or interface, its type parameters shadow package
// names.
func (c *checker) resolveTypes() {
	pkg := c.pkg
	for _, id := range pkg.Consts {
		d := c.prog.Def(id)
		c.bindType(d.Type, ast.NoDefID)
		c.bindExpr(d.Value, ast.NoDefID)
	}
	for _, id := range pkg.Errors {
		c.bindVars(c.prog.Def(id).Params, ast.NoDefID)
	}
	for _, id := range pkg.Globals {
		d := c.prog.Def(id)
		c.bindType(c.prog.Var(d.Var).Type, ast.NoDefID)
		c.bindExpr(d.Value, ast.NoDefID)
	}
	for _, id := range pkg.Aliases {
		c.bindType(c.prog.Def(id).Type, ast.NoDefID)
	}
	for _, id := range pkg.Functions {
		d := c.prog.Def(id)
		c.bindProto(d.Proto, ast.NoDefID)
		c.bindMethod(d.Body, ast.NoDefID)
	}
	for _, id := range pkg.Interfaces {
		c.declareTypeParams(id)
		d := c.prog.Def(id)
		for _, ext := range d.Extends {
			c.bindType(ext, id)
		}
		for _, p := range d.Protos {
			c.bindProto(p, id)
		}
	}
	for _, id := range pkg.Classes {
		c.declareTypeParams(id)
		d := c.prog.Def(id)
		c.bindType(d.Super, id)
		for _, impl := range d.Implements {
			c.bindImplements(impl, id)
		}
		c.bindVars(d.Fields, id)
		for _, p := range d.Protos {
			c.bindProto(p, id)
		}
		for _, m := range d.Methods {
			c.bindMethod(m, id)
		}
	}
}

// declareTypeParams builds the parameter scope of a generic abstract and
// binds the constraints inside it.
func (c *checker) declareTypeParams(owner ast.DefID) {
	d := c.prog.Def(owner)
	scope := symbols.NewScope[ast.TypeParamID](symbols.ScopeTypeParams, nil)
	for _, tp := range d.TypeParams {
		p := c.prog.TypeParam(tp)
		if prev, ok := scope.Insert(p.Name, tp, p.Pos); !ok {
			c.errorf(diag.ResDuplicateName, p.Pos, "type parameter %q is declared twice", c.name(p.Name)).
				WithNote(prev.Pos, "previous declaration").
				Emit()
		}
	}
	d.ParamScope = scope
	for _, tp := range d.TypeParams {
		c.bindType(c.prog.TypeParam(tp).Constraint, owner)
	}
}

func (c *checker) bindImplements(impl ast.TypeID, owner ast.DefID) {
	c.bindType(impl, owner)
	t := c.prog.Type(impl)
	if t.Err {
		return
	}
	if d := c.prog.Def(t.Def); d == nil || d.Kind != ast.DefInterface {
		c.errorf(diag.ResNotAnInterface, t.Pos, "%s implements %q, which is not an interface", c.prog.DefName(owner), c.name(t.Name)).Emit()
		t.Err = true
	}
}

func (c *checker) bindVars(vars []ast.VarID, owner ast.DefID) {
	for _, v := range vars {
		c.bindType(c.prog.Var(v).Type, owner)
	}
}

func (c *checker) bindProto(id ast.ProtoID, owner ast.DefID) {
	p := c.prog.Proto(id)
	if p == nil {
		return
	}
	c.bindVars(p.Params, owner)
	c.bindType(p.Ret, owner)
}

func (c *checker) bindMethod(id ast.MethodID, owner ast.DefID) {
	m := c.prog.Method(id)
	if m == nil {
		return
	}
	c.bindVars(m.Params, owner)
	c.bindType(m.Ret, owner)
	c.bindVars(m.Locals, owner)
}

// bindType binds named types inside id. An unknown name or a name that is
// not a type marks the node erroneous.
func (c *checker) bindType(id ast.TypeID, owner ast.DefID) {
	t := c.prog.Type(id)
	if t == nil {
		return
	}
	switch t.Kind {
	case ast.TypeInvalid, ast.TypeInt, ast.TypeDouble, ast.TypeChar, ast.TypeBool,
		ast.TypeVoid, ast.TypeNull, ast.TypeAny:

	case ast.TypePtr:
		c.bindType(t.Elem, owner)

	case ast.TypeArray:
		c.bindType(t.Elem, owner)
		c.bindExpr(t.Len, owner)

	case ast.TypeRecord:
		scope := symbols.NewScope[ast.VarID](symbols.ScopeFields, nil)
		for _, f := range t.Fields {
			v := c.prog.Var(f)
			if prev, ok := scope.Insert(v.Name, f, v.Pos); !ok {
				c.errorf(diag.ResDuplicateName, v.Pos, "record field %q is declared twice", c.name(v.Name)).
					WithNote(prev.Pos, "previous declaration").
					Emit()
			}
			c.bindType(v.Type, owner)
		}

	case ast.TypeFunction:
		for _, p := range t.Params {
			c.bindType(p, owner)
		}
		c.bindType(t.Ret, owner)

	case ast.TypeNamed:
		c.bindNamed(id, owner)
	}
}

func (c *checker) bindNamed(id ast.TypeID, owner ast.DefID) {
	t := c.prog.Type(id)
	if !t.IsBound() && !t.Err {
		c.lookupType(t, owner)
	}
	for _, arg := range t.Args {
		c.bindType(arg, owner)
	}
	if t.Err {
		return
	}
	if t.Param.IsValid() {
		if len(t.Args) > 0 {
			c.errorf(diag.GenNotGeneric, t.Pos, "type parameter %q takes no type arguments", c.name(t.Name)).Emit()
		}
		return
	}
	d := c.prog.Def(t.Def)
	want, got := len(d.TypeParams), len(t.Args)
	switch {
	case want == got:
		if got > 0 {
			c.instances = append(c.instances, id)
		}
	case want == 0:
		c.errorf(diag.GenNotGeneric, t.Pos, "%s is not generic but %d type arguments are given", c.prog.DefName(t.Def), got).
			WithNote(d.Pos, "%s declared here", c.prog.DefName(t.Def)).
			Emit()
	case got == 0:
		c.errorf(diag.GenMissingTyArgs, t.Pos, "%s needs %d type arguments", c.prog.DefName(t.Def), want).
			WithNote(d.Pos, "%s declared here", c.prog.DefName(t.Def)).
			Emit()
	default:
		c.errorf(diag.GenArgCount, t.Pos, "%s expects %d type arguments, got %d", c.prog.DefName(t.Def), want, got).
			WithNote(d.Pos, "%s declared here", c.prog.DefName(t.Def)).
			Emit()
		c.instances = append(c.instances, id)
	}
}

func (c *checker) lookupType(t *ast.Type, owner ast.DefID) {
	if owner.IsValid() {
		if e, ok := c.prog.Def(owner).ParamScope.LookupLocal(t.Name); ok {
			t.Param = e.Value
			return
		}
	}
	e, ok := c.pkg.Scope.Lookup(t.Name)
	if !ok {
		c.errorf(diag.ResUndefinedName, t.Pos, "undefined type %q", c.name(t.Name)).Emit()
		t.Err = true
		return
	}
	d := c.prog.Def(e.Value)
	switch d.Kind {
	case ast.DefAlias, ast.DefClass, ast.DefInterface:
		t.Def = e.Value
	default:
		c.errorf(diag.ResNotAType, t.Pos, "%s %q is not a type", d.Kind, c.name(t.Name)).
			WithNote(d.Pos, "%q declared here", c.name(t.Name)).
			Emit()
		t.Err = true
	}
}

// bindExpr binds constant names and primitive operations. A node that cannot
// be bound is replaced by the literal 0 so folding can go on.
func (c *checker) bindExpr(id ast.ExprID, owner ast.DefID) {
	e := c.prog.Expr(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprInvalid, ast.ExprInt, ast.ExprDouble, ast.ExprChar, ast.ExprBool, ast.ExprNull:

	case ast.ExprName:
		if e.Def.IsValid() {
			return
		}
		entry, ok := c.pkg.Scope.Lookup(e.Name)
		if !ok {
			c.errorf(diag.ResUndefinedName, e.Pos, "undefined constant %q", c.name(e.Name)).Emit()
			c.prog.ReplaceExpr(id, ast.Expr{Kind: ast.ExprInt})
			return
		}
		d := c.prog.Def(entry.Value)
		if d.Kind != ast.DefConst {
			c.errorf(diag.ResNotAConstant, e.Pos, "%s %q is not a constant", d.Kind, c.name(e.Name)).
				WithNote(d.Pos, "%q declared here", c.name(e.Name)).
				Emit()
			c.prog.ReplaceExpr(id, ast.Expr{Kind: ast.ExprInt})
			return
		}
		e.Def = entry.Value

	case ast.ExprUnary, ast.ExprBinary, ast.ExprCall:
		op, ok := c.prog.Primitives.Lookup(e.Name, len(e.Args))
		if !ok {
			c.errorf(diag.ResUndefinedName, e.Pos, "no compile-time operation %q with %d operands", c.name(e.Name), len(e.Args)).Emit()
			c.prog.ReplaceExpr(id, ast.Expr{Kind: ast.ExprInt})
			return
		}
		e.Op = op
		for _, arg := range e.Args {
			c.bindExpr(arg, owner)
		}

	case ast.ExprSizeOf:
		c.bindType(e.Type, owner)
	}
}
