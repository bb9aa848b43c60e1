package loader

import (
	"unicode/utf8"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"kpc/internal/ast"
)

var builtinTypes = map[string]ast.TypeKind{
	"int":        ast.TypeInt,
	"double":     ast.TypeDouble,
	"char":       ast.TypeChar,
	"bool":       ast.TypeBool,
	"void":       ast.TypeVoid,
	"anyType":    ast.TypeAny,
	"typeOfNull": ast.TypeNull,
}

// typ decodes a type. A scalar is a builtin or a type name; a mapping is
// one of ptr, array, record, function or named (with args). Anything
// malformed becomes an erroneous named type so later passes skip it.
func (l *loader) typ(n *yaml.Node) ast.TypeID {
	n = resolve(n)
	pos := l.pos(n)
	if n == nil {
		return l.badType(n)
	}
	if n.Kind == yaml.ScalarNode {
		if kind, ok := builtinTypes[n.Value]; ok {
			return l.prog.NewType(kind, pos)
		}
		name, ok := l.ident(n, "type name")
		if !ok {
			return l.badType(n)
		}
		return l.prog.NewNamed(name, nil, pos)
	}

	m, ok := l.mapping(n, "type", "ptr", "array", "record", "function", "named", "args")
	if !ok {
		return l.badType(n)
	}
	forms := 0
	for _, k := range []string{"ptr", "array", "record", "function", "named"} {
		if m[k] != nil {
			forms++
		}
	}
	if forms != 1 || m["args"] != nil && m["named"] == nil {
		l.errorf(n, "a type is exactly one of ptr, array, record, function or named")
		return l.badType(n)
	}

	switch {
	case m["ptr"] != nil:
		elem := l.typ(m["ptr"])
		return l.prog.NewPtr(elem, pos)

	case m["array"] != nil:
		am, ok := l.mapping(m["array"], "array type", "len", "of")
		if !ok {
			return l.badType(n)
		}
		elem := l.typ(am["of"])
		var length ast.ExprID
		if am["len"] != nil {
			length = l.expr(am["len"], n)
		}
		return l.prog.NewArray(elem, length, pos)

	case m["record"] != nil:
		fields := l.vars(m["record"], ast.VarRecordField, ast.NoDefID)
		return l.prog.NewRecord(fields, pos)

	case m["function"] != nil:
		fm, ok := l.mapping(m["function"], "function type", "params", "returns")
		if !ok {
			return l.badType(n)
		}
		var params []ast.TypeID
		for _, item := range l.sequence(fm["params"], "function type parameters") {
			params = append(params, l.typ(item))
		}
		var ret ast.TypeID
		if fm["returns"] != nil {
			ret = l.typ(fm["returns"])
		}
		return l.prog.NewFunctionType(params, ret, pos)

	default:
		name, ok := l.ident(m["named"], "type name")
		if !ok {
			return l.badType(n)
		}
		var args []ast.TypeID
		for _, item := range l.sequence(m["args"], "type arguments") {
			args = append(args, l.typ(item))
		}
		return l.prog.NewNamed(name, args, l.pos(m["named"]))
	}
}

func (l *loader) badType(n *yaml.Node) ast.TypeID {
	t := l.prog.NewNamed(0, nil, l.pos(n))
	l.prog.Type(t).Err = true
	return t
}

// expr decodes a compile-time expression. Scalars are literals by their
// YAML tag, with plain strings naming constants; mappings are char, op,
// call, sizeOf or name. A malformed node becomes the literal 0, positioned
// at parent when the node is missing.
func (l *loader) expr(n, parent *yaml.Node) ast.ExprID {
	n = resolve(n)
	if n == nil {
		return l.prog.NewIntLit(0, l.pos(parent))
	}
	pos := l.pos(n)
	zero := func() ast.ExprID { return l.prog.NewIntLit(0, pos) }

	if n.Kind == yaml.ScalarNode {
		switch n.ShortTag() {
		case "!!int":
			var v int64
			if err := n.Decode(&v); err != nil {
				l.errorf(n, "bad integer %q", n.Value)
				return zero()
			}
			i, err := safecast.Conv[int32](v)
			if err != nil {
				l.errorf(n, "integer %s does not fit in 32 bits", n.Value)
				return zero()
			}
			return l.prog.NewIntLit(i, pos)
		case "!!float":
			var v float64
			if err := n.Decode(&v); err != nil {
				l.errorf(n, "bad number %q", n.Value)
				return zero()
			}
			return l.prog.NewExpr(ast.Expr{Kind: ast.ExprDouble, Pos: pos, Double: v})
		case "!!bool":
			var v bool
			if err := n.Decode(&v); err != nil {
				l.errorf(n, "bad boolean %q", n.Value)
				return zero()
			}
			return l.prog.NewExpr(ast.Expr{Kind: ast.ExprBool, Pos: pos, Bool: v})
		case "!!null":
			return l.prog.NewExpr(ast.Expr{Kind: ast.ExprNull, Pos: pos})
		}
		name, ok := l.ident(n, "constant name")
		if !ok {
			return zero()
		}
		return l.prog.NewExpr(ast.Expr{Kind: ast.ExprName, Pos: pos, Name: name})
	}

	m, ok := l.mapping(n, "expression", "char", "op", "call", "args", "sizeOf", "name")
	if !ok {
		return zero()
	}
	switch {
	case m["char"] != nil:
		c := resolve(m["char"])
		r, size := utf8.DecodeRuneInString(c.Value)
		if size == 0 || size != len(c.Value) || r > 0xff {
			l.errorf(c, "char literal %q must be one character in the range 0..255", c.Value)
			return zero()
		}
		return l.prog.NewExpr(ast.Expr{Kind: ast.ExprChar, Pos: pos, Char: byte(r)})

	case m["op"] != nil, m["call"] != nil:
		kind, key := ast.ExprCall, "call"
		if m["op"] != nil {
			key = "op"
		}
		name, ok := l.ident(m[key], key)
		if !ok {
			return zero()
		}
		var args []ast.ExprID
		for _, item := range l.sequence(m["args"], "operands") {
			args = append(args, l.expr(item, n))
		}
		if key == "op" {
			switch len(args) {
			case 1:
				kind = ast.ExprUnary
			case 2:
				kind = ast.ExprBinary
			default:
				l.errorf(n, "operator %q takes one or two operands, got %d", m["op"].Value, len(args))
				return zero()
			}
		}
		return l.prog.NewExpr(ast.Expr{Kind: kind, Pos: pos, Name: name, Args: args})

	case m["sizeOf"] != nil:
		t := l.typ(m["sizeOf"])
		return l.prog.NewExpr(ast.Expr{Kind: ast.ExprSizeOf, Pos: pos, Type: t})

	case m["name"] != nil:
		name, ok := l.ident(m["name"], "constant name")
		if !ok {
			return zero()
		}
		return l.prog.NewExpr(ast.Expr{Kind: ast.ExprName, Pos: pos, Name: name})
	}
	l.errorf(n, "an expression is one of char, op, call, sizeOf or name")
	return zero()
}
