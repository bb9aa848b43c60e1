package types

import (
	"strconv"
	"strings"

	"kpc/internal/ast"
)

// String renders a type the way diagnostics quote it.
func (e *Engine) String(id ast.TypeID) string {
	var b strings.Builder
	e.write(&b, id, 0)
	return b.String()
}

func (e *Engine) write(b *strings.Builder, id ast.TypeID, depth int) {
	if !id.IsValid() {
		b.WriteString("void")
		return
	}
	t := e.prog.Type(id)
	if t == nil {
		b.WriteString("<invalid>")
		return
	}
	if depth > 8 {
		b.WriteString("...")
		return
	}
	switch t.Kind {
	case ast.TypePtr:
		b.WriteString("ptr to ")
		e.write(b, t.Elem, depth+1)
	case ast.TypeArray:
		b.WriteString("array [")
		if n, ok := e.ArrayLen(id); ok {
			b.WriteString(strconv.Itoa(int(n)))
		} else if t.Len.IsValid() {
			b.WriteString("?")
		}
		b.WriteString("] of ")
		e.write(b, t.Elem, depth+1)
	case ast.TypeRecord:
		b.WriteString("record ")
		for _, f := range t.Fields {
			v := e.prog.Var(f)
			b.WriteString(e.prog.Name(v.Name))
			b.WriteString(": ")
			e.write(b, v.Type, depth+1)
			b.WriteString("; ")
		}
		b.WriteString("endRecord")
	case ast.TypeFunction:
		b.WriteString("function (")
		for i, p := range t.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			e.write(b, p, depth+1)
		}
		b.WriteString(")")
		if t.Ret.IsValid() {
			b.WriteString(" returns ")
			e.write(b, t.Ret, depth+1)
		}
	case ast.TypeNamed:
		if t.Def.IsValid() {
			b.WriteString(e.prog.DefName(t.Def))
		} else {
			b.WriteString(e.prog.Name(t.Name))
		}
		if len(t.Args) > 0 {
			b.WriteString("[")
			for i, a := range t.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				e.write(b, a, depth+1)
			}
			b.WriteString("]")
		}
	default:
		b.WriteString(t.Kind.String())
	}
}
