package loader

import (
	"gopkg.in/yaml.v3"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

var sectionKeys = []string{"consts", "errors", "globals", "types", "functions", "interfaces", "classes"}

// section declares everything in a header (exported) or code section.
func (l *loader) section(pkg ast.PkgID, n *yaml.Node, exported bool) {
	what, keys := "header", sectionKeys
	if !exported {
		what, keys = "code", append(keys[:len(keys):len(keys)], "behaviors")
	}
	if n = resolve(n); n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return
	}
	m, ok := l.mapping(n, what, keys...)
	if !ok {
		return
	}
	for _, item := range l.sequence(m["consts"], "consts") {
		l.constDecl(pkg, item, exported)
	}
	for _, item := range l.sequence(m["errors"], "errors") {
		l.errorDecl(pkg, item, exported)
	}
	for _, item := range l.sequence(m["globals"], "globals") {
		l.globalDecl(pkg, item, exported)
	}
	for _, item := range l.sequence(m["types"], "types") {
		l.aliasDecl(pkg, item, exported)
	}
	for _, item := range l.sequence(m["functions"], "functions") {
		if exported {
			l.functionDecl(pkg, item)
		} else {
			l.functionBody(pkg, item)
		}
	}
	for _, item := range l.sequence(m["interfaces"], "interfaces") {
		l.interfaceDecl(pkg, item, exported)
	}
	for _, item := range l.sequence(m["classes"], "classes") {
		l.classDecl(pkg, item, exported)
	}
	for _, item := range l.sequence(m["behaviors"], "behaviors") {
		l.behavior(pkg, item)
	}
}

// def allocates a definition named by m["name"].
func (l *loader) def(pkg ast.PkgID, kind ast.DefKind, m map[string]*yaml.Node, exported bool) (ast.DefID, bool) {
	name, ok := l.ident(m["name"], kind.String()+" name")
	if !ok {
		return ast.NoDefID, false
	}
	return l.prog.NewDef(ast.Def{Kind: kind, Name: name, Pos: l.pos(m["name"]), Pkg: pkg, Exported: exported}), true
}

func (l *loader) constDecl(pkg ast.PkgID, n *yaml.Node, exported bool) {
	m, ok := l.mapping(n, "constant", "name", "type", "value")
	if !ok {
		return
	}
	id, ok := l.def(pkg, ast.DefConst, m, exported)
	if !ok {
		return
	}
	if m["value"] == nil {
		l.errorf(n, "constant %q has no value", l.prog.Name(l.prog.Def(id).Name))
	}
	var typ ast.TypeID
	if m["type"] != nil {
		typ = l.typ(m["type"])
	}
	value := l.expr(m["value"], n)
	d := l.prog.Def(id)
	d.Type, d.Value = typ, value
	p := l.prog.Package(pkg)
	p.Consts = append(p.Consts, id)
}

func (l *loader) errorDecl(pkg ast.PkgID, n *yaml.Node, exported bool) {
	m, ok := l.mapping(n, "error", "name", "params")
	if !ok {
		return
	}
	id, ok := l.def(pkg, ast.DefError, m, exported)
	if !ok {
		return
	}
	params := l.vars(m["params"], ast.VarErrorParam, id)
	l.prog.Def(id).Params = params
	p := l.prog.Package(pkg)
	p.Errors = append(p.Errors, id)
}

func (l *loader) globalDecl(pkg ast.PkgID, n *yaml.Node, exported bool) {
	m, ok := l.mapping(n, "global", "name", "type", "value")
	if !ok {
		return
	}
	id, ok := l.def(pkg, ast.DefGlobal, m, exported)
	if !ok {
		return
	}
	d := *l.prog.Def(id)
	v := l.prog.NewVar(ast.Var{Kind: ast.VarGlobal, Name: d.Name, Pos: d.Pos, Type: l.typ(m["type"]), Owner: id})
	var value ast.ExprID
	if m["value"] != nil {
		value = l.expr(m["value"], n)
	}
	dp := l.prog.Def(id)
	dp.Var, dp.Value = v, value
	p := l.prog.Package(pkg)
	p.Globals = append(p.Globals, id)
}

func (l *loader) aliasDecl(pkg ast.PkgID, n *yaml.Node, exported bool) {
	m, ok := l.mapping(n, "type", "name", "type")
	if !ok {
		return
	}
	id, ok := l.def(pkg, ast.DefAlias, m, exported)
	if !ok {
		return
	}
	typ := l.typ(m["type"])
	l.prog.Def(id).Type = typ
	p := l.prog.Package(pkg)
	p.Aliases = append(p.Aliases, id)
}

// functionDecl declares an exported function from its header prototype.
func (l *loader) functionDecl(pkg ast.PkgID, n *yaml.Node) {
	m, ok := l.mapping(n, "function", "name", "params", "returns")
	if !ok {
		return
	}
	id, ok := l.def(pkg, ast.DefFunction, m, true)
	if !ok {
		return
	}
	proto := l.proto(m, ast.ProtoFunction, id)
	l.prog.Def(id).Proto = proto
	p := l.prog.Package(pkg)
	p.Functions = append(p.Functions, id)
}

// functionBody attaches a code-section function to the exported function
// of the same name, or declares a private one.
func (l *loader) functionBody(pkg ast.PkgID, n *yaml.Node) {
	m, ok := l.mapping(n, "function", "name", "params", "returns", "locals")
	if !ok {
		return
	}
	name, ok := l.ident(m["name"], "function name")
	if !ok {
		return
	}
	for _, fn := range l.prog.Package(pkg).Functions {
		d := l.prog.Def(fn)
		if d.Name != name || !d.Exported {
			continue
		}
		if d.Body.IsValid() {
			diag.ReportError(l.rep, diag.VarDuplicateBody, l.pos(m["name"]), "function %q has more than one body", l.prog.Name(name)).
				WithNote(l.prog.Method(d.Body).Pos, "first body here").
				Emit()
			return
		}
		body := l.method(m, ast.ProtoFunction, fn)
		l.prog.Def(fn).Body = body
		return
	}

	id, ok := l.def(pkg, ast.DefFunction, m, false)
	if !ok {
		return
	}
	proto := l.proto(m, ast.ProtoFunction, id)
	body := l.method(m, ast.ProtoFunction, id)
	d := l.prog.Def(id)
	d.Proto, d.Body = proto, body
	p := l.prog.Package(pkg)
	p.Functions = append(p.Functions, id)
}

func (l *loader) interfaceDecl(pkg ast.PkgID, n *yaml.Node, exported bool) {
	m, ok := l.mapping(n, "interface", "name", "params", "extends", "messages")
	if !ok {
		return
	}
	id, ok := l.def(pkg, ast.DefInterface, m, exported)
	if !ok {
		return
	}
	params := l.typeParams(m["params"], id)
	var extends []ast.TypeID
	for _, item := range l.sequence(m["extends"], "extends") {
		extends = append(extends, l.typ(item))
	}
	protos := l.protos(m["messages"], id)
	d := l.prog.Def(id)
	d.TypeParams, d.Extends, d.Protos = params, extends, protos
	p := l.prog.Package(pkg)
	p.Interfaces = append(p.Interfaces, id)
}

func (l *loader) classDecl(pkg ast.PkgID, n *yaml.Node, exported bool) {
	m, ok := l.mapping(n, "class", "name", "params", "super", "implements", "fields", "methods")
	if !ok {
		return
	}
	id, ok := l.def(pkg, ast.DefClass, m, exported)
	if !ok {
		return
	}
	params := l.typeParams(m["params"], id)
	var super ast.TypeID
	if m["super"] != nil {
		super = l.typ(m["super"])
	}
	var impls []ast.TypeID
	for _, item := range l.sequence(m["implements"], "implements") {
		impls = append(impls, l.typ(item))
	}
	fields := l.vars(m["fields"], ast.VarField, id)
	protos := l.protos(m["methods"], id)
	d := l.prog.Def(id)
	d.TypeParams, d.Super, d.Implements, d.Fields, d.Protos = params, super, impls, fields, protos
	p := l.prog.Package(pkg)
	p.Classes = append(p.Classes, id)
}

func (l *loader) behavior(pkg ast.PkgID, n *yaml.Node) {
	m, ok := l.mapping(n, "behavior", "class", "methods")
	if !ok {
		return
	}
	class, ok := l.ident(m["class"], "behavior class")
	if !ok {
		return
	}
	b := ast.Behavior{Class: class, Pos: l.pos(m["class"])}
	for _, item := range l.sequence(m["methods"], "methods") {
		mm, ok := l.mapping(item, "method body", "selector", "kind", "params", "returns", "locals")
		if !ok {
			continue
		}
		kind, ok := l.protoKind(mm["kind"])
		if !ok {
			continue
		}
		if body := l.method(mm, kind, ast.NoDefID); body.IsValid() {
			b.Methods = append(b.Methods, body)
		}
	}
	p := l.prog.Package(pkg)
	p.Behaviors = append(p.Behaviors, b)
}

func (l *loader) typeParams(n *yaml.Node, owner ast.DefID) []ast.TypeParamID {
	var out []ast.TypeParamID
	for _, item := range l.sequence(n, "type parameters") {
		item = resolve(item)
		nameNode, constraint := item, ast.NoTypeID
		if item.Kind == yaml.MappingNode {
			m, ok := l.mapping(item, "type parameter", "name", "constraint")
			if !ok {
				continue
			}
			nameNode = m["name"]
			if m["constraint"] != nil {
				constraint = l.typ(m["constraint"])
			}
		}
		name, ok := l.ident(nameNode, "type parameter name")
		if !ok {
			continue
		}
		out = append(out, l.prog.NewTypeParam(ast.TypeParam{Name: name, Pos: l.pos(nameNode), Constraint: constraint, Owner: owner}))
	}
	return out
}

// vars decodes a list of {name, type} entries.
func (l *loader) vars(n *yaml.Node, kind ast.VarKind, owner ast.DefID) []ast.VarID {
	var out []ast.VarID
	for _, item := range l.sequence(n, kind.String()+"s") {
		m, ok := l.mapping(item, kind.String(), "name", "type")
		if !ok {
			continue
		}
		name, ok := l.ident(m["name"], kind.String()+" name")
		if !ok {
			continue
		}
		if m["type"] == nil {
			l.errorf(item, "%s %q has no type", kind, l.prog.Name(name))
		}
		typ := l.typ(m["type"])
		out = append(out, l.prog.NewVar(ast.Var{Kind: kind, Name: name, Pos: l.pos(m["name"]), Type: typ, Owner: owner}))
	}
	return out
}

func (l *loader) protos(n *yaml.Node, owner ast.DefID) []ast.ProtoID {
	var out []ast.ProtoID
	for _, item := range l.sequence(n, "prototypes") {
		m, ok := l.mapping(item, "prototype", "selector", "kind", "params", "returns")
		if !ok {
			continue
		}
		kind, ok := l.protoKind(m["kind"])
		if !ok {
			continue
		}
		if p := l.proto(m, kind, owner); p.IsValid() {
			out = append(out, p)
		}
	}
	return out
}

// selector returns the selector of a method or the name of a function.
func (l *loader) selector(m map[string]*yaml.Node, kind ast.ProtoKind) (source.StringID, *yaml.Node, bool) {
	key := "selector"
	if kind == ast.ProtoFunction {
		key = "name"
	}
	sel, ok := l.ident(m[key], key)
	return sel, m[key], ok
}

func (l *loader) proto(m map[string]*yaml.Node, kind ast.ProtoKind, owner ast.DefID) ast.ProtoID {
	sel, at, ok := l.selector(m, kind)
	if !ok {
		return ast.NoProtoID
	}
	params := l.vars(m["params"], ast.VarParam, ast.NoDefID)
	var ret ast.TypeID
	if m["returns"] != nil {
		ret = l.typ(m["returns"])
	}
	return l.prog.NewProto(ast.Proto{Kind: kind, Pos: l.pos(at), Selector: sel, Params: params, Ret: ret, Owner: owner})
}

func (l *loader) method(m map[string]*yaml.Node, kind ast.ProtoKind, owner ast.DefID) ast.MethodID {
	sel, at, ok := l.selector(m, kind)
	if !ok {
		return ast.NoMethodID
	}
	params := l.vars(m["params"], ast.VarParam, ast.NoDefID)
	var ret ast.TypeID
	if m["returns"] != nil {
		ret = l.typ(m["returns"])
	}
	locals := l.vars(m["locals"], ast.VarLocal, ast.NoDefID)
	return l.prog.NewMethod(ast.Method{Kind: kind, Pos: l.pos(at), Selector: sel, Params: params, Ret: ret, Locals: locals, Owner: owner})
}

func (l *loader) protoKind(n *yaml.Node) (ast.ProtoKind, bool) {
	n = resolve(n)
	if n == nil {
		return ast.ProtoNormal, true
	}
	switch n.Value {
	case "normal":
		return ast.ProtoNormal, true
	case "prefix":
		return ast.ProtoPrefix, true
	case "infix":
		return ast.ProtoInfix, true
	case "keyword":
		return ast.ProtoKeyword, true
	}
	l.errorf(n, "selector kind must be normal, prefix, infix or keyword, got %q", n.Value)
	return ast.ProtoInvalid, false
}
