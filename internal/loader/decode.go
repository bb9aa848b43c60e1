package loader

import (
	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
)

type loader struct {
	prog *ast.Program
	rep  diag.Reporter
	pkgs []ast.PkgID
	// header packages by name, first declaration wins
	byName map[source.StringID]ast.PkgID

	file source.FileID
}

// file is the top level of one decoded document.
type file struct {
	id     source.FileID
	name   source.StringID
	pos    source.Pos
	uses   *yaml.Node
	header *yaml.Node
	code   *yaml.Node
}

func newLoader(prog *ast.Program, rep diag.Reporter) *loader {
	return &loader{prog: prog, rep: rep, byName: make(map[source.StringID]ast.PkgID)}
}

func (l *loader) errorf(n *yaml.Node, format string, args ...any) {
	diag.ReportError(l.rep, diag.PrjLoadError, l.pos(n), format, args...).Emit()
}

func (l *loader) pos(n *yaml.Node) source.Pos {
	if n == nil {
		return source.Pos{File: l.file}
	}
	line, _ := safecast.Conv[uint32](n.Line)
	col, _ := safecast.Conv[uint32](n.Column)
	return source.Pos{File: l.file, Line: line, Col: col}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// mapping returns the values of a mapping node by key. Keys outside
// allowed are reported and dropped, as are repeated keys.
func (l *loader) mapping(n *yaml.Node, what string, allowed ...string) (map[string]*yaml.Node, bool) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		l.errorf(n, "%s must be a mapping", what)
		return nil, false
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		known := false
		for _, a := range allowed {
			if a == k.Value {
				known = true
				break
			}
		}
		switch {
		case !known:
			l.errorf(k, "unknown key %q in %s", k.Value, what)
		case out[k.Value] != nil:
			l.errorf(k, "key %q repeated in %s", k.Value, what)
		default:
			out[k.Value] = v
		}
	}
	return out, true
}

// sequence returns the items of a sequence node; an absent node is empty.
func (l *loader) sequence(n *yaml.Node, what string) []*yaml.Node {
	n = resolve(n)
	if n == nil || n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		l.errorf(n, "%s must be a list", what)
		return nil
	}
	return n.Content
}

// ident interns an identifier in NFC, so differently composed spellings
// of one name bind to each other.
func (l *loader) ident(n *yaml.Node, what string) (source.StringID, bool) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.Value == "" || n.Tag == "!!null" {
		l.errorf(n, "%s must be a non-empty name", what)
		return source.NoStringID, false
	}
	return l.prog.Strings.Intern(norm.NFC.String(n.Value)), true
}

func (l *loader) open(id source.FileID, doc *yaml.Node) *file {
	l.file = id
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		l.errorf(nil, "empty package file")
		return nil
	}
	top, ok := l.mapping(doc.Content[0], "package file", "package", "uses", "header", "code")
	if !ok {
		return nil
	}
	f := &file{id: id, uses: top["uses"], header: top["header"], code: top["code"]}
	if top["package"] == nil {
		l.errorf(doc.Content[0], "package file has no package name")
		return nil
	}
	name, ok := l.ident(top["package"], "package name")
	if !ok {
		return nil
	}
	f.name, f.pos = name, l.pos(top["package"])
	return f
}

func (l *loader) headerFile(f *file) {
	l.file = f.id
	id := l.prog.NewPackage(f.name, f.pos, f.id)
	l.pkgs = append(l.pkgs, id)
	if _, dup := l.byName[f.name]; !dup {
		l.byName[f.name] = id
	}
	l.uses(id, f.uses)
	if f.header != nil {
		l.section(id, f.header, true)
	}
	if f.code != nil {
		pkg := l.prog.Package(id)
		pkg.HasCode = true
		l.section(id, f.code, false)
	}
}

func (l *loader) codeFile(f *file) {
	l.file = f.id
	id, ok := l.byName[f.name]
	if !ok {
		diag.ReportError(l.rep, diag.PrjLoadError, f.pos, "code section for undeclared package %q", l.prog.Name(f.name)).Emit()
		return
	}
	pkg := l.prog.Package(id)
	if pkg.HasCode {
		at := pkg.Pos
		if pkg.CodeFile != source.NoFileID {
			at = source.Pos{File: pkg.CodeFile, Line: 1, Col: 1}
		}
		diag.ReportError(l.rep, diag.PrjLoadError, f.pos, "package %q already has a code section", l.prog.Name(f.name)).
			WithNote(at, "code section of %q", l.prog.Name(f.name)).
			Emit()
		return
	}
	pkg.HasCode = true
	pkg.CodeFile = f.id
	if hf := l.prog.Files.Get(pkg.File); hf != nil {
		hf.Flags &^= source.FileHeaderOnly
	}
	l.uses(id, f.uses)
	l.section(id, f.code, false)
}

func (l *loader) uses(id ast.PkgID, n *yaml.Node) {
	for _, item := range l.sequence(n, "uses") {
		item = resolve(item)
		var u ast.Use
		if item.Kind == yaml.ScalarNode {
			name, ok := l.ident(item, "used package")
			if !ok {
				continue
			}
			u = ast.Use{Name: name, Pos: l.pos(item)}
		} else {
			m, ok := l.mapping(item, "use", "name", "rename")
			if !ok {
				continue
			}
			name, ok := l.ident(m["name"], "used package")
			if !ok {
				continue
			}
			u = ast.Use{Name: name, Pos: l.pos(m["name"])}
			if r := resolve(m["rename"]); r != nil {
				if r.Kind != yaml.MappingNode {
					l.errorf(r, "rename must map exported names to new names")
				} else {
					for i := 0; i+1 < len(r.Content); i += 2 {
						from, ok1 := l.ident(r.Content[i], "renamed name")
						to, ok2 := l.ident(r.Content[i+1], "new name")
						if ok1 && ok2 {
							u.Renamings = append(u.Renamings, ast.Renaming{From: from, To: to, Pos: l.pos(r.Content[i+1])})
						}
					}
				}
			}
		}
		pkg := l.prog.Package(id)
		pkg.Uses = append(pkg.Uses, u)
	}
}
