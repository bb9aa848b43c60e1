// Package sema binds names, resolves inheritance and checks variance for one
// package at a time. Packages must be checked dependencies first: imported
// scopes, fields and prototypes are read from already checked packages.
package sema

import (
	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/session"
	"kpc/internal/source"
	"kpc/internal/trace"
	"kpc/internal/types"
)

// SuperMarker is prepended to the selector of an overridden inherited
// prototype, repeatedly until the selector is unique in the class.
const SuperMarker = "_super_"

// Options configure a semantic pass over a package.
type Options struct {
	Reporter diag.Reporter
	Types    *types.Engine
	Tracer   trace.Tracer
	// Aborted is polled between phases and declarations; nil never aborts.
	Aborted func() bool
	// Parent span for the package's trace events.
	Span uint64
}

type checker struct {
	prog    *ast.Program
	pkgID   ast.PkgID
	pkg     *ast.Package
	rep     diag.Reporter
	eng     *types.Engine
	tracer  trace.Tracer
	aborted func() bool
	span    uint64

	// named types with arguments bound in this package, for checkGenericArgs
	instances []ast.TypeID
	marker    source.StringID
}

// CheckPackage runs every phase of inheritance and message resolution over
// one package.
func CheckPackage(prog *ast.Program, id ast.PkgID, opts Options) {
	c := newChecker(prog, id, opts)
	if c == nil {
		return
	}
	c.run()
}

func newChecker(prog *ast.Program, id ast.PkgID, opts Options) *checker {
	pkg := prog.Package(id)
	if pkg == nil {
		return nil
	}
	c := &checker{
		prog:    prog,
		pkgID:   id,
		pkg:     pkg,
		rep:     opts.Reporter,
		eng:     opts.Types,
		tracer:  opts.Tracer,
		aborted: opts.Aborted,
		span:    opts.Span,
		marker:  prog.Strings.Intern(SuperMarker),
	}
	if c.rep == nil {
		c.rep = diag.NopReporter{}
	}
	if c.eng == nil {
		c.eng = types.New(prog, c.rep, false, 0)
	}
	if c.tracer == nil {
		c.tracer = trace.Nop
	}
	if c.aborted == nil {
		c.aborted = func() bool { return false }
	}
	return c
}

func (c *checker) run() {
	phases := []struct {
		name string
		fn   func()
	}{
		{"scope", c.buildPackageScope},
		{"behaviors", c.bindBehaviors},
		{"order", c.orderAbstracts},
		{"resolve", c.resolveTypes},
		{"aliases", c.checkAliases},
		{"generics", c.checkGenericArgs},
		{"functions", c.checkFunctionBodies},
		{"inherit", c.inheritAll},
		{"implements", c.checkImplementsAll},
		{"operators", c.checkOperatorSpellings},
	}
	for _, ph := range phases {
		if c.aborted() {
			return
		}
		span := trace.Begin(c.tracer, trace.ScopePackage, ph.name, c.span)
		ph.fn()
		span.End("")
	}
}

func (c *checker) errorf(code diag.Code, pos source.Pos, format string, args ...any) *diag.ReportBuilder {
	return diag.ReportError(c.rep, code, pos, format, args...)
}

func (c *checker) name(id source.StringID) string { return c.prog.Name(id) }

func (c *checker) typeString(id ast.TypeID) string { return c.eng.String(id) }

// inheritAll resolves fields and prototypes of classes and messages of
// interfaces, ancestors first.
func (c *checker) inheritAll() {
	for _, id := range c.pkg.Order {
		if c.aborted() {
			return
		}
		span := trace.Begin(c.tracer, trace.ScopeDecl, c.prog.DefName(id), c.span)
		switch c.prog.Def(id).Kind {
		case ast.DefClass:
			c.inheritFields(id)
			c.inheritMethodProtos(id)
		case ast.DefInterface:
			c.inheritMessages(id)
			c.checkExtends(id)
		default:
			session.Internal("%s in abstract order", c.prog.DefName(id))
		}
		c.prog.Def(id).Resolved = true
		span.End("")
	}
}
