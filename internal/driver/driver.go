// Package driver runs the semantic-analysis pipeline over a set of package
// files: load, order, check, lay out, assign dispatch offsets and write
// exports. Diagnostics go to the session; the returned error is reserved
// for I/O, cancellation, the error ceiling and internal errors.
package driver

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/dispatch"
	"kpc/internal/export"
	"kpc/internal/layout"
	"kpc/internal/loader"
	"kpc/internal/observ"
	"kpc/internal/project"
	"kpc/internal/project/dag"
	"kpc/internal/sema"
	"kpc/internal/session"
	"kpc/internal/source"
	"kpc/internal/trace"
	"kpc/internal/types"
)

// Options configure one compilation.
type Options struct {
	Session session.Options
	// Main names the root package; empty compiles every package.
	Main string
	// ExportDir holds export files; empty disables reuse and writing.
	ExportDir string
	Jobs      int
	Tracer    trace.Tracer
	Timings   bool
	Observer  PhaseObserver
}

// Result is what a compilation produced, also on failure.
type Result struct {
	Prog    *ast.Program
	Session *session.Session
	// Order lists the compiled packages, dependencies first.
	Order []ast.PkgID
	// Imported lists packages whose offsets came from an export.
	Imported []ast.PkgID
	Digests  map[ast.PkgID]project.Digest
	Layout   *layout.Solver
	Rounds   int
	Timer    *observ.Timer
}

// Compile runs the pipeline over inputs. An internal error aborts the run
// and is returned as *session.InternalError.
func Compile(ctx context.Context, inputs []loader.Input, opts Options) (res *Result, err error) {
	if opts.Tracer == nil {
		opts.Tracer = trace.FromContext(ctx)
	}
	prog := ast.NewProgram(ast.Hints{Packages: uint(len(inputs))}, nil, nil)
	sess := session.New(prog.Files, opts.Session)
	sess.Tracer = opts.Tracer
	res = &Result{Prog: prog, Session: sess}
	if opts.Timings {
		res.Timer = observ.NewTimer()
	}

	root := trace.Begin(opts.Tracer, trace.ScopeDriver, "compile", 0)
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*session.InternalError)
			if !ok {
				panic(r)
			}
			trace.Point(opts.Tracer, trace.ScopeDriver, "internal_error", ie.Msg)
			err = ie
		}
		root.End(fmt.Sprintf("errors=%d", sess.Errors()))
	}()

	p := &pipeline{ctx: ctx, opts: opts, res: res, span: root.ID()}
	return res, p.run(inputs)
}

type pipeline struct {
	ctx  context.Context
	opts Options
	res  *Result
	span uint64
	eng  *types.Engine
}

// phase runs fn as a named step with its span, timer entry and observer
// events. fn returns the timing note.
func (p *pipeline) phase(name string, fn func(span uint64) string) {
	idx := -1
	if p.res.Timer != nil {
		idx = p.res.Timer.Begin(name)
	}
	p.notify(PhaseEvent{Name: name, Status: PhaseStart})
	span := trace.Begin(p.opts.Tracer, trace.ScopePass, name, p.span)
	note := fn(span.ID())
	elapsed := span.End(note)
	if idx >= 0 {
		p.res.Timer.End(idx, note)
	}
	p.notify(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: elapsed})
}

func (p *pipeline) notify(ev PhaseEvent) {
	if p.opts.Observer != nil {
		p.opts.Observer(ev)
	}
}

// checkpoint stops the pipeline once the session gave up or the context
// was canceled.
func (p *pipeline) checkpoint() error {
	if err := p.res.Session.Err(); err != nil {
		return err
	}
	return p.ctx.Err()
}

func (p *pipeline) run(inputs []loader.Input) error {
	res, sess := p.res, p.res.Session

	var (
		pkgs    []ast.PkgID
		loadErr error
	)
	p.phase("load", func(span uint64) string {
		pkgs, loadErr = loader.Load(p.ctx, res.Prog, inputs, loader.Options{
			Reporter: sess,
			Jobs:     p.opts.Jobs,
			Tracer:   p.opts.Tracer,
			Span:     span,
		})
		return fmt.Sprintf("packages=%d", len(pkgs))
	})
	if loadErr != nil {
		return loadErr
	}
	if err := p.checkpoint(); err != nil {
		return err
	}

	p.phase("order", func(uint64) string {
		var roots []ast.PkgID
		if p.opts.Main != "" {
			main, ok := p.lookup(p.opts.Main)
			if !ok {
				diag.ReportError(sess, diag.ResUndefinedPackage, source.NoPos, "main package %q is not declared", p.opts.Main).Emit()
				return "no main"
			}
			roots = []ast.PkgID{main}
		}
		res.Order = dag.OrderPackages(res.Prog, sess, roots)
		return fmt.Sprintf("packages=%d", len(res.Order))
	})
	if err := p.checkpoint(); err != nil {
		return err
	}

	p.eng = types.New(res.Prog, sess, p.opts.Session.Safe, p.opts.Session.RecursionLimit)
	p.phase("sema", func(span uint64) string {
		for _, id := range res.Order {
			if sess.Aborted() {
				break
			}
			sema.CheckPackage(res.Prog, id, sema.Options{
				Reporter: sess,
				Types:    p.eng,
				Tracer:   p.opts.Tracer,
				Aborted:  sess.Aborted,
				Span:     span,
			})
		}
		return fmt.Sprintf("errors=%d", sess.Errors())
	})
	if err := p.checkpoint(); err != nil {
		return err
	}

	p.phase("layout", func(span uint64) string {
		res.Layout = layout.New(res.Prog, layout.Options{
			Reporter: sess,
			Types:    p.eng,
			Tracer:   p.opts.Tracer,
			Span:     span,
		})
		res.Rounds = res.Layout.Solve(res.Order)
		res.Layout.CheckInstantiations(res.Order)
		return fmt.Sprintf("rounds=%d", res.Rounds)
	})
	if err := p.checkpoint(); err != nil {
		return err
	}

	res.Digests = project.PackageDigests(res.Prog, res.Order)
	p.phase("dispatch", func(span uint64) string {
		chain := dispatch.DefaultChain()
		for _, id := range res.Order {
			if p.reuse(id) {
				res.Imported = append(res.Imported, id)
				continue
			}
			dispatch.Assign(res.Prog, id, dispatch.Options{
				Reporter: sess,
				Chain:    chain,
				Tracer:   p.opts.Tracer,
				Span:     span,
			})
		}
		return fmt.Sprintf("imported=%d", len(res.Imported))
	})
	if err := p.checkpoint(); err != nil {
		return err
	}

	if p.opts.ExportDir == "" || sess.Bag.HasErrors() {
		return nil
	}
	p.phase("export", func(uint64) string {
		written := 0
		for _, id := range res.Order {
			if slices.Contains(res.Imported, id) {
				continue
			}
			pkg := res.Prog.Package(id)
			f := export.Build(res.Prog, id, res.Digests[id])
			if err := export.Write(p.opts.ExportDir, f); err != nil {
				diag.ReportError(sess, diag.PrjExportFailed, pkg.Pos, "cannot write export of %q: %v", f.Package, err).Emit()
				continue
			}
			written++
		}
		return fmt.Sprintf("written=%d", written)
	})
	return p.checkpoint()
}

// reuse installs the offsets of an up-to-date export of package id. An
// export built from other sources is ignored; an unreadable one is
// reported and the package is assigned afresh.
func (p *pipeline) reuse(id ast.PkgID) bool {
	if p.opts.ExportDir == "" {
		return false
	}
	prog, sess := p.res.Prog, p.res.Session
	pkg := prog.Package(id)
	name := prog.Name(pkg.Name)
	f, ok, err := export.Read(p.opts.ExportDir, name)
	switch {
	case err != nil:
		w := diag.ReportWarning(sess, diag.PrjStaleExport, pkg.Pos, "ignoring export of %q: %v", name, err)
		if errors.Is(err, export.ErrSchema) {
			w = w.WithNote(pkg.Pos, "it was written by another version of kpc")
		}
		w.Emit()
		return false
	case !ok || f.Digest != p.res.Digests[id]:
		return false
	}
	return export.Apply(prog, id, f, sess)
}

func (p *pipeline) lookup(name string) (ast.PkgID, bool) {
	prog := p.res.Prog
	for _, id := range prog.PackageIDs() {
		if prog.Name(prog.Package(id).Name) == name {
			return id, true
		}
	}
	return ast.NoPkgID, false
}
