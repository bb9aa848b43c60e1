// Package layout fixes sizes and offsets of every type, field, parameter,
// local and global. Array lengths may depend on sizeOf of other types and
// sizes depend on array lengths, so the solver alternates layout and
// constant folding until neither makes progress, then runs one more layout
// pass that reports whatever is still missing. A sizeOf that never folds is
// explained at the sizeOf itself.
package layout

import (
	"kpc/internal/ast"
	"kpc/internal/consteval"
	"kpc/internal/diag"
	"kpc/internal/trace"
	"kpc/internal/types"
)

// TypeLayout is the size and alignment of a value of some type.
type TypeLayout struct {
	Size  int32
	Align int32
}

// Solver owns the "changed" flag of the fixed-point loop. Nothing it writes
// is ever rewritten: sizes and offsets are frozen once known.
type Solver struct {
	Target Target

	prog   *ast.Program
	rep    diag.Reporter
	eng    *types.Engine
	folder *consteval.Folder
	tracer trace.Tracer
	span   uint64

	cache   *cache
	state   *layoutState
	changed bool
	report  bool

	reportedVars   map[ast.VarID]bool
	reportedArrays map[ast.TypeID]bool
	reportedCycles map[cacheKey]bool
	reportedSizeOf map[ast.TypeID]bool
	failedSizeOf   map[ast.ExprID]bool
}

// Options configure a solver.
type Options struct {
	Reporter diag.Reporter
	Types    *types.Engine
	Tracer   trace.Tracer
	Span     uint64
	Target   Target
}

// New creates a solver whose folder evaluates sizeOf through the solver.
func New(prog *ast.Program, opts Options) *Solver {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Types == nil {
		opts.Types = types.New(prog, opts.Reporter, false, 0)
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	if opts.Target.PtrSize == 0 {
		opts.Target = VM32()
	}
	s := &Solver{
		Target:         opts.Target,
		prog:           prog,
		rep:            opts.Reporter,
		eng:            opts.Types,
		tracer:         opts.Tracer,
		span:           opts.Span,
		cache:          newCache(),
		state:          newLayoutState(),
		reportedVars:   make(map[ast.VarID]bool),
		reportedArrays: make(map[ast.TypeID]bool),
		reportedCycles: make(map[cacheKey]bool),
		reportedSizeOf: make(map[ast.TypeID]bool),
		failedSizeOf:   make(map[ast.ExprID]bool),
	}
	s.folder = consteval.New(prog, opts.Reporter, s.SizeOf)
	return s
}

// Solve runs the fixed point over the given packages, then the reporting
// pass, and returns the number of rounds it took.
func (s *Solver) Solve(pkgs []ast.PkgID) int {
	rounds := 0
	for {
		rounds++
		span := trace.Begin(s.tracer, trace.ScopePass, "layout_round", s.span)
		s.changed = false
		s.assign(pkgs)
		if s.folder.Fold() {
			s.changed = true
		}
		span.End("")
		if !s.changed {
			break
		}
	}
	span := trace.Begin(s.tracer, trace.ScopePass, "layout_report", s.span)
	s.reportSizeOfs()
	s.report = true
	s.assign(pkgs)
	s.report = false
	span.End("")
	return rounds
}

// SizeOf is the value of sizeOf(t): the size of a value of t, except that
// an array yields the bytes of its elements without the count header.
func (s *Solver) SizeOf(t ast.TypeID) (int32, bool) {
	l, err := s.layoutOf(t)
	if err != nil {
		return 0, false
	}
	if a := s.prog.Type(s.eng.Resolve(t)); a != nil && a.Kind == ast.TypeArray {
		return a.Count * a.Stride, true
	}
	return l.Size, true
}

func (s *Solver) assign(pkgs []ast.PkgID) {
	s.cache.reset()
	for _, id := range pkgs {
		pkg := s.prog.Package(id)
		span := trace.Begin(s.tracer, trace.ScopePackage, s.prog.Name(pkg.Name), s.span)
		for _, d := range pkg.Errors {
			s.frame(s.prog.Def(d).Params, nil)
		}
		s.globals(id)
		for _, d := range pkg.Aliases {
			if t := s.prog.Def(d).Type; t.IsValid() {
				_, _ = s.layoutOf(t)
			}
		}
		for _, d := range pkg.Functions {
			def := s.prog.Def(d)
			s.proto(def.Proto)
			s.method(def.Body)
		}
		for _, d := range pkg.Abstracts() {
			def := *s.prog.Def(d)
			if def.Kind != ast.DefClass {
				// interface messages have no bodies and so no frames
				continue
			}
			s.classLayout(d)
			for _, m := range def.Methods {
				s.method(m)
			}
			for _, p := range def.Protos {
				s.proto(p)
			}
		}
		span.End("")
	}
}

func (s *Solver) freeze(dst *int32, v int32) {
	if *dst == ast.SizeUnknown {
		*dst = v
		s.changed = true
	}
}

// varLayout sizes one variable. In the reporting pass a failure is reported
// once and replaced by a word so the enclosing layout can still be fixed.
func (s *Solver) varLayout(id ast.VarID) (TypeLayout, bool) {
	v := s.prog.Var(id)
	if v.Size != ast.SizeUnknown {
		return TypeLayout{Size: v.Size, Align: s.alignOf(v.Type)}, true
	}
	l, err := s.layoutOf(v.Type)
	if err == nil {
		return l, true
	}
	if !s.report {
		return TypeLayout{}, false
	}
	s.reportVar(id, err)
	return TypeLayout{Size: s.Target.PtrSize, Align: s.Target.WordAlign}, true
}

func (s *Solver) reportVar(id ast.VarID, err *LayoutError) {
	v := s.prog.Var(id)
	switch {
	case err.atArray():
		if s.reportedArrays[err.Type] {
			return
		}
		s.reportedArrays[err.Type] = true
		code := diag.LayBadArrayLen
		if err.Kind == LayoutErrOverflow {
			code = diag.LayArrayOverflow
		}
		diag.ReportError(s.rep, code, s.prog.Type(err.Type).Pos, "%s", err.Error()).
			WithNote(v.Pos, "in the type of %s %q", v.Kind, s.prog.Name(v.Name)).
			Emit()
	case err.Kind == LayoutErrRecursive:
		k := cacheKey{Def: err.Def, Type: err.Type}
		if s.reportedCycles[k] {
			return
		}
		s.reportedCycles[k] = true
		diag.ReportError(s.rep, diag.LayUnsized, v.Pos, "size of %s %q cannot be determined: %s",
			v.Kind, s.prog.Name(v.Name), err.Error()).Emit()
	default:
		if s.reportedVars[id] {
			return
		}
		s.reportedVars[id] = true
		diag.ReportError(s.rep, diag.LayUnsized, v.Pos, "size of %s %q cannot be determined: %s",
			v.Kind, s.prog.Name(v.Name), err.Error()).Emit()
	}
}

// frame gives parameters, then locals, consecutive slots and returns the
// frame size, or false while some size is unknown.
func (s *Solver) frame(params, locals []ast.VarID) (int32, bool) {
	layouts := make([]TypeLayout, 0, len(params)+len(locals))
	all := append(append(make([]ast.VarID, 0, len(params)+len(locals)), params...), locals...)
	for _, id := range all {
		l, ok := s.varLayout(id)
		if !ok {
			return 0, false
		}
		layouts = append(layouts, l)
	}
	var off int32
	for i, id := range all {
		v := s.prog.Var(id)
		s.freeze(&v.Offset, off)
		s.freeze(&v.Size, layouts[i].Size)
		off += alignUp(layouts[i].Size, s.Target.Slot)
	}
	return off, true
}

func (s *Solver) proto(id ast.ProtoID) {
	if p := s.prog.Proto(id); p != nil {
		s.frame(p.Params, nil)
	}
}

func (s *Solver) method(id ast.MethodID) {
	m := s.prog.Method(id)
	if m == nil {
		return
	}
	params, locals := m.Params, m.Locals
	if size, ok := s.frame(params, locals); ok {
		s.freeze(&s.prog.Method(id).FrameSize, size)
	}
}

// globals places the package's globals in its data area.
func (s *Solver) globals(id ast.PkgID) {
	pkg := s.prog.Package(id)
	if pkg.DataSize != ast.SizeUnknown {
		return
	}
	vars := make([]ast.VarID, 0, len(pkg.Globals))
	for _, d := range pkg.Globals {
		vars = append(vars, s.prog.Def(d).Var)
	}
	layouts := make([]TypeLayout, len(vars))
	for i, v := range vars {
		l, ok := s.varLayout(v)
		if !ok {
			return
		}
		layouts[i] = l
	}
	var off int32
	for i, v := range vars {
		off = alignUp(off, layouts[i].Align)
		gv := s.prog.Var(v)
		s.freeze(&gv.Offset, off)
		s.freeze(&gv.Size, layouts[i].Size)
		off += layouts[i].Size
	}
	s.freeze(&s.prog.Package(id).DataSize, alignUp(off, s.Target.WordAlign))
}
