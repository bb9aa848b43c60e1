// Package dispatch assigns dispatch-table offsets to selectors. A caller
// that only knows a static interface or superclass type must find a
// selector at the same offset whatever the dynamic class is, and offsets
// recorded by packages compiled earlier must never move.
package dispatch

import (
	"github.com/hashicorp/go-set/v3"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
	"kpc/internal/trace"
)

// Options configure Assign.
type Options struct {
	Reporter diag.Reporter
	Chain    *Chain
	Tracer   trace.Tracer
	Span     uint64
}

type assigner struct {
	prog  *ast.Program
	pkgID ast.PkgID
	rep   diag.Reporter
	chain *Chain

	nodes map[ast.DefID]*node
	order []*node

	reported *set.Set[conflictKey]
}

// conflictKey identifies a disagreement between two compiled abstracts,
// which every descendant would otherwise repeat.
type conflictKey struct {
	sel           source.StringID
	first, second ast.DefID
}

// Assign fixes offsets for every selector of the package's classes and
// interfaces and marks the package compiled. Abstracts of other packages
// are read, never written.
func Assign(prog *ast.Program, id ast.PkgID, opts Options) {
	pkg := prog.Package(id)
	if pkg == nil || pkg.Compiled {
		return
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Chain == nil {
		opts.Chain = DefaultChain()
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	span := trace.Begin(opts.Tracer, trace.ScopePackage, "dispatch "+prog.Name(pkg.Name), opts.Span)
	defer span.End("")

	a := &assigner{
		prog:     prog,
		pkgID:    id,
		rep:      opts.Reporter,
		chain:    opts.Chain,
		nodes:    make(map[ast.DefID]*node),
		reported: set.New[conflictKey](0),
	}
	a.universe()
	a.adoptForeign()
	a.assignRest()
	a.writeBack()
	prog.Package(id).Compiled = true
}

// adoptForeign copies offsets fixed in compiled ancestors.
func (a *assigner) adoptForeign() {
	for _, n := range a.order {
		for _, p := range n.protos {
			sel := a.prog.Proto(p).Selector
			for _, f := range n.foreign {
				o, _ := a.foreignOffset(f, sel)
				if o == nil {
					continue
				}
				if prev, ok := n.offsets[sel]; ok {
					if prev != o {
						a.conflict(n, sel, n.adopted[sel], prev, f, o)
					}
				} else {
					a.checkCollision(n, sel, f, o)
					n.offsets[sel] = o
					n.adopted[sel] = f
				}
				// callers through f still use o
				n.unavailable.Insert(o)
				for _, anc := range n.ancestors {
					anc.unavailable.Insert(o)
				}
			}
		}
	}
}

// checkCollision reports a second selector adopting a slot another
// selector of n already adopted from a different compiled abstract.
func (a *assigner) checkCollision(n *node, sel source.StringID, from ast.DefID, o *Offset) {
	for _, p := range n.protos {
		other := a.prog.Proto(p).Selector
		if held, ok := n.offsets[other]; !ok || held != o || other == sel {
			continue
		}
		diag.ReportError(a.rep, diag.LayCollision, n.pos,
			"%s: selectors %q and %q both inherit offset %d",
			a.prog.DefName(n.def), a.prog.Name(other), a.prog.Name(sel), o.Value).
			WithNote(a.prog.Def(n.adopted[other]).Pos, "%q is placed there by %s", a.prog.Name(other), a.prog.DefName(n.adopted[other])).
			WithNote(a.prog.Def(from).Pos, "%q is placed there by %s", a.prog.Name(sel), a.prog.DefName(from)).
			Emit()
		return
	}
}

func (a *assigner) conflict(n *node, sel source.StringID, first ast.DefID, firstOff *Offset, second ast.DefID, secondOff *Offset) {
	if !a.reported.Insert(conflictKey{sel, first, second}) {
		return
	}
	b := diag.ReportError(a.rep, diag.LayConflict, n.pos,
		"inheritance conflict in %s: selector %q has offset %d in %s and offset %d in %s",
		a.prog.DefName(n.def), a.prog.Name(sel), firstOff.Value, a.prog.DefName(first), secondOff.Value, a.prog.DefName(second))
	if d := a.prog.Def(first); d != nil {
		b.WithNote(d.Pos, "%s is compiled with %q at offset %d", a.prog.DefName(first), a.prog.Name(sel), firstOff.Value)
	}
	if d := a.prog.Def(second); d != nil {
		b.WithNote(d.Pos, "%s is compiled with %q at offset %d", a.prog.DefName(second), a.prog.Name(sel), secondOff.Value)
	}
	b.Emit()
}

// assignRest gives every selector still without an offset one slot shared
// by its related set.
func (a *assigner) assignRest() {
	for _, n := range a.order {
		for _, p := range n.protos {
			sel := a.prog.Proto(p).Selector
			if _, ok := n.offsets[sel]; ok {
				continue
			}
			related := a.related(n, sel)
			affected := a.affected(related)

			o, from := a.mandatory(related, sel)
			if o == nil {
				o = a.firstFree(related)
			}
			for _, m := range related {
				if held, ok := m.offsets[sel]; ok {
					if held != o {
						a.conflict(m, sel, m.adopted[sel], held, from, o)
					}
					continue
				}
				m.offsets[sel] = o
			}
			for _, m := range related {
				m.unavailable.Insert(o)
			}
			for _, m := range affected {
				m.unavailable.Insert(o)
			}
		}
	}
}

// related collects the abstracts connected to start through ancestor and
// descendant edges that all declare sel. An explicit stack keeps deep
// lattices off the goroutine stack.
func (a *assigner) related(start *node, sel source.StringID) []*node {
	seen := set.New[*node](8)
	seen.Insert(start)
	out := []*node{start}
	stack := []*node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range [2][]*node{n.supers, n.subs} {
			for _, m := range next {
				if !m.declares(sel) || !seen.Insert(m) {
					continue
				}
				out = append(out, m)
				stack = append(stack, m)
			}
		}
	}
	return out
}

// affected collects the ancestors of the related set, which reserve the
// slot without defining it.
func (a *assigner) affected(related []*node) []*node {
	seen := set.From(related)
	var out []*node
	for _, m := range related {
		for _, anc := range m.ancestors {
			if seen.Insert(anc) {
				out = append(out, anc)
			}
		}
	}
	return out
}

// mandatory is the offset a related abstract already adopted from a
// compiled ancestor, if any.
func (a *assigner) mandatory(related []*node, sel source.StringID) (*Offset, ast.DefID) {
	for _, m := range related {
		if o, ok := m.offsets[sel]; ok {
			return o, m.adopted[sel]
		}
	}
	return nil, ast.NoDefID
}

func (a *assigner) firstFree(related []*node) *Offset {
	for o := a.chain.First(); ; o = a.chain.Next(o) {
		free := true
		for _, m := range related {
			if m.unavailable.Contains(o) {
				free = false
				break
			}
		}
		if free {
			return o
		}
	}
}

func (a *assigner) writeBack() {
	for _, n := range a.order {
		for sel, p := range n.selectors {
			if o, ok := n.offsets[sel]; ok {
				a.prog.Proto(p).Offset = o.Value
			}
		}
	}
}
