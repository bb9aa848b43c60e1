// Package report renders the sizes, offsets and dispatch tables the
// semantic phase computed, one section per package.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/types"
)

// Options configure rendering.
type Options struct {
	Color bool
	// Width truncates names and types; 0 means no limit.
	Width int
	Types *types.Engine
}

type styles struct {
	title, kind, dim, num lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		kind:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		num:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

type printer struct {
	w    io.Writer
	prog *ast.Program
	opts Options
	st   styles
	err  error
}

func newPrinter(w io.Writer, prog *ast.Program, opts Options) *printer {
	if opts.Types == nil {
		opts.Types = types.New(prog, diag.NopReporter{}, false, 0)
	}
	return &printer{w: w, prog: prog, opts: opts, st: newStyles(opts.Color)}
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) truncate(s string) string {
	width := p.opts.Width
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// column pads s to width display cells.
func (p *printer) column(s string, width int) string {
	return runewidth.FillRight(p.truncate(s), width)
}

func (p *printer) header(id ast.PkgID, extra string) {
	pkg := p.prog.Package(id)
	title := "package " + p.prog.Name(pkg.Name)
	if pkg.Compiled && extra == "" {
		extra = "compiled"
	}
	if extra != "" {
		title += "  " + p.st.dim.Render(extra)
	}
	p.line("%s", p.st.title.Render(title))
}

func amount(v int32) string {
	if v < 0 {
		return "?"
	}
	return strconv.Itoa(int(v))
}

// Layout prints class sizes with their field offsets, then globals and
// function frames.
func Layout(w io.Writer, prog *ast.Program, pkgs []ast.PkgID, opts Options) error {
	p := newPrinter(w, prog, opts)
	for _, id := range pkgs {
		pkg := prog.Package(id)
		p.header(id, "data "+amount(pkg.DataSize)+" bytes")
		for _, d := range pkg.Classes {
			p.class(d)
		}
		for _, d := range pkg.Globals {
			def := prog.Def(d)
			v := prog.Var(def.Var)
			if v == nil {
				continue
			}
			p.line("  %s %s  %s", p.st.kind.Render("global"), prog.Name(def.Name), p.varRow(v))
		}
		for _, d := range pkg.Functions {
			def := prog.Def(d)
			frame := "no body"
			if m := prog.Method(def.Body); m != nil {
				frame = "frame " + amount(m.FrameSize)
			}
			p.line("  %s %s  %s", p.st.kind.Render("function"), prog.Name(def.Name), p.st.dim.Render(frame))
		}
	}
	return p.err
}

func (p *printer) class(d ast.DefID) {
	def := p.prog.Def(d)
	p.line("  %s %s  size %s", p.st.kind.Render("class"), p.prog.Name(def.Name), p.st.num.Render(amount(def.Size)))
	rows := make([]*ast.Var, 0, len(def.Fields))
	for _, f := range def.Fields {
		rows = append(rows, p.prog.Var(f))
	}
	nameWidth := 0
	for _, v := range rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(p.truncate(p.prog.Name(v.Name))))
	}
	for _, v := range rows {
		row := fmt.Sprintf("    %s %s  %s  %s",
			p.st.num.Render(fmt.Sprintf("+%-4s", amount(v.Offset))),
			p.st.num.Render(fmt.Sprintf("%4s", amount(v.Size))),
			p.column(p.prog.Name(v.Name), nameWidth),
			p.truncate(p.opts.Types.String(v.Type)))
		if v.Owner != d && v.Owner.IsValid() {
			row += "  " + p.st.dim.Render("from "+p.prog.DefName(v.Owner))
		}
		p.line("%s", strings.TrimRight(row, " "))
	}
}

func (p *printer) varRow(v *ast.Var) string {
	return fmt.Sprintf("+%s  %s bytes  %s", amount(v.Offset), amount(v.Size), p.truncate(p.opts.Types.String(v.Type)))
}

// Dispatch prints every interface and class with its selectors ordered by
// dispatch offset.
func Dispatch(w io.Writer, prog *ast.Program, pkgs []ast.PkgID, opts Options) error {
	p := newPrinter(w, prog, opts)
	for _, id := range pkgs {
		p.header(id, "")
		for _, d := range prog.Package(id).Abstracts() {
			def := prog.Def(d)
			p.line("  %s %s", p.st.kind.Render(def.Kind.String()), prog.Name(def.Name))
			protos := slices.Clone(def.Protos)
			slices.SortStableFunc(protos, func(a, b ast.ProtoID) int {
				return cmp.Compare(prog.Proto(a).Offset, prog.Proto(b).Offset)
			})
			for _, pr := range protos {
				proto := prog.Proto(pr)
				row := fmt.Sprintf("    %s  %s", p.st.num.Render(fmt.Sprintf("%4d", proto.Offset)), p.truncate(prog.Name(proto.Selector)))
				if proto.From.IsValid() {
					if from := prog.Proto(proto.From); from != nil && from.Owner.IsValid() {
						row += "  " + p.st.dim.Render("from "+prog.DefName(from.Owner))
					}
				}
				p.line("%s", row)
			}
		}
	}
	return p.err
}
