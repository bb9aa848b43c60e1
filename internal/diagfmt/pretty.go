package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"kpc/internal/diag"
	"kpc/internal/source"
)

type palette struct {
	err, warn, info, note, loc, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		loc:    color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.loc, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид, в порядке
// обнаружения:
//
//	<path>:<line>:<col>: ERROR RES1001: <message>
//	   3 |     - {name: A, super: Missing}
//	     |                        ^
//	  note: <path>:<line>:<col>: <message>
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.loc.Sprint(location(fs, d.Primary, opts.PathMode)),
			p.severity(d.Severity).Sprint(d.Severity.String()),
			d.Code.ID(),
			d.Message)
		excerpt(w, fs, d.Primary, opts, p)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), location(fs, n.Pos, opts.PathMode), n.Msg)
		}
	}
}

// excerpt prints the source line of pos with a caret under its column.
// Columns count characters; the caret is placed by display width so wide
// runes and tabs line up.
func excerpt(w io.Writer, fs *source.FileSet, pos source.Pos, opts PrettyOpts, p palette) {
	if fs == nil || !pos.IsValid() || pos.Line == 0 {
		return
	}
	line, ok := fs.Line(pos.File, pos.Line)
	if !ok {
		return
	}
	line = strings.ReplaceAll(line, "\t", "    ")
	if opts.Width > 0 {
		line = runewidth.Truncate(line, opts.Width, "…")
	}
	num := fmt.Sprintf("%d", pos.Line)
	pad := strings.Repeat(" ", len(num))
	fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), line)
	if pos.Col == 0 {
		return
	}
	prefix := []rune(line)
	if col := int(pos.Col) - 1; col < len(prefix) {
		prefix = prefix[:col]
	}
	indent := strings.Repeat(" ", runewidth.StringWidth(string(prefix)))
	fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), indent, p.caret.Sprint("^"))
}

func location(fs *source.FileSet, pos source.Pos, mode PathMode) string {
	if fs == nil {
		return pos.String()
	}
	loc := fs.Format(pos)
	f := fs.Get(pos.File)
	if f == nil {
		return loc
	}
	var path string
	switch mode {
	case PathModeAbsolute:
		path = f.Path
	case PathModeBasename:
		path = filepath.Base(f.Path)
	default:
		return loc
	}
	return path + strings.TrimPrefix(loc, fs.Path(pos.File))
}

// Short prints one line per diagnostic in the golden format.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, includeNotes bool) error {
	out := diag.FormatGoldenDiagnostics(bag.Items(), fs, includeNotes)
	if out == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, out)
	return err
}
