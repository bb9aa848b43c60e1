// Package loader builds the program arenas from YAML package descriptions.
//
// A file describes one package:
//
//	package: Shapes
//	uses: [Core, {name: Util, rename: {max: umax}}]
//	header: {consts, errors, globals, types, functions, interfaces, classes}
//	code:   {same keys, plus behaviors}
//
// A file with a code section but no header adds that section to the
// package of the same name declared by another file. Every node keeps the
// line and column of its YAML node.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"kpc/internal/ast"
	"kpc/internal/diag"
	"kpc/internal/source"
	"kpc/internal/trace"
)

// Input is one package file. Content nil means read Path from disk.
type Input struct {
	Path    string
	Content []byte
}

// Options configure Load.
type Options struct {
	Reporter diag.Reporter
	// Jobs limits parallel decoding; 0 means GOMAXPROCS.
	Jobs   int
	Tracer trace.Tracer
	Span   uint64
}

type parsed struct {
	content []byte
	doc     *yaml.Node
	err     error
}

// Load decodes every input and builds its package. Files are read and
// parsed in parallel; the arenas are filled afterwards in input order, so
// IDs do not depend on scheduling. Problems with a file are reported as
// diagnostics; the returned error is only the cancellation of ctx.
func Load(ctx context.Context, prog *ast.Program, inputs []Input, opts Options) ([]ast.PkgID, error) {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	span := trace.Begin(opts.Tracer, trace.ScopePass, "load", opts.Span)
	defer span.End(strconv.Itoa(len(inputs)) + " files")

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]parsed, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(inputs))))
	for i, in := range inputs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = parse(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l := newLoader(prog, opts.Reporter)
	var codeOnly []*file
	for i, in := range inputs {
		flags := source.FileFlags(0)
		if in.Content != nil {
			flags |= source.FileVirtual
		}
		id := prog.Files.Add(in.Path, results[i].content, flags)
		if err := results[i].err; err != nil {
			l.loadError(id, err)
			continue
		}
		f := l.open(id, results[i].doc)
		if f == nil {
			continue
		}
		if f.header == nil && f.code != nil {
			codeOnly = append(codeOnly, f)
			continue
		}
		if f.code == nil {
			prog.Files.Get(id).Flags |= source.FileHeaderOnly
		}
		l.headerFile(f)
	}
	for _, f := range codeOnly {
		l.codeFile(f)
	}
	return l.pkgs, nil
}

// LoadSource builds the packages of in-memory inputs, in order.
func LoadSource(prog *ast.Program, r diag.Reporter, inputs ...Input) []ast.PkgID {
	for i := range inputs {
		if inputs[i].Content == nil {
			inputs[i].Content = []byte{}
		}
	}
	pkgs, _ := Load(context.Background(), prog, inputs, Options{Reporter: r, Jobs: 1})
	return pkgs
}

func parse(in Input) parsed {
	content := in.Content
	if content == nil {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return parsed{err: err}
		}
		content = data
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return parsed{content: content, err: err}
	}
	return parsed{content: content, doc: &doc}
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// loadError reports a file that could not be read or parsed, at the line
// the YAML decoder names when it names one.
func (l *loader) loadError(id source.FileID, err error) {
	pos := source.Pos{File: id}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.ParseUint(m[1], 10, 32); convErr == nil {
			pos.Line, pos.Col = uint32(n), 1
		}
	}
	msg := err.Error()
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		msg = fmt.Sprintf("cannot read %s: %v", pathErr.Path, pathErr.Err)
	}
	diag.ReportError(l.rep, diag.PrjLoadError, pos, "%s", msg).Emit()
}
