package driver

import (
	"context"

	"kpc/internal/loader"
	"kpc/internal/project"
)

// ProjectOptions derives compile options from a manifest. Callers
// override fields afterwards for command-line flags.
func ProjectOptions(m *project.Manifest) Options {
	cfg := m.Config
	opts := Options{Main: cfg.Project.Main, ExportDir: m.ExportDir()}
	opts.Session.MaxErrors = cfg.Check.MaxErrors
	opts.Session.Safe = cfg.Check.Safe
	opts.Session.RecursionLimit = cfg.Check.RecursionLimit
	return opts
}

// ProjectInputs lists the source files of a manifest as loader inputs.
func ProjectInputs(m *project.Manifest) ([]loader.Input, error) {
	files, err := m.SourceFiles()
	if err != nil {
		return nil, err
	}
	return PathInputs(files), nil
}

// PathInputs turns file paths into inputs read from disk.
func PathInputs(paths []string) []loader.Input {
	inputs := make([]loader.Input, len(paths))
	for i, p := range paths {
		inputs[i] = loader.Input{Path: p}
	}
	return inputs
}

// CompileProject compiles every source file of m with the manifest's
// settings.
func CompileProject(ctx context.Context, m *project.Manifest) (*Result, error) {
	inputs, err := ProjectInputs(m)
	if err != nil {
		return nil, err
	}
	return Compile(ctx, inputs, ProjectOptions(m))
}
