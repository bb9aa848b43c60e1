package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"kpc/internal/driver"
	"kpc/internal/loader"
	"kpc/internal/project"
)

// invocation is a resolved command line: what to compile and how.
type invocation struct {
	inputs  []loader.Input
	opts    driver.Options
	baseDir string
	format  string
	color   string
}

// resolveInvocation combines the manifest governing dir with the flags.
// Explicit path arguments replace the manifest's sources; exports are then
// kept only when --export-dir is given.
func resolveInvocation(flags *pflag.FlagSet, dir string, args []string) (*invocation, error) {
	m, err := project.LoadManifest(dir)
	switch {
	case errors.Is(err, project.ErrNoManifest):
		m = &project.Manifest{Root: dir, Config: project.Defaults()}
	case err != nil:
		return nil, err
	}

	inv := &invocation{
		opts:    driver.ProjectOptions(m),
		baseDir: m.Root,
		format:  m.Config.Output.Format,
		color:   m.Config.Output.Color,
	}
	if m.Path == "" || len(args) > 0 {
		inv.opts.ExportDir = ""
	}

	var files []string
	if len(args) > 0 {
		files, err = project.ExpandSources(dir, args)
		inv.baseDir = dir
	} else {
		files, err = m.SourceFiles()
	}
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no source files found")
	}
	inv.inputs = driver.PathInputs(files)

	if err := applyFlags(flags, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// applyFlags overrides manifest values with flags the user set.
func applyFlags(flags *pflag.FlagSet, inv *invocation) error {
	var err error
	get := func(name string, fn func() error) {
		if err == nil && flags.Changed(name) {
			if e := fn(); e != nil {
				err = fmt.Errorf("failed to get %s flag: %w", name, e)
			}
		}
	}
	get("main", func() (e error) { inv.opts.Main, e = flags.GetString("main"); return })
	get("export-dir", func() (e error) { inv.opts.ExportDir, e = flags.GetString("export-dir"); return })
	get("max-errors", func() (e error) { inv.opts.Session.MaxErrors, e = flags.GetInt("max-errors"); return })
	get("jobs", func() (e error) { inv.opts.Jobs, e = flags.GetInt("jobs"); return })
	get("format", func() (e error) { inv.format, e = flags.GetString("format"); return })
	get("color", func() (e error) { inv.color, e = flags.GetString("color"); return })
	get("timings", func() (e error) { inv.opts.Timings, e = flags.GetBool("timings"); return })
	get("no-export", func() error {
		off, e := flags.GetBool("no-export")
		if off {
			inv.opts.ExportDir = ""
		}
		return e
	})
	if err != nil {
		return err
	}
	if inv.opts.Session.MaxErrors < 0 {
		return fmt.Errorf("--max-errors must not be negative")
	}
	return nil
}

func workingDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}
