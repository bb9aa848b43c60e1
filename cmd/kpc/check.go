package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"kpc/internal/diagfmt"
	"kpc/internal/driver"
	"kpc/internal/prof"
	"kpc/internal/report"
	"kpc/internal/session"
	"kpc/internal/trace"
	"kpc/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Check packages and report diagnostics",
	Long: `Check resolves and checks every package of the project, or of the
given files and directories, and prints the diagnostics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := compileCommand(cmd, args, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		dump, err := cmd.Flags().GetBool("dump")
		if err != nil {
			return fmt.Errorf("failed to get dump flag: %w", err)
		}
		if dump {
			dumpPackages(cmd.OutOrStdout(), run.res)
		}
		return run.status()
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout [paths...]",
	Short: "Print class layouts, globals and frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := compileCommand(cmd, args, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if run.res.Layout != nil {
			if err := report.Layout(cmd.OutOrStdout(), run.res.Prog, run.res.Order, run.reportOpts(cmd)); err != nil {
				return err
			}
		}
		return run.status()
	},
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch [paths...]",
	Short: "Print dispatch offsets of interfaces and classes",
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := compileCommand(cmd, args, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if run.err == nil {
			if err := report.Dispatch(cmd.OutOrStdout(), run.res.Prog, run.res.Order, run.reportOpts(cmd)); err != nil {
				return err
			}
		}
		return run.status()
	},
}

func init() {
	checkCmd.Flags().Bool("dump", false, "dump the checked packages")
	for _, c := range []*cobra.Command{layoutCmd, dispatchCmd} {
		c.Flags().Int("width", 0, "truncate names and types to this width (0 = no limit)")
	}
}

// compiled is a finished compilation whose diagnostics were printed.
type compiled struct {
	res   *driver.Result
	inv   *invocation
	err   error // ceiling or cancellation
	color bool
}

// status maps the outcome to an exit status.
func (c *compiled) status() error {
	if c.err != nil || c.res.Session.Errors() > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func (c *compiled) reportOpts(cmd *cobra.Command) report.Options {
	width, _ := cmd.Flags().GetInt("width")
	return report.Options{Color: c.color, Width: width}
}

// compileCommand resolves the invocation, runs the pipeline and prints
// diagnostics to diagOut, plus timings and a summary to stderr.
func compileCommand(cmd *cobra.Command, args []string, diagOut io.Writer) (*compiled, error) {
	ring, cleanup, err := setupTracing(cmd)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	dir, err := workingDir()
	if err != nil {
		return nil, err
	}
	inv, err := resolveInvocation(cmd.Flags(), dir, args)
	if err != nil {
		return nil, err
	}
	format, err := diagfmt.ParseFormat(inv.format)
	if err != nil {
		return nil, err
	}
	color, err := colorEnabled(inv.color, os.Stdout)
	if err != nil {
		return nil, err
	}

	profiler, err := startProfiling(cmd.Flags())
	if err != nil {
		return nil, err
	}
	res, err := compileWithProgress(cmd, inv)
	if perr := profiler.Stop(); perr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", perr)
	}
	var ie *session.InternalError
	switch {
	case errors.As(err, &ie):
		if ring != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "recent trace events:")
			_ = ring.Dump(cmd.ErrOrStderr(), trace.FormatText)
		}
		return nil, &exitError{code: 2, err: err}
	case err != nil && !errors.Is(err, session.ErrTooManyErrors):
		if res == nil || res.Session.Bag.Len() == 0 {
			return nil, err
		}
	}
	res.Prog.Files.SetBaseDir(inv.baseDir)

	run := &compiled{res: res, inv: inv, err: err, color: color}
	if err := printDiagnostics(cmd, diagOut, run, format); err != nil {
		return nil, err
	}
	return run, nil
}

// compileWithProgress runs the driver, drawing its phases on a terminal
// stderr when --progress is set.
func compileWithProgress(cmd *cobra.Command, inv *invocation) (*driver.Result, error) {
	show, err := cmd.Flags().GetBool("progress")
	if err != nil {
		return nil, fmt.Errorf("failed to get progress flag: %w", err)
	}
	if !show || !isTerminal(os.Stderr) {
		return driver.Compile(cmd.Context(), inv.inputs, inv.opts)
	}
	var res *driver.Result
	err = ui.RunWithProgress(cmd.ErrOrStderr(), "kpc "+cmd.Name(), func(obs driver.PhaseObserver) error {
		opts := inv.opts
		opts.Observer = obs
		var cerr error
		res, cerr = driver.Compile(cmd.Context(), inv.inputs, opts)
		return cerr
	})
	return res, err
}

func startProfiling(flags *pflag.FlagSet) (*prof.Profiler, error) {
	var opts prof.Options
	for name, dst := range map[string]*string{"cpu-profile": &opts.CPU, "mem-profile": &opts.Mem, "exec-trace": &opts.Trace} {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	return prof.Start(opts)
}

func printDiagnostics(cmd *cobra.Command, w io.Writer, run *compiled, format diagfmt.Format) error {
	res := run.res
	bag, files := res.Session.Bag, res.Prog.Files
	timings := res.Timings(run.inv.baseDir)

	switch format {
	case diagfmt.FormatJSON:
		out := diagfmt.BuildDiagnosticsOutput(bag, files, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
		})
		if timings != nil {
			out.Timings = timings
		}
		return diagfmt.JSON(w, out)
	case diagfmt.FormatShort:
		if err := diagfmt.Short(w, bag, files, true); err != nil {
			return err
		}
	default:
		width := 0
		if f, ok := w.(*os.File); ok && isTerminal(f) {
			if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
				width = cols - 8
			}
		}
		diagfmt.Pretty(w, bag, files, diagfmt.PrettyOpts{Color: run.color, ShowNotes: true, Width: width})
	}

	errOut := cmd.ErrOrStderr()
	if timings != nil {
		fmt.Fprint(errOut, res.Timer.Summary())
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if !quiet {
		fmt.Fprintln(errOut, summary(run))
	}
	return nil
}

func summary(run *compiled) string {
	sess := run.res.Session
	s := fmt.Sprintf("%d packages, %d errors, %d warnings", len(run.res.Order), sess.Errors(), sess.Warnings())
	if n := len(run.res.Imported); n > 0 {
		s += fmt.Sprintf(", %d from exports", n)
	}
	if run.err != nil {
		s += " (stopped: " + run.err.Error() + ")"
	}
	return s
}

// dumpPackages writes the checked packages with their declarations.
func dumpPackages(w io.Writer, res *driver.Result) {
	cfg := spew.ConfigState{Indent: "  ", MaxDepth: 3, DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
	for _, id := range res.Order {
		pkg := res.Prog.Package(id)
		fmt.Fprintf(w, "package %s\n", res.Prog.Name(pkg.Name))
		for _, d := range pkg.Abstracts() {
			fmt.Fprintf(w, "%s:\n", res.Prog.DefName(d))
			cfg.Fdump(w, res.Prog.Def(d))
		}
	}
}
