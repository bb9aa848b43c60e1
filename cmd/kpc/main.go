package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"kpc/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "kpc",
	Short: "Semantic checker for class-based packages",
	Long: `kpc resolves, type-checks and lays out a set of packages, assigns
dispatch offsets and keeps per-package exports for later runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// main registers commands and flags and executes the root command. Check
// failures exit with 1, internal errors with 2.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(versionCmd)

	registerFlags(rootCmd.PersistentFlags())

	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintln(os.Stderr, "kpc:", ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "kpc:", err)
		os.Exit(1)
	}
}

// registerFlags adds the global flags to flags.
func registerFlags(flags *pflag.FlagSet) {
	flags.String("color", "", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress the summary line")
	flags.Bool("timings", false, "show timing information")
	flags.Bool("progress", false, "show phase progress on a terminal")
	flags.Int("max-errors", 0, "stop after this many errors (0 = manifest or unlimited)")
	flags.String("format", "", "diagnostic format (pretty|short|json)")
	flags.Int("jobs", 0, "parallel decoders (0 = GOMAXPROCS)")
	flags.String("main", "", "root package; only packages it reaches are compiled")
	flags.String("export-dir", "", "directory for export files")
	flags.Bool("no-export", false, "neither read nor write export files")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "error", "trace level (off|error|phase|detail|debug); error keeps a ring for crash dumps")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 2048, "events kept for crash dumps")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file")
	flags.String("exec-trace", "", "write a runtime execution trace to this file")
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves an auto|on|off setting for f. NO_COLOR turns auto off.
func colorEnabled(mode string, f *os.File) (bool, error) {
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		return os.Getenv("NO_COLOR") == "" && isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid color mode %q (want auto, on or off)", mode)
}
