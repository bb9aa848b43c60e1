// Package session holds the per-compilation state every phase shares: the
// error counter with its ceiling, checking options, and the tracer.
package session

import (
	"errors"
	"fmt"

	"kpc/internal/diag"
	"kpc/internal/source"
	"kpc/internal/trace"
)

// ErrTooManyErrors is returned by the driver once the error ceiling is reached.
var ErrTooManyErrors = errors.New("too many errors")

// Options configure checking.
type Options struct {
	// MaxErrors aborts the compilation after this many errors; 0 means no limit.
	MaxErrors int
	// Safe disables the pointer-to-void relaxation of subtyping.
	Safe bool
	// RecursionLimit bounds nested type comparisons (default 100).
	RecursionLimit int
}

const DefaultRecursionLimit = 100

// Session counts diagnostics on their way into a Bag and stops accepting
// them once the ceiling is hit.
type Session struct {
	Opts   Options
	Files  *source.FileSet
	Bag    *diag.Bag
	Tracer trace.Tracer

	errors   int
	warnings int
	aborted  bool
}

// New creates a session writing into a fresh Bag.
func New(files *source.FileSet, opts Options) *Session {
	if opts.RecursionLimit <= 0 {
		opts.RecursionLimit = DefaultRecursionLimit
	}
	return &Session{
		Opts:   opts,
		Files:  files,
		Bag:    diag.NewBag(0),
		Tracer: trace.Nop,
	}
}

// Report implements diag.Reporter.
func (s *Session) Report(code diag.Code, sev diag.Severity, primary source.Pos, msg string, notes []diag.Note) {
	if s.aborted {
		return
	}
	s.Bag.Add(&diag.Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes})
	switch sev {
	case diag.SevError:
		s.errors++
		if s.Opts.MaxErrors > 0 && s.errors >= s.Opts.MaxErrors {
			s.aborted = true
			trace.Point(s.Tracer, trace.ScopeDriver, "abort", fmt.Sprintf("%d errors", s.errors))
		}
	case diag.SevWarning:
		s.warnings++
	}
}

// Errors returns the number of errors reported so far.
func (s *Session) Errors() int { return s.errors }

// Warnings returns the number of warnings reported so far.
func (s *Session) Warnings() int { return s.warnings }

// Aborted reports whether the error ceiling was reached. Phases check it
// between packages and declarations and return early.
func (s *Session) Aborted() bool { return s.aborted }

// Err returns ErrTooManyErrors once aborted.
func (s *Session) Err() error {
	if s.aborted {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyErrors, s.errors)
	}
	return nil
}

// InternalError is an inconsistency that a well-formed AST cannot produce.
// It is raised with panic and recovered only by the driver.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}

// Internal panics with an *InternalError.
func Internal(format string, args ...any) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}
