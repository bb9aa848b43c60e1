package diag

import (
	"fmt"
	"strings"

	"kpc/internal/source"
)

// FormatGoldenDiagnostics renders diagnostics one per line in detection order:
//
//	error RES1001 pkgs/Main.yaml:3:5 undefined name "Foo"
//
// Notes follow their diagnostic as "note" lines when includeNotes is set.
func FormatGoldenDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	var b strings.Builder
	for _, d := range diags {
		writeGoldenLine(&b, d.Severity.Label(), d.Code, fs.Format(d.Primary), d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			writeGoldenLine(&b, "note", d.Code, fs.Format(n.Pos), n.Msg)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeGoldenLine(b *strings.Builder, sev string, code Code, loc, msg string) {
	fmt.Fprintf(b, "%s %s %s %s\n", sev, code.ID(), loc, sanitizeMessage(msg))
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
