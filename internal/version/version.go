// Package version holds build metadata for the kpc CLI. The variables can
// be overridden at build time via -ldflags.
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var parts = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Colored renders Version with major, minor and patch in their own colours.
// A pre-release suffix is left plain.
func Colored(enabled bool) string {
	core, suffix, _ := strings.Cut(Version, "-")
	fields := strings.SplitN(core, ".", 3)
	for i, f := range fields {
		c := *parts[i]
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		fields[i] = c.Sprint(f)
	}
	out := strings.Join(fields, ".")
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Info is the metadata shown by "kpc version".
type Info struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Current collects the build metadata, with "dev" for an empty version.
func Current() Info {
	v := strings.TrimSpace(Version)
	if v == "" {
		v = "dev"
	}
	return Info{
		Tool:      "kpc",
		Version:   v,
		GitCommit: strings.TrimSpace(GitCommit),
		BuildDate: strings.TrimSpace(BuildDate),
	}
}
