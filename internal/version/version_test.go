package version

import (
	"strings"
	"testing"
)

func TestColoredWithoutColor(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.0.0-beta.1", "7"} {
		Version = v
		if got := Colored(false); got != v {
			t.Errorf("Colored(false) = %q, want %q", got, v)
		}
	}
}

func TestColoredKeepsSuffixPlain(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3-rc.1"
	got := Colored(true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-rc.1") {
		t.Fatalf("Colored(true) = %q", got)
	}
}

func TestCurrent(t *testing.T) {
	origV, origC := Version, GitCommit
	defer func() { Version, GitCommit = origV, origC }()

	Version, GitCommit = "  ", " abc123 "
	info := Current()
	if info.Tool != "kpc" || info.Version != "dev" || info.GitCommit != "abc123" || info.BuildDate != "" {
		t.Fatalf("Current() = %+v", info)
	}
}
