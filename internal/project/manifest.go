// Package project finds and decodes the kpc.toml manifest and expands its
// source list into input files.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file FindManifest looks for.
const ManifestName = "kpc.toml"

// ErrNoManifest is returned when no kpc.toml exists up to the filesystem root.
var ErrNoManifest = errors.New("no " + ManifestName + " found")

// Manifest is a decoded kpc.toml together with where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Project ProjectConfig `toml:"project"`
	Check   CheckConfig   `toml:"check"`
	Output  OutputConfig  `toml:"output"`
}

type ProjectConfig struct {
	// Main names the root package; empty means every package is a root.
	Main string `toml:"main"`
	// Sources are files, directories or glob patterns relative to Root.
	Sources []string `toml:"sources"`
}

type CheckConfig struct {
	MaxErrors      int  `toml:"max_errors"`
	Safe           bool `toml:"safe"`
	RecursionLimit int  `toml:"recursion_limit"`
}

type OutputConfig struct {
	Format    string `toml:"format"`     // pretty|short|json
	ExportDir string `toml:"export_dir"` // relative to Root
	Color     string `toml:"color"`      // auto|on|off
}

// Defaults returns the configuration used without a manifest.
func Defaults() Config {
	return Config{
		Project: ProjectConfig{Sources: []string{"."}},
		Check:   CheckConfig{RecursionLimit: 100},
		Output:  OutputConfig{Format: "pretty", ExportDir: ".kpc", Color: "auto"},
	}
}

// FindManifest walks up from startDir to locate kpc.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest finds and decodes the manifest governing startDir.
func LoadManifest(startDir string) (*Manifest, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoManifest
	}
	return DecodeManifest(path)
}

// DecodeManifest decodes path. Keys left out keep their Defaults values.
func DecodeManifest(path string) (*Manifest, error) {
	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: missing [project]", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	cfg.Project.Main = strings.TrimSpace(cfg.Project.Main)
	if meta.IsDefined("project", "sources") && len(cfg.Project.Sources) == 0 {
		return nil, fmt.Errorf("%s: [project].sources is empty", path)
	}
	if cfg.Check.MaxErrors < 0 {
		return nil, fmt.Errorf("%s: [check].max_errors must not be negative", path)
	}
	if meta.IsDefined("check", "recursion_limit") && cfg.Check.RecursionLimit <= 0 {
		return nil, fmt.Errorf("%s: [check].recursion_limit must be positive", path)
	}
	switch cfg.Output.Format {
	case "pretty", "short", "json":
	default:
		return nil, fmt.Errorf("%s: [output].format must be pretty, short or json, got %q", path, cfg.Output.Format)
	}
	switch cfg.Output.Color {
	case "auto", "on", "off":
	default:
		return nil, fmt.Errorf("%s: [output].color must be auto, on or off, got %q", path, cfg.Output.Color)
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// ExportDir returns the absolute export directory.
func (m *Manifest) ExportDir() string {
	dir := filepath.FromSlash(m.Config.Output.ExportDir)
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, dir)
}

// SourceFiles expands the source list into sorted, unique file paths.
func (m *Manifest) SourceFiles() ([]string, error) {
	return ExpandSources(m.Root, m.Config.Project.Sources)
}

// ExpandSources resolves entries against root. A directory contributes every
// .yaml/.yml file below it; an entry with glob metacharacters is matched with
// filepath.Glob; anything else must be an existing file.
func ExpandSources(root string, entries []string) ([]string, error) {
	var out []string
	for _, entry := range entries {
		p := filepath.FromSlash(entry)
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if strings.ContainsAny(entry, "*?[") {
			matches, err := filepath.Glob(p)
			if err != nil {
				return nil, fmt.Errorf("bad source pattern %q: %w", entry, err)
			}
			out = append(out, matches...)
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", entry, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsSourceFile(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", entry, err)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// IsSourceFile reports whether path has a YAML extension.
func IsSourceFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
