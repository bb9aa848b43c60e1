package source

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet manages the files an AST was loaded from and formats positions.
type FileSet struct {
	files   []File
	index   map[string]FileID // path -> id
	baseDir string            // базовая директория для относительных путей
}

// NewFileSet creates a FileSet; FileID 0 is reserved for NoFileID.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 1, 8),
		index: make(map[string]FileID),
	}
}

// SetBaseDir sets the directory used to shorten paths in diagnostics.
func (fs *FileSet) SetBaseDir(dir string) {
	fs.baseDir = dir
}

// BaseDir returns the configured base directory or the working directory.
func (fs *FileSet) BaseDir() string {
	if fs.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return fs.baseDir
}

// Add registers a file and its content hash. Re-adding a path returns a new
// FileID and makes it the latest version of that path.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(n)
	normalized := normalizePath(path)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    normalized,
		Content: content,
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fs.index[normalized] = id
	return id
}

// AddVirtual registers an in-memory file (tests, generated input).
func (fs *FileSet) AddVirtual(name string) FileID {
	return fs.Add(name, nil, FileVirtual)
}

// Get returns file metadata or nil for an unknown id.
func (fs *FileSet) Get(id FileID) *File {
	if id == NoFileID || int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Lookup returns the latest FileID for a path.
func (fs *FileSet) Lookup(path string) (FileID, bool) {
	id, ok := fs.index[normalizePath(path)]
	return id, ok
}

// Len reports the number of registered files.
func (fs *FileSet) Len() int {
	return len(fs.files) - 1
}

// Path renders the file path relative to the base directory when possible.
func (fs *FileSet) Path(id FileID) string {
	f := fs.Get(id)
	if f == nil {
		return "<unknown>"
	}
	if f.Flags&FileVirtual != 0 || !filepath.IsAbs(f.Path) {
		return f.Path
	}
	if rel, err := filepath.Rel(fs.BaseDir(), f.Path); err == nil {
		return filepath.ToSlash(rel)
	}
	return f.Path
}

// Format renders a position as path:line:col (line and column omitted when unknown).
func (fs *FileSet) Format(p Pos) string {
	if !p.IsValid() {
		return "<unknown>"
	}
	path := fs.Path(p.File)
	switch {
	case p.Line == 0:
		return path
	case p.Col == 0:
		return fmt.Sprintf("%s:%d", path, p.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", path, p.Line, p.Col)
	}
}

// Line returns the text of a 1-based line without its terminator.
func (fs *FileSet) Line(id FileID, line uint32) (string, bool) {
	f := fs.Get(id)
	if f == nil || line == 0 {
		return "", false
	}
	rest := f.Content
	for n := uint32(1); n < line; n++ {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			return "", false
		}
		rest = rest[i+1:]
	}
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return string(bytes.TrimSuffix(rest, []byte("\r"))), true
}

func normalizePath(p string) string {
	// единый вид в кроссплатформенных дифах
	return filepath.ToSlash(filepath.Clean(p))
}
