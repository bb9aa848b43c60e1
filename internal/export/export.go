// Package export stores what later compilations need to treat a package as
// separately compiled: its digest, the sizes of its classes and the
// dispatch offsets of every selector.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"kpc/internal/ast"
	"kpc/internal/project"
)

// Current schema version - increment when File changes.
const schemaVersion uint16 = 1

// Ext is the extension of export files.
const Ext = ".kpx"

// ErrSchema is returned for files written by another schema version.
var ErrSchema = errors.New("export schema mismatch")

// File is the serialized interface of one compiled package.
type File struct {
	Schema    uint16
	Package   string
	Digest    project.Digest
	DataSize  int32
	Abstracts []Abstract
}

// Abstract records one class or interface.
type Abstract struct {
	Name      string
	Kind      uint8 // ast.DefKind
	Size      int32
	Selectors []Selector
}

// Selector is a selector and its dispatch-table offset.
type Selector struct {
	Name   string
	Offset int32
}

// Build captures a package after layout and dispatch assignment.
func Build(prog *ast.Program, id ast.PkgID, digest project.Digest) *File {
	pkg := prog.Package(id)
	f := &File{
		Schema:   schemaVersion,
		Package:  prog.Name(pkg.Name),
		Digest:   digest,
		DataSize: pkg.DataSize,
	}
	for _, d := range pkg.Abstracts() {
		def := prog.Def(d)
		a := Abstract{Name: prog.Name(def.Name), Kind: uint8(def.Kind), Size: def.Size}
		for _, p := range def.Protos {
			pr := prog.Proto(p)
			a.Selectors = append(a.Selectors, Selector{Name: prog.Name(pr.Selector), Offset: pr.Offset})
		}
		f.Abstracts = append(f.Abstracts, a)
	}
	return f
}

// Path is where the export of pkg lives under dir.
func Path(dir, pkg string) string {
	return filepath.Join(dir, pkg+Ext)
}

// Write stores f under dir, replacing any previous export atomically.
func Write(dir string, f *File) (err error) {
	p := Path(dir, f.Package)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = msgpack.NewEncoder(tmp).Encode(f); err != nil {
		return fmt.Errorf("encode export %s: %w", f.Package, err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	// атомарная замена
	return os.Rename(tmp.Name(), p)
}

// Read loads the export of pkg from dir. A missing file is not an error:
// ok is false.
func Read(dir, pkg string) (f *File, ok bool, err error) {
	r, err := os.Open(Path(dir, pkg))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer r.Close()

	f = new(File)
	if err := msgpack.NewDecoder(r).Decode(f); err != nil {
		return nil, false, fmt.Errorf("decode export %s: %w", pkg, err)
	}
	if f.Schema != schemaVersion {
		return nil, false, fmt.Errorf("%w: %s has schema %d, want %d", ErrSchema, pkg, f.Schema, schemaVersion)
	}
	return f, true, nil
}
