package source

import "fmt"

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

// NoFileID marks a position that is not attached to any file.
const NoFileID FileID = 0

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	// FileHeaderOnly marks a package description without a code section.
	FileHeaderOnly
)

// File captures metadata for a single AST description file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Hash    [32]byte
	Flags   FileFlags
}

// Pos is the source position carried by every AST node. Diagnostics use it verbatim.
type Pos struct {
	File FileID
	Line uint32 // 1-based, 0 = unknown
	Col  uint32 // 1-based, 0 = unknown
}

// NoPos is the zero position.
var NoPos = Pos{}

// IsValid reports whether the position refers to a registered file.
func (p Pos) IsValid() bool {
	return p.File != NoFileID
}

// Before orders positions inside one file; positions of different files compare by FileID.
func (p Pos) Before(other Pos) bool {
	if p.File != other.File {
		return p.File < other.File
	}
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Col < other.Col
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d:%d", p.File, p.Line, p.Col)
}
