package layout

import (
	"fmt"

	"kpc/internal/ast"
)

// LayoutErrorKind enumerates why a type has no size (yet).
type LayoutErrorKind uint8

const (
	// LayoutErrUnsized: the type never has a size by value.
	LayoutErrUnsized LayoutErrorKind = iota + 1
	// LayoutErrPending: an array length has not folded yet.
	LayoutErrPending
	// LayoutErrBadLength: the length folded to something other than a positive int.
	LayoutErrBadLength
	// LayoutErrOverflow: the array does not fit in 32 bits.
	LayoutErrOverflow
	// LayoutErrRecursive: the type contains itself by value.
	LayoutErrRecursive
)

// LayoutError explains a missing size. Type is the innermost type at fault.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  ast.TypeID
	Def   ast.DefID // class closing a recursive cycle
	Value int32     // LayoutErrBadLength
	What  string
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrUnsized:
		return fmt.Sprintf("%s has no size", e.What)
	case LayoutErrPending:
		return "array length is not a compile-time constant"
	case LayoutErrBadLength:
		if e.What != "" {
			return fmt.Sprintf("array length must be an integer, got %s", e.What)
		}
		return fmt.Sprintf("array length must be positive, got %d", e.Value)
	case LayoutErrOverflow:
		return "array is too large"
	case LayoutErrRecursive:
		return fmt.Sprintf("%s contains itself by value", e.What)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}

// atArray reports errors that belong to an array node rather than to the
// variable whose type mentions it.
func (e *LayoutError) atArray() bool {
	switch e.Kind {
	case LayoutErrPending, LayoutErrBadLength, LayoutErrOverflow:
		return true
	}
	return false
}
