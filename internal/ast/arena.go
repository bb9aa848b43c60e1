package ast

import (
	"fmt"

	"fortio.org/safecast"
)

// Arena owns nodes of one kind. Index 0 is never allocated and serves as the
// "none" sentinel for every ID type.
type Arena[T any] struct {
	data []T
}

// NewArena creates an arena with room for capHint nodes.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{
		data: make([]T, 0, capHint),
	}
}

// Allocate stores value and returns its 1-based index.
func (a *Arena[T]) Allocate(value T) uint32 {
	a.data = append(a.data, value)
	n, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("arena overflow: %w", err))
	}
	return n
}

// Get returns the node at index, or nil for the sentinel.
func (a *Arena[T]) Get(index uint32) *T {
	if index == 0 || int(index) > len(a.data) {
		return nil
	}
	return &a.data[index-1]
}

// Set overwrites a node in place (folded expressions, refined aliases).
func (a *Arena[T]) Set(index uint32, value T) {
	if index == 0 || int(index) > len(a.data) {
		panic(fmt.Errorf("arena: set of invalid index %d", index))
	}
	a.data[index-1] = value
}

func (a *Arena[T]) Len() uint32 {
	return uint32(len(a.data)) //nolint:gosec // bounded by Allocate
}
