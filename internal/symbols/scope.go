package symbols

import (
	"kpc/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid    ScopeKind = iota
	ScopeUses                 // names imported through "uses", renamings applied
	ScopePackage              // package-level declarations, chained to ScopeUses
	ScopeErrors               // error declarations of one package
	ScopeFields               // fields of a class, inherited ones first
	ScopeSelectors            // selector -> prototype of a class or interface
	ScopeBodies               // selector -> method body of a class
	ScopeTypeParams           // type parameters of a generic definition
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeUses:
		return "uses"
	case ScopePackage:
		return "package"
	case ScopeErrors:
		return "errors"
	case ScopeFields:
		return "fields"
	case ScopeSelectors:
		return "selectors"
	case ScopeBodies:
		return "bodies"
	case ScopeTypeParams:
		return "type-params"
	default:
		return "invalid"
	}
}

// Entry is a single binding in a Scope.
type Entry[V any] struct {
	Name  source.StringID
	Value V
	Pos   source.Pos
}

// Scope is an insertion-ordered name table with chained lookup. Names are
// unique within one scope; shadowing across the parent chain is allowed and
// callers decide whether it is an error.
type Scope[V any] struct {
	Kind      ScopeKind
	Parent    *Scope[V]
	NameIndex map[source.StringID]int // name -> position in Entries
	Entries   []Entry[V]
}

// NewScope creates an empty scope chained to parent (nil for a root).
func NewScope[V any](kind ScopeKind, parent *Scope[V]) *Scope[V] {
	return &Scope[V]{
		Kind:      kind,
		Parent:    parent,
		NameIndex: make(map[source.StringID]int),
	}
}

// Insert adds name unless it is already bound in this scope. On conflict it
// returns the existing entry and false.
func (s *Scope[V]) Insert(name source.StringID, value V, pos source.Pos) (Entry[V], bool) {
	if idx, ok := s.NameIndex[name]; ok {
		return s.Entries[idx], false
	}
	s.NameIndex[name] = len(s.Entries)
	s.Entries = append(s.Entries, Entry[V]{Name: name, Value: value, Pos: pos})
	return Entry[V]{}, true
}

// Replace rebinds an existing name in place, keeping its position in the order.
func (s *Scope[V]) Replace(name source.StringID, value V) bool {
	idx, ok := s.NameIndex[name]
	if !ok {
		return false
	}
	s.Entries[idx].Value = value
	return true
}

// LookupLocal searches this scope only.
func (s *Scope[V]) LookupLocal(name source.StringID) (Entry[V], bool) {
	if s == nil {
		return Entry[V]{}, false
	}
	idx, ok := s.NameIndex[name]
	if !ok {
		return Entry[V]{}, false
	}
	return s.Entries[idx], true
}

// Lookup walks the parent chain.
func (s *Scope[V]) Lookup(name source.StringID) (Entry[V], bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if e, ok := cur.LookupLocal(name); ok {
			return e, true
		}
	}
	return Entry[V]{}, false
}

// Has reports whether name is bound locally.
func (s *Scope[V]) Has(name source.StringID) bool {
	_, ok := s.LookupLocal(name)
	return ok
}

// Len returns the number of local bindings.
func (s *Scope[V]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Values returns local values in insertion order.
func (s *Scope[V]) Values() []V {
	if s == nil {
		return nil
	}
	out := make([]V, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Value
	}
	return out
}
