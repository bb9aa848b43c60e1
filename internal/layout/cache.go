package layout

import "kpc/internal/ast"

// cacheKey names a layout unit: a class definition or a type node.
type cacheKey struct {
	Def  ast.DefID
	Type ast.TypeID
}

type cacheEntry struct {
	Layout TypeLayout
	Err    *LayoutError
}

// cache remembers results within one pass. Sizes that are known are also
// frozen on the nodes themselves and survive passes; failures are forgotten
// so the next pass can retry them after folding.
type cache struct {
	byKey map[cacheKey]cacheEntry
}

func newCache() *cache {
	return &cache{byKey: make(map[cacheKey]cacheEntry, 256)}
}

func (c *cache) get(k cacheKey) (cacheEntry, bool) {
	e, ok := c.byKey[k]
	return e, ok
}

func (c *cache) put(k cacheKey, e cacheEntry) {
	c.byKey[k] = e
}

func (c *cache) reset() {
	clear(c.byKey)
}

type layoutState struct {
	stack []cacheKey
	index map[cacheKey]int
}

func newLayoutState() *layoutState {
	return &layoutState{index: make(map[cacheKey]int, 32)}
}

func (s *layoutState) push(k cacheKey) bool {
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.stack)
	s.stack = append(s.stack, k)
	return true
}

func (s *layoutState) pop() {
	k := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.index, k)
}
