package dispatch

// Offset is one slot of the dispatch table. Slots are shared nodes of a
// singly linked chain: two selectors share a slot exactly when they hold
// the same *Offset.
type Offset struct {
	Value int32
	next  *Offset
}

// Chain hands out offsets in increasing order. Nodes are appended on demand
// and never freed, so one chain serves every package of a compilation.
type Chain struct {
	stride int32
	first  *Offset
}

// NewChain starts a chain at base with the given stride.
func NewChain(base, stride int32) *Chain {
	o := &Offset{Value: base}
	return &Chain{stride: stride, first: o}
}

// DefaultChain is the chain of the 32-bit VM: the first slot follows the
// table header.
func DefaultChain() *Chain { return NewChain(4, 4) }

func (c *Chain) First() *Offset { return c.first }

// Next returns the successor of o, appending it if needed.
func (c *Chain) Next(o *Offset) *Offset {
	if o.next == nil {
		o.next = &Offset{Value: o.Value + c.stride}
	}
	return o.next
}

// At returns the node holding value, or nil when value is not a slot.
func (c *Chain) At(value int32) *Offset {
	if value < c.first.Value {
		return nil
	}
	for o := c.first; ; o = c.Next(o) {
		switch {
		case o.Value == value:
			return o
		case o.Value > value:
			return nil
		}
	}
}

// Len is the number of slots handed out so far.
func (c *Chain) Len() int {
	n := 0
	for o := c.first; o != nil; o = o.next {
		n++
	}
	return n
}
