package dag

type color uint8

const (
	white color = iota // не посещён
	grey               // в процессе обхода
	black              // готов
)

// Walk orders nodes so that every node follows the nodes its edges lead to.
// Roots are visited in the given order and edges in the order edges returns
// them, so the result is deterministic. Following an edge into a node that
// is still in progress is a cycle: onCycle is called and that edge is
// treated as absent. edges is called at most once per node, which lets the
// caller resolve edge targets lazily on first follow.
func Walk[K comparable](roots []K, edges func(K) []K, onCycle func(from, to K)) []K {
	state := make(map[K]color, len(roots))
	order := make([]K, 0, len(roots))

	var visit func(n K)
	visit = func(n K) {
		state[n] = grey
		for _, next := range edges(n) {
			switch state[next] {
			case white:
				visit(next)
			case grey:
				if onCycle != nil {
					onCycle(n, next)
				}
			case black:
			}
		}
		state[n] = black
		order = append(order, n)
	}

	for _, r := range roots {
		if state[r] == white {
			visit(r)
		}
	}
	return order
}
