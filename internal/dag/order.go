package dag

// Order returns every node in load order: each node comes after all of its
// dependencies unless a cycle forced an earlier emission. broken lists, in
// emission order, the IDs emitted while they still had unresolved
// dependencies. Order always terminates and is deterministic for a given
// graph.
func (g *Graph) Order() (ordered []*Node, broken []string) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	nodes := g.sorted()
	outstanding := make(map[string]int, len(nodes))
	for _, n := range nodes {
		outstanding[n.ID] = len(n.deps)
	}
	emitted := make(map[string]bool, len(nodes))

	emit := func(n *Node) {
		emitted[n.ID] = true
		ordered = append(ordered, n)
		for _, id := range n.dependents {
			outstanding[id]--
		}
	}

	for len(ordered) < len(nodes) {
		var next *Node
		for _, n := range nodes {
			if !emitted[n.ID] && outstanding[n.ID] <= 0 {
				next = n
				break
			}
		}
		if next == nil {
			// Only cycles left: take the earliest discovered node.
			for _, n := range nodes {
				if !emitted[n.ID] {
					next = n
					break
				}
			}
			broken = append(broken, next.ID)
		}
		emit(next)
	}
	return ordered, broken
}

// IDs returns the IDs of nodes, in order.
func IDs(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
