package dag

import (
	"fmt"
	"slices"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode adds a node with the given ID and returns it. If a node with the
// same ID already exists, it is returned unchanged and keeps its priority.
func (g *Graph) AddNode(id, name string) *Node {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if n, ok := g.nodes[id]; ok {
		return n
	}

	n := &Node{ID: id, Name: name, Priority: g.next}
	g.next++
	g.nodes[id] = n
	return n
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// AddDependency records that id depends on dep. Both nodes must exist.
// Repeated edges are ignored.
func (g *Graph) AddDependency(id, dep string) error {
	if id == dep {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", id, id)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("node not found: %s", id)
	}
	d, ok := g.nodes[dep]
	if !ok {
		return fmt.Errorf("dependency node not found: %s", dep)
	}

	if slices.Contains(n.deps, dep) {
		return nil
	}
	n.deps = append(n.deps, dep)
	d.dependents = append(d.dependents, id)
	return nil
}

// Dependencies returns the IDs the given node depends on, in declaration order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return slices.Clone(n.deps), nil
}

// Dependents returns the IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return slices.Clone(n.dependents), nil
}

// Nodes returns every node sorted by priority.
func (g *Graph) Nodes() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.sorted()
}

func (g *Graph) sorted() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// naming the first node found on a cycle. Nodes are visited in priority
// order so the result is stable.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// permanent: fully visited and not on a cycle.
	// temporary: on the current recursion stack.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving node '%s'", n.ID)
		}

		temporary[n.ID] = true
		for _, id := range n.deps {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range g.sorted() {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}
