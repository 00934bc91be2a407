package dag

import "sync"

// Graph is a collection of nodes and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects nodes and next.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*Node
	// next is the priority handed to the next new node.
	next int
}

// Node is a single vertex of the graph. The exported fields are fixed once
// the node is created; edges are reached through the Graph.
type Node struct {
	// ID is the unique identifier, the resource locator.
	ID string
	// Name is the module name that first led to this node.
	Name string
	// Priority is the discovery order, starting at 0.
	Priority int

	// deps are the IDs this node depends on, in declaration order.
	deps []string
	// dependents are the IDs that depend on this node, in insertion order.
	dependents []string
}
