// Package dag holds the offline dependency graph: one node per resource
// locator, ordered outgoing edges, and a discovery priority assigned the first
// time a node is added.
//
// Order produces a deterministic load order. Nodes whose dependencies are all
// emitted go first, scanned in priority order; when only cycles remain, the
// earliest discovered node is emitted anyway and reported as broken.
package dag
