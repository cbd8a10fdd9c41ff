package graph

import (
	"strings"
	"sync"
)

// Graph is a collection of nodes and their references. All operations on the
// graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order keeps insertion order so traversal and errors are deterministic.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs).
type node struct {
	id string
	// refs holds the IDs this node invokes, in the order they were added.
	refs []string
	// seen deduplicates refs.
	seen map[string]struct{}
}

// CycleError reports a reference loop. Path starts and ends with the same ID.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}
