package graph

import (
	"fmt"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:   id,
		seen: make(map[string]struct{}),
	}
	g.order = append(g.order, id)
}

// AddEdge records that fromID invokes toID. An error is returned if either
// node does not exist. Self references are accepted and reported later by
// DetectCycles.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	if _, ok := g.nodes[toID]; !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if _, dup := fromNode.seen[toID]; dup {
		return nil
	}
	fromNode.seen[toID] = struct{}{}
	fromNode.refs = append(fromNode.refs, toID)
	return nil
}

// References returns the IDs the given node invokes, in insertion order.
func (g *Graph) References(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	out := make([]string, len(n.refs))
	copy(out, n.refs)
	return out, nil
}

// DetectCycles checks the graph for reference loops. It returns a
// *CycleError describing the first loop found, visiting nodes in insertion
// order.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// permanent: fully explored, known to be loop free.
	// stack: the current DFS path, used both as a set and to report the loop.
	permanent := make(map[string]bool)
	onStack := make(map[string]int)
	var stack []string

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if idx, ok := onStack[n.id]; ok {
			path := append([]string{}, stack[idx:]...)
			return &CycleError{Path: append(path, n.id)}
		}

		onStack[n.id] = len(stack)
		stack = append(stack, n.id)

		for _, ref := range n.refs {
			if err := visit(g.nodes[ref]); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}
