package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)

	g.AddNode("a") // idempotent
	assert.Len(t, g.nodes, 1)

	g.AddNode("b")
	assert.Equal(t, []string{"a", "b"}, g.order)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("a", "b")) // duplicates collapse

		refs, err := g.References("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, refs)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")

		assert.ErrorContains(t, g.AddEdge("dne", "a"), "source node not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne"), "destination node not found")

		_, err := g.References("dne")
		assert.ErrorContains(t, err, "node not found")
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("diamond has no cycles", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("a", "c"))
		require.NoError(t, g.AddEdge("b", "d"))
		require.NoError(t, g.AddEdge("c", "d"))

		assert.NoError(t, g.DetectCycles())
	})

	t.Run("two node loop is reported with its path", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		err := g.DetectCycles()
		var cycleErr *CycleError
		require.True(t, errors.As(err, &cycleErr))
		assert.Equal(t, []string{"a", "b", "a"}, cycleErr.Path)
		assert.EqualError(t, err, "cycle detected: a -> b -> a")
	})

	t.Run("self reference is a cycle", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		require.NoError(t, g.AddEdge("a", "a"))

		var cycleErr *CycleError
		require.ErrorAs(t, g.DetectCycles(), &cycleErr)
		assert.Equal(t, []string{"a", "a"}, cycleErr.Path)
	})

	t.Run("loop deeper in the graph", func(t *testing.T) {
		g := New()
		for _, id := range []string{"root", "x", "y", "z"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("root", "x"))
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "x"))

		var cycleErr *CycleError
		require.ErrorAs(t, g.DetectCycles(), &cycleErr)
		assert.Equal(t, []string{"x", "y", "z", "x"}, cycleErr.Path)
	})
}
