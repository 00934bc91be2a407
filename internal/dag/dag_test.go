package dag

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// build adds nodes in the order given and then the edges, where each edge
// is {id, dep}.
func build(t *testing.T, ids []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, id := range ids {
		g.AddNode(id, id)
	}
	for _, e := range edges {
		require.NoError(t, g.AddDependency(e[0], e[1]))
	}
	return g
}

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	a := g.AddNode("a.hcl", "a")
	assert.Equal(t, "a.hcl", a.ID)
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, 0, a.Priority)

	again := g.AddNode("a.hcl", "other") // Test idempotency
	assert.Same(t, a, again)
	assert.Equal(t, "a", again.Name)
	assert.Equal(t, 1, g.Len())

	b := g.AddNode("b.hcl", "b")
	assert.Equal(t, 1, b.Priority)
	assert.Equal(t, 2, g.Len())

	got, ok := g.Node("b.hcl")
	require.True(t, ok)
	assert.Same(t, b, got)
	_, ok = g.Node("dne")
	assert.False(t, ok)
}

func TestAddDependency(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := build(t, []string{"app", "a", "b"}, [][2]string{{"app", "b"}, {"app", "a"}, {"app", "b"}})

		deps, err := g.Dependencies("app")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, deps, "declaration order, deduplicated")

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"app"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := build(t, []string{"a", "b"}, nil)

		assert.ErrorContains(t, g.AddDependency("dne", "a"), "node not found")
		assert.ErrorContains(t, g.AddDependency("a", "dne"), "dependency node not found")
		assert.ErrorContains(t, g.AddDependency("a", "a"), "self-referential edge")

		_, err := g.Dependencies("dne")
		assert.Error(t, err)
		_, err = g.Dependents("dne")
		assert.Error(t, err)
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := build(t, []string{"a", "b", "c", "d"}, [][2]string{
			{"b", "a"}, {"c", "b"}, {"c", "a"}, {"d", "c"},
		})
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("simple direct cycle is detected", func(t *testing.T) {
		g := build(t, []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})
		assert.ErrorContains(t, g.DetectCycles(), "cycle detected")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := build(t, []string{"a", "b", "x", "y", "z"}, [][2]string{
			{"b", "a"}, {"y", "x"}, {"z", "y"}, {"y", "z"},
		})
		assert.ErrorContains(t, g.DetectCycles(), "cycle detected")
	})
}

func TestOrder(t *testing.T) {
	t.Run("single root", func(t *testing.T) {
		g := build(t, []string{"app"}, nil)
		ordered, broken := g.Order()
		assert.Equal(t, []string{"app"}, IDs(ordered))
		assert.Empty(t, broken)
	})

	t.Run("siblings precede their parent", func(t *testing.T) {
		g := build(t, []string{"app", "a", "b"}, [][2]string{{"app", "a"}, {"app", "b"}})
		ordered, broken := g.Order()
		ids := IDs(ordered)
		assert.Equal(t, []string{"a", "b", "app"}, ids)
		assert.Empty(t, broken)
	})

	t.Run("two node cycle emits the earlier discovered first", func(t *testing.T) {
		g := build(t, []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})
		ordered, broken := g.Order()
		assert.Equal(t, []string{"a", "b"}, IDs(ordered))
		assert.Equal(t, []string{"a"}, broken)
	})

	t.Run("stuck scan takes the earliest discovered node even off the cycle", func(t *testing.T) {
		// app -> x -> y -> x, and app -> leaf
		g := build(t, []string{"app", "x", "y", "leaf"}, [][2]string{
			{"app", "x"}, {"x", "y"}, {"y", "x"}, {"app", "leaf"},
		})
		ordered, broken := g.Order()
		assert.Equal(t, []string{"leaf", "app", "x", "y"}, IDs(ordered))
		assert.Equal(t, []string{"app", "x"}, broken)
	})

	t.Run("cycle discovered after its dependents resolve", func(t *testing.T) {
		// x <-> y discovered first, app depends on x.
		g := build(t, []string{"x", "y", "app"}, [][2]string{
			{"x", "y"}, {"y", "x"}, {"app", "x"},
		})
		ordered, broken := g.Order()
		assert.Equal(t, []string{"x", "y", "app"}, IDs(ordered))
		assert.Equal(t, []string{"x"}, broken)
	})

	t.Run("deterministic", func(t *testing.T) {
		edges := [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"d", "a"}}
		first, _ := build(t, []string{"a", "b", "c", "d"}, edges).Order()
		for i := 0; i < 10; i++ {
			again, _ := build(t, []string{"a", "b", "c", "d"}, edges).Order()
			assert.Equal(t, IDs(first), IDs(again))
		}
	})
}

func TestOrder_RandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for iter := 0; iter < 50; iter++ {
		n := 2 + rng.Intn(12)
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("n%d", i)
		}

		t.Run(fmt.Sprintf("acyclic #%d", iter), func(t *testing.T) {
			// Edges only point at lower indexes, so the graph is acyclic.
			var edges [][2]string
			for i := 1; i < n; i++ {
				for j := 0; j < i; j++ {
					if rng.Intn(3) == 0 {
						edges = append(edges, [2]string{ids[i], ids[j]})
					}
				}
			}
			g := build(t, ids, edges)
			require.NoError(t, g.DetectCycles())

			ordered, broken := g.Order()
			assert.Empty(t, broken)
			require.Len(t, ordered, n)

			pos := make(map[string]int, n)
			for i, node := range ordered {
				pos[node.ID] = i
			}
			for _, e := range edges {
				assert.Less(t, pos[e[1]], pos[e[0]], "%s must precede %s", e[1], e[0])
			}
		})

		t.Run(fmt.Sprintf("cyclic #%d", iter), func(t *testing.T) {
			var edges [][2]string
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					if i != j && rng.Intn(3) == 0 {
						edges = append(edges, [2]string{ids[i], ids[j]})
					}
				}
			}
			g := build(t, ids, edges)

			ordered, _ := g.Order()
			got := IDs(ordered)
			assert.ElementsMatch(t, ids, got, "every node emitted exactly once")
		})
	}
}
