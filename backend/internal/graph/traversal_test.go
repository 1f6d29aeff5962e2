package graph

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []Node) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestListNodes_BreadthFirstOrder(t *testing.T) {
	s := newTestStore(t)
	// Inserted leaf first so that traversal order differs from insertion order.
	leaf := addNode(t, s, Attributes{"n": "leaf"})
	root := addNode(t, s, Attributes{"n": "root"})
	left := addNode(t, s, Attributes{"n": "left"})
	right := addNode(t, s, Attributes{"n": "right"})

	require.NoError(t, s.AddEdge(root, left, Attributes{LabelKey: "ParentChild"}))
	require.NoError(t, s.AddEdge(root, right, Attributes{LabelKey: "ParentChild"}))
	require.NoError(t, s.AddEdge(left, leaf, Attributes{LabelKey: "ParentChild"}))

	got := ids(s.ListNodes(nil))
	// leaf is a root of its own (first inserted), then root's BFS.
	assert.Equal(t, []uuid.UUID{leaf, root, left, right}, got)
}

func TestListNodes_VisitsEachNodeOnce(t *testing.T) {
	s := newTestStore(t)
	a := addNode(t, s, Attributes{"object.type": "Person"})
	b := addNode(t, s, Attributes{"object.type": "Person"})
	c := addNode(t, s, Attributes{"object.type": "Person"})
	// Diamond plus a cycle back to a.
	require.NoError(t, s.AddEdge(a, b, Attributes{LabelKey: "x"}))
	require.NoError(t, s.AddEdge(a, c, Attributes{LabelKey: "x"}))
	require.NoError(t, s.AddEdge(b, c, Attributes{LabelKey: "x"}))
	require.NoError(t, s.AddEdge(c, a, Attributes{LabelKey: "x"}))

	seen := map[uuid.UUID]int{}
	s.ListNodes(FilterFunc(func(v Visit) bool {
		seen[v.Node]++
		return true
	}))
	assert.Equal(t, map[uuid.UUID]int{a: 1, b: 1, c: 1}, seen)
}

func TestListNodes_ParentInVisit(t *testing.T) {
	s := newTestStore(t)
	parent := addNode(t, s, Attributes{})
	child := addNode(t, s, Attributes{})
	require.NoError(t, s.AddEdge(parent, child, Attributes{LabelKey: "ParentChild"}))

	parents := map[uuid.UUID]uuid.UUID{}
	s.ListNodes(FilterFunc(func(v Visit) bool {
		parents[v.Node] = v.Parent
		return false
	}))
	assert.Equal(t, uuid.Nil, parents[parent])
	assert.Equal(t, parent, parents[child])
}

func TestListNodes_FilterCannotMutateStore(t *testing.T) {
	s := newTestStore(t)
	id := addNode(t, s, Attributes{"k": "v"})

	s.ListNodes(FilterFunc(func(v Visit) bool {
		v.Attributes["k"] = "changed"
		return true
	}))

	node, err := s.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "v", node.Attributes["k"])
}

func TestListNodes_EmptyStore(t *testing.T) {
	assert.Empty(t, newTestStore(t).ListNodes(nil))
}

func TestListNodes_FilterMayWriteToStore(t *testing.T) {
	s := newTestStore(t)
	a := addNode(t, s, Attributes{"k": "v"})
	b := addNode(t, s, Attributes{"k": "v"})

	done := make(chan []Node, 1)
	go func() {
		done <- s.ListNodes(FilterFunc(func(v Visit) bool {
			_ = s.AddNode(uuid.New(), Attributes{"k": "v"})
			return true
		}))
	}()

	select {
	case found := <-done:
		assert.Equal(t, []uuid.UUID{a, b}, ids(found))
	case <-time.After(5 * time.Second):
		t.Fatal("ListNodes blocked while the filter wrote to the store")
	}
	assert.Equal(t, 4, s.NodeCount())
}
