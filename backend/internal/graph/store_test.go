package graph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "famgraph/backend/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreWithLogger(zap.NewNop())
}

func addNode(t *testing.T, s *Store, attrs Attributes) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, s.AddNode(id, attrs))
	return id
}

func TestStore_AddAndGetNode(t *testing.T) {
	s := newTestStore(t)
	id := addNode(t, s, Attributes{"object.name": "Alice", "age": 42})

	node, err := s.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, id, node.ID)
	assert.Equal(t, "Alice", node.Attributes["object.name"])
	assert.Equal(t, 42, node.Attributes["age"])
	assert.True(t, s.HasNode(id))
	assert.Equal(t, 1, s.NodeCount())
}

func TestStore_AddNode_Duplicate(t *testing.T) {
	s := newTestStore(t)
	id := addNode(t, s, Attributes{})

	err := s.AddNode(id, Attributes{"x": "y"})
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicate(err))
}

func TestStore_AddNode_InvalidAttribute(t *testing.T) {
	s := newTestStore(t)

	err := s.AddNode(uuid.New(), Attributes{"tags": []string{"a"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Equal(t, 0, s.NodeCount())
}

func TestStore_GetNode_ReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	id := addNode(t, s, Attributes{"k": "v"})

	node, err := s.GetNode(id)
	require.NoError(t, err)
	node.Attributes["k"] = "mutated"

	again, err := s.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "v", again.Attributes["k"])
}

func TestStore_GetNode_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetNode(uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStore_UpdateNode_Upsert(t *testing.T) {
	s := newTestStore(t)
	id := addNode(t, s, Attributes{"object.name": "Alice", "person.gender": "Male"})

	require.NoError(t, s.UpdateNode(id, Attributes{"person.gender": "Female", "person.date_of_birth": "1900-01-01"}))

	node, err := s.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "Female", node.Attributes["person.gender"])
	assert.Equal(t, "1900-01-01", node.Attributes["person.date_of_birth"])
	assert.Equal(t, "Alice", node.Attributes["object.name"], "keys not supplied must survive")
}

func TestStore_UpdateNode_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateNode(uuid.New(), Attributes{"gender": "Female"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStore_DeleteNode_RemovesIncidentEdges(t *testing.T) {
	s := newTestStore(t)
	a := addNode(t, s, Attributes{"n": "a"})
	b := addNode(t, s, Attributes{"n": "b"})
	c := addNode(t, s, Attributes{"n": "c"})

	require.NoError(t, s.AddEdge(a, b, Attributes{LabelKey: "ParentChild"}))
	require.NoError(t, s.AddEdge(b, c, Attributes{LabelKey: "ParentChild"}))
	require.NoError(t, s.AddEdge(c, b, Attributes{LabelKey: "Marriage"}))
	require.NoError(t, s.AddEdge(b, b, Attributes{LabelKey: "Self"}))
	require.NoError(t, s.AddEdge(a, c, Attributes{LabelKey: "ParentChild"}))

	require.NoError(t, s.DeleteNode(b))

	assert.False(t, s.HasNode(b))
	assert.Equal(t, 1, s.EdgeCount())

	out, err := s.Neighbours(a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c}, out)

	in, err := s.Incidents(c)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, in)

	outC, err := s.OutEdges(c)
	require.NoError(t, err)
	assert.Empty(t, outC)

	assert.True(t, apperrors.IsNotFound(s.DeleteNode(b)))
}

func TestStore_AddEdge(t *testing.T) {
	s := newTestStore(t)
	a := addNode(t, s, Attributes{})
	b := addNode(t, s, Attributes{})

	t.Run("requires label", func(t *testing.T) {
		err := s.AddEdge(a, b, Attributes{WeightKey: 1.0})
		assert.True(t, apperrors.IsInvalidInput(err))
	})

	t.Run("requires both ends", func(t *testing.T) {
		err := s.AddEdge(a, uuid.New(), Attributes{LabelKey: "ParentChild"})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("different labels coexist", func(t *testing.T) {
		require.NoError(t, s.AddEdge(a, b, Attributes{LabelKey: "ParentChild"}))
		require.NoError(t, s.AddEdge(a, b, Attributes{LabelKey: "Marriage", WeightKey: 0.5}))
		assert.Equal(t, 2, s.EdgeCount())

		ids, err := s.Neighbours(a)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b}, ids)
	})

	t.Run("same label is duplicate", func(t *testing.T) {
		err := s.AddEdge(a, b, Attributes{LabelKey: "ParentChild"})
		assert.True(t, apperrors.IsDuplicate(err))
	})
}

func TestStore_EdgeWeightMustBeNumeric(t *testing.T) {
	s := newTestStore(t)
	a := addNode(t, s, Attributes{})
	b := addNode(t, s, Attributes{})

	for _, weight := range []any{"heavy", true} {
		err := s.AddEdge(a, b, Attributes{LabelKey: "ParentChild", WeightKey: weight})
		assert.True(t, apperrors.IsInvalidInput(err), "weight %v: got %v", weight, err)
	}
	assert.Equal(t, 0, s.EdgeCount())

	for _, weight := range []any{1.5, 2, int64(3)} {
		label := fmt.Sprintf("W%v", weight)
		require.NoError(t, s.AddEdge(a, b, Attributes{LabelKey: label, WeightKey: weight}))
	}

	err := s.UpdateEdge(a, b, "W1.5", Attributes{WeightKey: "heavy"})
	assert.True(t, apperrors.IsInvalidInput(err))
	edge, err := s.GetEdge(a, b, "W1.5")
	require.NoError(t, err)
	assert.Equal(t, 1.5, edge.Weight())
}

func TestStore_EdgeCRUD(t *testing.T) {
	s := newTestStore(t)
	a := addNode(t, s, Attributes{})
	b := addNode(t, s, Attributes{})
	require.NoError(t, s.AddEdge(a, b, Attributes{LabelKey: "Marriage"}))

	edge, err := s.GetEdge(a, b, "Marriage")
	require.NoError(t, err)
	assert.Equal(t, "Marriage", edge.Label())
	assert.Equal(t, 0.0, edge.Weight())

	require.NoError(t, s.UpdateEdge(a, b, "Marriage", Attributes{WeightKey: 2}))
	edge, err = s.GetEdge(a, b, "Marriage")
	require.NoError(t, err)
	assert.Equal(t, 2.0, edge.Weight())

	err = s.UpdateEdge(a, b, "Marriage", Attributes{LabelKey: "ParentChild"})
	assert.True(t, apperrors.IsInvalidInput(err))

	require.NoError(t, s.DeleteEdge(a, b, "Marriage"))
	_, err = s.GetEdge(a, b, "Marriage")
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(s.DeleteEdge(a, b, "Marriage")))
}

func TestStore_AdjacencyOnMissingNode(t *testing.T) {
	s := newTestStore(t)
	missing := uuid.New()

	_, err := s.Neighbours(missing)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = s.Incidents(missing)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = s.OutEdges(missing)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = s.InEdges(missing)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStore_EdgesOrder(t *testing.T) {
	s := newTestStore(t)
	a := addNode(t, s, Attributes{})
	b := addNode(t, s, Attributes{})
	c := addNode(t, s, Attributes{})
	require.NoError(t, s.AddEdge(b, c, Attributes{LabelKey: "x"}))
	require.NoError(t, s.AddEdge(a, c, Attributes{LabelKey: "y"}))
	require.NoError(t, s.AddEdge(a, b, Attributes{LabelKey: "z"}))

	var labels []string
	for _, e := range s.Edges() {
		labels = append(labels, e.Label())
	}
	assert.Equal(t, []string{"y", "z", "x"}, labels)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t)
	root := addNode(t, s, Attributes{"object.type": "Person"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := uuid.New()
			if err := s.AddNode(id, Attributes{"object.type": "Person"}); err == nil {
				_ = s.AddEdge(root, id, Attributes{LabelKey: "ParentChild"})
			}
		}()
		go func() {
			defer wg.Done()
			_ = s.ListNodes(HasAttribute("object.type", "Person"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 21, s.NodeCount())
	assert.Equal(t, 20, s.EdgeCount())
}
