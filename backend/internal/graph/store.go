package graph

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "famgraph/backend/pkg/errors"
	"famgraph/backend/pkg/logger"
)

// Store is an in-memory directed graph whose nodes and edges carry
// attribute maps. All mutations take a single exclusive lock; reads share
// a read lock and see the graph as of the last completed mutation.
type Store struct {
	mu sync.RWMutex

	nodes map[uuid.UUID]Attributes
	order []uuid.UUID // node insertion order, drives traversal roots

	edges map[EdgeKey]Attributes
	out   map[uuid.UUID][]EdgeKey // insertion ordered
	in    map[uuid.UUID][]EdgeKey

	logger *zap.Logger
}

// NewStore creates an empty graph store
func NewStore() *Store {
	return NewStoreWithLogger(logger.Named("graph"))
}

// NewStoreWithLogger creates an empty graph store logging to log
func NewStoreWithLogger(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		nodes:  make(map[uuid.UUID]Attributes),
		edges:  make(map[EdgeKey]Attributes),
		out:    make(map[uuid.UUID][]EdgeKey),
		in:     make(map[uuid.UUID][]EdgeKey),
		logger: log,
	}
}

// ============================================================================
// Node Operations
// ============================================================================

// AddNode inserts a node with the given id and attributes
func (s *Store) AddNode(id uuid.UUID, attrs Attributes) error {
	if err := attrs.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[id]; exists {
		return apperrors.NewDuplicateNode(id.String())
	}
	s.nodes[id] = attrs.Clone()
	s.order = append(s.order, id)

	s.logger.Debug("Node added", zap.Stringer("node_id", id), zap.Int("attributes", len(attrs)))
	return nil
}

// GetNode returns a copy of the node
func (s *Store) GetNode(id uuid.UUID) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attrs, ok := s.nodes[id]
	if !ok {
		return Node{}, apperrors.NewNodeNotFound(id.String())
	}
	return Node{ID: id, Attributes: attrs.Clone()}, nil
}

// HasNode reports whether id is in the store
func (s *Store) HasNode(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// UpdateNode upserts attrs into the node: supplied keys overwrite existing
// values or are inserted, keys not supplied are left untouched.
func (s *Store) UpdateNode(id uuid.UUID, attrs Attributes) error {
	if err := attrs.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.nodes[id]
	if !ok {
		return apperrors.NewNodeNotFound(id.String())
	}
	for k, v := range attrs {
		current[k] = v
	}

	s.logger.Debug("Node updated", zap.Stringer("node_id", id), zap.Strings("keys", attrs.Keys()))
	return nil
}

// DeleteNode removes the node and every edge that starts or ends at it
func (s *Store) DeleteNode(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return apperrors.NewNodeNotFound(id.String())
	}

	removed := 0
	for _, key := range s.out[id] {
		if _, ok := s.edges[key]; ok {
			delete(s.edges, key)
			removed++
		}
		if key.Object != id {
			s.in[key.Object] = removeKey(s.in[key.Object], key)
		}
	}
	for _, key := range s.in[id] {
		if _, ok := s.edges[key]; ok {
			delete(s.edges, key)
			removed++
		}
		if key.Subject != id {
			s.out[key.Subject] = removeKey(s.out[key.Subject], key)
		}
	}
	delete(s.out, id)
	delete(s.in, id)
	delete(s.nodes, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}

	s.logger.Debug("Node deleted", zap.Stringer("node_id", id), zap.Int("edges_removed", removed))
	return nil
}

// Nodes returns every node in insertion order
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		nodes = append(nodes, Node{ID: id, Attributes: s.nodes[id].Clone()})
	}
	return nodes
}

// NodeCount returns the number of nodes
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// ============================================================================
// Edge Operations
// ============================================================================

// AddEdge inserts a directed edge from subject to object. attrs must carry
// a non-empty string label.
func (s *Store) AddEdge(subject, object uuid.UUID, attrs Attributes) error {
	if err := attrs.Validate(); err != nil {
		return err
	}
	if err := attrs.validateWeight(); err != nil {
		return err
	}
	label, ok := attrs.String(LabelKey)
	if !ok || label == "" {
		return apperrors.NewInvalidAttribute(LabelKey, "edge requires a non-empty string label")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[subject]; !ok {
		return apperrors.NewNodeNotFound(subject.String())
	}
	if _, ok := s.nodes[object]; !ok {
		return apperrors.NewNodeNotFound(object.String())
	}

	key := EdgeKey{Subject: subject, Object: object, Label: label}
	if _, exists := s.edges[key]; exists {
		return apperrors.NewDuplicateEdge(subject.String(), object.String(), label)
	}
	s.edges[key] = attrs.Clone()
	s.out[subject] = append(s.out[subject], key)
	s.in[object] = append(s.in[object], key)

	s.logger.Debug("Edge added", zap.Stringer("edge", key))
	return nil
}

// GetEdge returns a copy of the edge identified by the triple
func (s *Store) GetEdge(subject, object uuid.UUID, label string) (Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := EdgeKey{Subject: subject, Object: object, Label: label}
	attrs, ok := s.edges[key]
	if !ok {
		return Edge{}, apperrors.NewEdgeNotFound(subject.String(), object.String(), label)
	}
	return Edge{Subject: subject, Object: object, Attributes: attrs.Clone()}, nil
}

// UpdateEdge upserts attrs into the edge. The label is part of the edge's
// identity and cannot be changed.
func (s *Store) UpdateEdge(subject, object uuid.UUID, label string, attrs Attributes) error {
	if err := attrs.Validate(); err != nil {
		return err
	}
	if err := attrs.validateWeight(); err != nil {
		return err
	}
	if newLabel, ok := attrs[LabelKey]; ok && newLabel != label {
		return apperrors.NewInvalidAttribute(LabelKey, "edge label cannot be changed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := EdgeKey{Subject: subject, Object: object, Label: label}
	current, ok := s.edges[key]
	if !ok {
		return apperrors.NewEdgeNotFound(subject.String(), object.String(), label)
	}
	for k, v := range attrs {
		current[k] = v
	}
	return nil
}

// DeleteEdge removes a single edge
func (s *Store) DeleteEdge(subject, object uuid.UUID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := EdgeKey{Subject: subject, Object: object, Label: label}
	if _, ok := s.edges[key]; !ok {
		return apperrors.NewEdgeNotFound(subject.String(), object.String(), label)
	}
	delete(s.edges, key)
	s.out[subject] = removeKey(s.out[subject], key)
	s.in[object] = removeKey(s.in[object], key)

	s.logger.Debug("Edge deleted", zap.Stringer("edge", key))
	return nil
}

// OutEdges returns the edges leaving id in insertion order
func (s *Store) OutEdges(id uuid.UUID) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, apperrors.NewNodeNotFound(id.String())
	}
	return s.collectEdges(s.out[id]), nil
}

// InEdges returns the edges arriving at id in insertion order
func (s *Store) InEdges(id uuid.UUID) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, apperrors.NewNodeNotFound(id.String())
	}
	return s.collectEdges(s.in[id]), nil
}

// Neighbours returns the distinct ids reachable over one outgoing edge
func (s *Store) Neighbours(id uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, apperrors.NewNodeNotFound(id.String())
	}
	return distinct(s.out[id], func(k EdgeKey) uuid.UUID { return k.Object }), nil
}

// Incidents returns the distinct ids with an edge pointing at id
func (s *Store) Incidents(id uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, apperrors.NewNodeNotFound(id.String())
	}
	return distinct(s.in[id], func(k EdgeKey) uuid.UUID { return k.Subject }), nil
}

// Edges returns every edge, grouped by subject in node insertion order
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]Edge, 0, len(s.edges))
	for _, id := range s.order {
		edges = append(edges, s.collectEdges(s.out[id])...)
	}
	return edges
}

// EdgeCount returns the number of edges
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// collectEdges must be called with the lock held
func (s *Store) collectEdges(keys []EdgeKey) []Edge {
	edges := make([]Edge, 0, len(keys))
	for _, key := range keys {
		edges = append(edges, Edge{
			Subject:    key.Subject,
			Object:     key.Object,
			Attributes: s.edges[key].Clone(),
		})
	}
	return edges
}

func removeKey(keys []EdgeKey, key EdgeKey) []EdgeKey {
	if i := slices.Index(keys, key); i >= 0 {
		return slices.Delete(keys, i, i+1)
	}
	return keys
}

func distinct(keys []EdgeKey, pick func(EdgeKey) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(keys))
	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id := pick(key)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
