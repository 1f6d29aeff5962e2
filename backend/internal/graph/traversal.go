package graph

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListNodes walks the whole graph breadth first and returns the nodes the
// filter accepts, in visit order. Roots are taken in node insertion order;
// from each unvisited root the walk follows outgoing edges in insertion
// order. Every node is visited exactly once, so the result never repeats a
// node. A nil filter accepts every node.
//
// The walk runs under the read lock; the filter runs after it is released
// against the snapshot taken, so a filter may call back into the store.
// Nodes added meanwhile are not part of the result.
func (s *Store) ListNodes(filter Filter) []Node {
	s.mu.RLock()
	visits := make([]Visit, 0, len(s.nodes))
	s.walk(func(v Visit) {
		visits = append(visits, v)
	})
	s.mu.RUnlock()

	var found []Node
	for _, v := range visits {
		if filter == nil || filter.Match(v) {
			found = append(found, Node{ID: v.Node, Attributes: v.Attributes.Clone()})
		}
	}

	s.logger.Debug("Listed nodes",
		zap.Int("matched", len(found)),
		zap.Int("visited", len(visits)),
	)
	return found
}

// walk must be called with the lock held. Visits carry a private copy
// of the attributes so they cannot corrupt the store.
func (s *Store) walk(visit func(Visit)) {
	visited := make(map[uuid.UUID]struct{}, len(s.nodes))
	queue := make([]Visit, 0, len(s.nodes))

	for _, root := range s.order {
		if _, ok := visited[root]; ok {
			continue
		}
		visited[root] = struct{}{}
		queue = append(queue[:0], Visit{Node: root, Parent: uuid.Nil})

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			current.Attributes = s.nodes[current.Node].Clone()
			visit(current)

			for _, key := range s.out[current.Node] {
				if _, ok := visited[key.Object]; ok {
					continue
				}
				visited[key.Object] = struct{}{}
				queue = append(queue, Visit{Node: key.Object, Parent: current.Node})
			}
		}
	}
}
