// Package model maps typed genealogical entities onto nodes and edges of a
// graph.Store. Wrappers are views: each holds a copy of the attributes taken
// when it was built and never observes later mutations. Build a new wrapper
// to see the current state.
package model

import (
	"iter"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"famgraph/backend/internal/constants"
	"famgraph/backend/internal/graph"
	apperrors "famgraph/backend/pkg/errors"
	"famgraph/backend/pkg/logger"
)

// Mapper binds the entity layer to one store. There is no package level
// store; every collection is reached through a Mapper.
type Mapper struct {
	store  *graph.Store
	logger *zap.Logger
}

// NewMapper creates a mapper over store
func NewMapper(store *graph.Store) *Mapper {
	return NewMapperWithLogger(store, logger.Named("model"))
}

// NewMapperWithLogger creates a mapper that logs to log
func NewMapperWithLogger(store *graph.Store, log *zap.Logger) *Mapper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mapper{store: store, logger: log}
}

// Store returns the underlying graph store
func (m *Mapper) Store() *graph.Store {
	return m.store
}

// People returns the Person collection
func (m *Mapper) People() *Objects[*Person] {
	return Collection(m, PersonKind)
}

// Users returns the User collection
func (m *Mapper) Users() *Objects[*User] {
	return Collection(m, UserKind)
}

// DatedMarriages returns the DatedMarriage collection
func (m *Mapper) DatedMarriages() *Objects[*DatedMarriage] {
	return Collection(m, DatedMarriageKind)
}

// ParentChildren returns the ParentChild relations
func (m *Mapper) ParentChildren() *Relations[*ParentChild] {
	return RelationsOf(m, ParentChildKind)
}

// Marriages returns the Marriage relations
func (m *Mapper) Marriages() *Relations[*Marriage] {
	return RelationsOf(m, MarriageKind)
}

// ObjectByID finds an object by business id whatever its type
func (m *Mapper) ObjectByID(businessID string) (Object, error) {
	nodes := m.store.ListNodes(graph.HasAttribute(constants.ObjectIDKey, businessID))
	return pickFirst(m, BaseObject, businessID, nodes)
}

// pickFirst resolves a business id lookup. Several matches are not an
// error: the first node in traversal order wins and a warning is logged.
func pickFirst[T Entity](m *Mapper, kind ObjectKind[T], businessID string, nodes []graph.Node) (T, error) {
	var zero T
	if len(nodes) == 0 {
		return zero, apperrors.NewEntityNotFound(kind.Tag, businessID)
	}
	if len(nodes) > 1 {
		ambiguous := apperrors.NewAmbiguousLookup(kind.Tag, businessID, len(nodes))
		m.logger.Warn("Ambiguous business id, using first match",
			zap.String("type", kind.Tag),
			zap.String("business_id", businessID),
			zap.Int("matches", len(nodes)),
			zap.Stringer("node_id", nodes[0].ID),
			zap.Error(ambiguous),
		)
	}
	return kind.wrapNode(m, nodes[0])
}

// Collect drains seq into a slice, stopping at the first error
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// CreateID derives a business id from a display name: surrounding space is
// trimmed, inner whitespace runs become underscores, and the result is
// lower cased.
func CreateID(name string) string {
	return strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(name), "_"))
}
