package model

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"famgraph/backend/internal/constants"
	"famgraph/backend/internal/graph"
	apperrors "famgraph/backend/pkg/errors"
)

// Relation is the typed view of an edge. Its label names the relation type.
type Relation struct {
	mapper  *Mapper
	subject uuid.UUID
	object  uuid.UUID
	attrs   graph.Attributes
}

func newRelation(m *Mapper, edge graph.Edge, tag string, anyLabel bool, required []string) (Relation, error) {
	if err := requireString(tag, edge.Attributes, graph.LabelKey); err != nil {
		return Relation{}, err
	}
	if !anyLabel && edge.Label() != tag {
		return Relation{}, apperrors.NewInvariantViolation(tag, graph.LabelKey, fmt.Sprintf("is %q", edge.Label()))
	}
	for _, key := range required {
		if !edge.Attributes.Has(key) {
			return Relation{}, apperrors.NewInvariantViolation(tag, key, "is missing")
		}
	}
	return Relation{
		mapper:  m,
		subject: edge.Subject,
		object:  edge.Object,
		attrs:   edge.Attributes.Clone(),
	}, nil
}

// Label returns the relation type name
func (r Relation) Label() string { return r.attrs.StringOr(graph.LabelKey, "") }

// Weight returns the edge weight, 0.0 when unset
func (r Relation) Weight() float64 { return r.attrs.Float(graph.WeightKey, 0.0) }

// SubjectID returns the node id the relation starts at
func (r Relation) SubjectID() uuid.UUID { return r.subject }

// ObjectID returns the node id the relation ends at
func (r Relation) ObjectID() uuid.UUID { return r.object }

// Key returns the (subject, object, label) triple
func (r Relation) Key() graph.EdgeKey {
	return graph.EdgeKey{Subject: r.subject, Object: r.object, Label: r.Label()}
}

// Attr returns a single attribute from the snapshot
func (r Relation) Attr(key string) (any, bool) { return r.attrs.Get(key) }

// Attrs returns a copy of the attribute snapshot
func (r Relation) Attrs() graph.Attributes { return r.attrs.Clone() }

// Subject returns the object the relation starts at
func (r Relation) Subject() (Object, error) {
	return Collection(r.mapper, BaseObject).Get(r.subject)
}

// Object returns the object the relation ends at
func (r Relation) Object() (Object, error) {
	return Collection(r.mapper, BaseObject).Get(r.object)
}

func (r Relation) String() string {
	return fmt.Sprintf("%s(subj=%s, %v, obj=%s)", r.Label(), r.subject, map[string]any(r.attrs), r.object)
}

// RelationKind declares an edge backed relation type. Endpoint tags, when
// set, restrict the object.type of the nodes Relate may connect.
type RelationKind[T any] struct {
	Tag        string
	Required   []string
	anyLabel   bool
	subjectTag string
	objectTag  string
	wrap       func(Relation) T
}

// NewRelationKind declares a relation type whose edges carry label == tag
func NewRelationKind[T any](tag string, wrap func(Relation) T, required ...string) RelationKind[T] {
	return RelationKind[T]{Tag: tag, Required: required, wrap: wrap}
}

// Between returns a copy of k that only relates a subject tagged subjectTag
// to an object tagged objectTag. An empty tag leaves that end open.
func (k RelationKind[T]) Between(subjectTag, objectTag string) RelationKind[T] {
	k.subjectTag = subjectTag
	k.objectTag = objectTag
	return k
}

// TypeTag returns the tag stored in the edge label
func (k RelationKind[T]) TypeTag() string { return k.Tag }

func (k RelationKind[T]) checkEndpoints(subject, object Entity) error {
	ends := []struct {
		role, want string
		entity     Entity
	}{
		{"subject", k.subjectTag, subject},
		{"object", k.objectTag, object},
	}
	for _, end := range ends {
		if end.want == "" {
			continue
		}
		if got := end.entity.base().Type(); got != end.want {
			return apperrors.NewInvariantViolation(k.Tag, constants.ObjectTypeKey,
				fmt.Sprintf("of the %s must be %q, got %q", end.role, end.want, got))
		}
	}
	return nil
}

func (k RelationKind[T]) matches(edge graph.Edge) bool {
	return k.anyLabel || edge.Label() == k.Tag
}

func (k RelationKind[T]) wrapEdge(m *Mapper, edge graph.Edge) (T, error) {
	rel, err := newRelation(m, edge, k.Tag, k.anyLabel, k.Required)
	if err != nil {
		var zero T
		return zero, err
	}
	return k.wrap(rel), nil
}

// BaseRelation views any edge regardless of its label
var BaseRelation = RelationKind[Relation]{
	Tag:      constants.TypeRelation,
	anyLabel: true,
	wrap:     func(r Relation) Relation { return r },
}

// Relations is the set of relations of one kind
type Relations[T any] struct {
	mapper *Mapper
	kind   RelationKind[T]
}

// RelationsOf returns the relations of kind in m
func RelationsOf[T any](m *Mapper, kind RelationKind[T]) *Relations[T] {
	return &Relations[T]{mapper: m, kind: kind}
}

// Relate creates an edge from subject to object labelled with the kind's
// tag. attrs may be nil. Endpoints whose type tags the kind does not allow
// are rejected before anything is written.
func (c *Relations[T]) Relate(subject, object Entity, attrs graph.Attributes) (T, error) {
	var zero T
	if err := c.kind.checkEndpoints(subject, object); err != nil {
		return zero, err
	}
	full := attrs.Clone()
	full[graph.LabelKey] = c.kind.Tag

	edge := graph.Edge{Subject: subject.NodeID(), Object: object.NodeID(), Attributes: full}
	if _, err := c.kind.wrapEdge(c.mapper, edge); err != nil {
		return zero, err
	}
	if err := c.mapper.store.AddEdge(edge.Subject, edge.Object, full); err != nil {
		return zero, err
	}
	c.mapper.logger.Debug("Related entities",
		zap.String("label", c.kind.Tag),
		zap.Stringer("subject", edge.Subject),
		zap.Stringer("object", edge.Object),
	)
	return c.Get(subject, object)
}

// Get returns the relation between subject and object
func (c *Relations[T]) Get(subject, object Entity) (T, error) {
	edge, err := c.mapper.store.GetEdge(subject.NodeID(), object.NodeID(), c.kind.Tag)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.kind.wrapEdge(c.mapper, edge)
}

// Unrelate removes the relation between subject and object
func (c *Relations[T]) Unrelate(subject, object Entity) error {
	return c.mapper.store.DeleteEdge(subject.NodeID(), object.NodeID(), c.kind.Tag)
}

// RelatedNeighbours returns the relations of kind leaving from. Every
// outgoing edge is inspected; the store keeps no label index.
func RelatedNeighbours[T any](from Entity, kind RelationKind[T]) ([]T, error) {
	m := from.base().mapper
	edges, err := m.store.OutEdges(from.NodeID())
	if err != nil {
		return nil, err
	}
	return wrapMatching(m, kind, edges)
}

// RelatedIncidents returns the relations of kind arriving at to
func RelatedIncidents[T any](to Entity, kind RelationKind[T]) ([]T, error) {
	m := to.base().mapper
	edges, err := m.store.InEdges(to.NodeID())
	if err != nil {
		return nil, err
	}
	return wrapMatching(m, kind, edges)
}

func wrapMatching[T any](m *Mapper, kind RelationKind[T], edges []graph.Edge) ([]T, error) {
	out := make([]T, 0, len(edges))
	for _, edge := range edges {
		if !kind.matches(edge) {
			continue
		}
		rel, err := kind.wrapEdge(m, edge)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}
