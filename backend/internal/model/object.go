package model

import (
	"fmt"
	"iter"

	"github.com/google/uuid"

	"famgraph/backend/internal/constants"
	"famgraph/backend/internal/graph"
	apperrors "famgraph/backend/pkg/errors"
)

// Entity is any typed view of a node
type Entity interface {
	NodeID() uuid.UUID
	base() Object
}

// Object is the typed view of a node carrying object.id, object.type and
// object.name. The attribute snapshot is taken at construction.
type Object struct {
	mapper *Mapper
	nodeID uuid.UUID
	attrs  graph.Attributes
}

// newObject enforces the Object invariants on a raw node
func newObject(m *Mapper, node graph.Node, tag string, anyType bool, required []string) (Object, error) {
	for _, key := range []string{constants.ObjectIDKey, constants.ObjectTypeKey, constants.ObjectNameKey} {
		if err := requireString(tag, node.Attributes, key); err != nil {
			return Object{}, err
		}
	}
	if !anyType {
		if got, _ := node.Attributes.String(constants.ObjectTypeKey); got != tag {
			return Object{}, apperrors.NewInvariantViolation(tag, constants.ObjectTypeKey, fmt.Sprintf("is %q", got))
		}
	}
	for _, key := range required {
		if !node.Attributes.Has(key) {
			return Object{}, apperrors.NewInvariantViolation(tag, key, "is missing")
		}
	}
	return Object{mapper: m, nodeID: node.ID, attrs: node.Attributes.Clone()}, nil
}

func requireString(tag string, attrs graph.Attributes, key string) error {
	v, ok := attrs.Get(key)
	if !ok {
		return apperrors.NewInvariantViolation(tag, key, "is missing")
	}
	if _, ok := v.(string); !ok {
		return apperrors.NewInvariantViolation(tag, key, fmt.Sprintf("must be a string, got %T", v))
	}
	return nil
}

func (o Object) base() Object { return o }

// NodeID returns the internal graph id
func (o Object) NodeID() uuid.UUID { return o.nodeID }

// ID returns the business id
func (o Object) ID() string { return o.attrs.StringOr(constants.ObjectIDKey, "") }

// Type returns the type tag
func (o Object) Type() string { return o.attrs.StringOr(constants.ObjectTypeKey, "") }

// Name returns the display name
func (o Object) Name() string { return o.attrs.StringOr(constants.ObjectNameKey, "") }

// Attr returns a single attribute from the snapshot
func (o Object) Attr(key string) (any, bool) { return o.attrs.Get(key) }

// Attrs returns a copy of the attribute snapshot
func (o Object) Attrs() graph.Attributes { return o.attrs.Clone() }

// Neighbours returns the ids of nodes this object points at
func (o Object) Neighbours() ([]uuid.UUID, error) {
	return o.mapper.store.Neighbours(o.nodeID)
}

// Incidents returns the ids of nodes pointing at this object
func (o Object) Incidents() ([]uuid.UUID, error) {
	return o.mapper.store.Incidents(o.nodeID)
}

// Update upserts attrs into the stored node and returns a fresh view. The
// receiver keeps its old snapshot. The type tag is fixed at creation, and
// object.id and object.name may be replaced only by non-empty strings.
// Nothing is written when attrs is rejected.
func (o Object) Update(attrs graph.Attributes) (Object, error) {
	if v, ok := attrs[constants.ObjectTypeKey]; ok && v != o.Type() {
		return Object{}, apperrors.NewInvalidAttribute(constants.ObjectTypeKey, "type tag cannot be changed")
	}
	for _, key := range []string{constants.ObjectIDKey, constants.ObjectNameKey} {
		if v, ok := attrs[key]; ok {
			if s, isString := v.(string); !isString || s == "" {
				return Object{}, apperrors.NewInvalidAttribute(key, "must be a non-empty string")
			}
		}
	}
	if err := o.mapper.store.UpdateNode(o.nodeID, attrs); err != nil {
		return Object{}, err
	}
	node, err := o.mapper.store.GetNode(o.nodeID)
	if err != nil {
		return Object{}, err
	}
	return newObject(o.mapper, node, o.Type(), true, nil)
}

func (o Object) String() string {
	return fmt.Sprintf("%s(node_id=%s, id=%s, name=%s)", o.Type(), o.nodeID, o.ID(), o.Name())
}

// ObjectKind declares a node backed entity type: its tag, the keys it needs
// beyond the Object ones, and how to wrap a validated Object.
type ObjectKind[T Entity] struct {
	Tag      string
	Required []string
	anyType  bool
	wrap     func(Object) T
}

// NewObjectKind declares an entity type whose nodes carry object.type == tag
func NewObjectKind[T Entity](tag string, wrap func(Object) T, required ...string) ObjectKind[T] {
	return ObjectKind[T]{Tag: tag, Required: required, wrap: wrap}
}

// TypeTag returns the tag stored in object.type
func (k ObjectKind[T]) TypeTag() string { return k.Tag }

func (k ObjectKind[T]) wrapNode(m *Mapper, node graph.Node) (T, error) {
	obj, err := newObject(m, node, k.Tag, k.anyType, k.Required)
	if err != nil {
		var zero T
		return zero, err
	}
	return k.wrap(obj), nil
}

// BaseObject views any object node regardless of its type tag
var BaseObject = ObjectKind[Object]{
	Tag:     constants.TypeObject,
	anyType: true,
	wrap:    func(o Object) Object { return o },
}

// Objects is the collection of entities of one kind
type Objects[T Entity] struct {
	mapper *Mapper
	kind   ObjectKind[T]
}

// Collection returns the collection of kind in m
func Collection[T Entity](m *Mapper, kind ObjectKind[T]) *Objects[T] {
	return &Objects[T]{mapper: m, kind: kind}
}

// Kind returns the declared kind
func (c *Objects[T]) Kind() ObjectKind[T] { return c.kind }

// Create stores a new entity. object.type and object.id are injected; when
// name is empty and attrs has no object.name, the business id is used as
// the name. Invariants are checked before anything is written.
func (c *Objects[T]) Create(businessID, name string, attrs graph.Attributes) (T, error) {
	var zero T
	if businessID == "" {
		return zero, apperrors.NewInvalidAttribute(constants.ObjectIDKey, "business id must not be empty")
	}

	full := attrs.Clone()
	full[constants.ObjectTypeKey] = c.kind.Tag
	full[constants.ObjectIDKey] = businessID
	if name != "" {
		full[constants.ObjectNameKey] = name
	} else if !full.Has(constants.ObjectNameKey) {
		full[constants.ObjectNameKey] = businessID
	}

	// Validate the would-be node first so no invalid node reaches the store.
	candidate := graph.Node{ID: uuid.New(), Attributes: full}
	if _, err := c.kind.wrapNode(c.mapper, candidate); err != nil {
		return zero, err
	}
	if err := c.mapper.store.AddNode(candidate.ID, full); err != nil {
		return zero, err
	}
	return c.Get(candidate.ID)
}

// Get wraps the node with the given internal id
func (c *Objects[T]) Get(nodeID uuid.UUID) (T, error) {
	node, err := c.mapper.store.GetNode(nodeID)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.kind.wrapNode(c.mapper, node)
}

// ByID returns the entity with the business id. When several nodes share
// the id the first in traversal order is returned and a warning is logged.
func (c *Objects[T]) ByID(businessID string) (T, error) {
	nodes := c.mapper.store.ListNodes(graph.And(
		c.typeFilter(),
		graph.HasAttribute(constants.ObjectIDKey, businessID),
	))
	return pickFirst(c.mapper, c.kind, businessID, nodes)
}

// ByAttr yields the entities whose attributes equal every pair in attrs.
// Each range over the result queries the store again.
func (c *Objects[T]) ByAttr(attrs graph.Attributes) iter.Seq2[T, error] {
	filters := []graph.Filter{c.typeFilter()}
	for _, key := range attrs.Keys() {
		filters = append(filters, graph.HasAttribute(key, attrs[key]))
	}
	return c.query(graph.And(filters...))
}

// All yields every entity of the kind
func (c *Objects[T]) All() iter.Seq2[T, error] {
	return c.query(c.typeFilter())
}

// Named yields the entities with the given display name
func (c *Objects[T]) Named(name string) iter.Seq2[T, error] {
	return c.ByAttr(graph.Attributes{constants.ObjectNameKey: name})
}

// Delete removes the entity and all its relations
func (c *Objects[T]) Delete(entity T) error {
	return c.mapper.store.DeleteNode(entity.NodeID())
}

func (c *Objects[T]) typeFilter() graph.Filter {
	return graph.HasAttribute(constants.ObjectTypeKey, c.kind.Tag)
}

func (c *Objects[T]) query(filter graph.Filter) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, node := range c.mapper.store.ListNodes(filter) {
			entity, err := c.kind.wrapNode(c.mapper, node)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(entity, nil) {
				return
			}
		}
	}
}
