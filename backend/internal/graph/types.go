package graph

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	apperrors "famgraph/backend/pkg/errors"
)

// ============================================================================
// Graph Types
// ============================================================================

// Reserved edge attribute keys
const (
	LabelKey  = "label"
	WeightKey = "weight"
)

// Attributes is the unordered attribute mapping carried by nodes and edges.
// Values are scalars: string, bool, int, int64 or float64.
type Attributes map[string]any

// Node is a vertex of the graph
type Node struct {
	ID         uuid.UUID  `json:"id"`
	Attributes Attributes `json:"attributes"`
}

// Edge is a directed, labelled connection between two nodes
type Edge struct {
	Subject    uuid.UUID  `json:"subject"`
	Object     uuid.UUID  `json:"object"`
	Attributes Attributes `json:"attributes"`
}

// EdgeKey identifies an edge. Two nodes may be joined by several edges as
// long as their labels differ.
type EdgeKey struct {
	Subject uuid.UUID
	Object  uuid.UUID
	Label   string
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", k.Subject, k.Label, k.Object)
}

// Key returns the identifying triple of the edge
func (e Edge) Key() EdgeKey {
	return EdgeKey{Subject: e.Subject, Object: e.Object, Label: e.Label()}
}

// Label returns the edge's relation type name
func (e Edge) Label() string {
	label, _ := e.Attributes.String(LabelKey)
	return label
}

// Weight returns the edge weight, 0.0 when unset
func (e Edge) Weight() float64 {
	return e.Attributes.Float(WeightKey, 0.0)
}

// Get returns the raw value stored under key
func (a Attributes) Get(key string) (any, bool) {
	v, ok := a[key]
	return v, ok
}

// Has reports whether key is present
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the value under key when it is a string
func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringOr returns the string under key or defaultValue
func (a Attributes) StringOr(key, defaultValue string) string {
	if s, ok := a.String(key); ok {
		return s
	}
	return defaultValue
}

// Float returns the numeric value under key as a float64, or defaultValue
func (a Attributes) Float(key string, defaultValue float64) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultValue
}

// Clone returns a copy that shares no storage with a
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge upserts every key of other into a copy of a
func (a Attributes) Merge(other Attributes) Attributes {
	out := a.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the attribute keys in sorted order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects empty keys and non-scalar values
func (a Attributes) Validate() error {
	for k, v := range a {
		if k == "" {
			return apperrors.NewInvalidAttribute(k, "key must not be empty")
		}
		switch v.(type) {
		case string, bool, int, int64, float64:
		default:
			return apperrors.NewInvalidAttribute(k, fmt.Sprintf("unsupported value type %T", v))
		}
	}
	return nil
}

// validateWeight rejects a weight that Edge.Weight could not read as a number
func (a Attributes) validateWeight() error {
	v, ok := a[WeightKey]
	if !ok {
		return nil
	}
	switch v.(type) {
	case float64, int, int64:
		return nil
	}
	return apperrors.NewInvalidAttribute(WeightKey, fmt.Sprintf("must be numeric, got %T", v))
}
