package graph

import "github.com/google/uuid"

// Visit is what a filter sees for each node reached during traversal
type Visit struct {
	Node       uuid.UUID
	Parent     uuid.UUID // uuid.Nil when the node was reached as a root
	Attributes Attributes
}

// Filter selects nodes for ListNodes. Match is called without the store
// lock held and must not mutate the visit.
type Filter interface {
	Match(v Visit) bool
}

// FilterFunc adapts a plain function to a Filter
type FilterFunc func(v Visit) bool

func (f FilterFunc) Match(v Visit) bool {
	return f(v)
}

// AttributeFilter matches nodes whose attribute key holds exactly value.
// There is no type coercion: int 1 and float64 1 are different values.
type AttributeFilter struct {
	Key   string
	Value any
}

// HasAttribute builds an AttributeFilter
func HasAttribute(key string, value any) AttributeFilter {
	return AttributeFilter{Key: key, Value: value}
}

func (f AttributeFilter) Match(v Visit) bool {
	got, ok := v.Attributes[f.Key]
	if !ok {
		return false
	}
	return scalarEqual(got, f.Value)
}

// AndFilter matches when every component matches, checked in order
type AndFilter []Filter

// And builds an AndFilter. An empty AndFilter matches every node.
func And(filters ...Filter) AndFilter {
	return AndFilter(filters)
}

func (f AndFilter) Match(v Visit) bool {
	for _, filter := range f {
		if !filter.Match(v) {
			return false
		}
	}
	return true
}

// scalarEqual compares values without panicking on uncomparable types
func scalarEqual(a, b any) bool {
	switch b.(type) {
	case string, bool, int, int64, float64:
		return a == b
	}
	return false
}
