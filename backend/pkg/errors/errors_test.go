package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseError_Error(t *testing.T) {
	plain := NewBaseError(ErrorTypeConfig, "bad port", nil)
	assert.Equal(t, "[config] bad port", plain.Error())

	wrapped := NewBaseError(ErrorTypeExport, "write failed", fmt.Errorf("connection reset"))
	assert.Equal(t, "[export] write failed: connection reset", wrapped.Error())
}

func TestIsErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorType
		want bool
	}{
		{"node not found", NewNodeNotFound("n1"), ErrorTypeNotFound, true},
		{"wrapped not found", fmt.Errorf("lookup: %w", NewEntityNotFound("Person", "/p/1")), ErrorTypeNotFound, true},
		{"duplicate is not not-found", NewDuplicateNode("n1"), ErrorTypeNotFound, false},
		{"duplicate edge", NewDuplicateEdge("a", "b", "ParentChild"), ErrorTypeDuplicateID, true},
		{"invariant", NewInvariantViolation("Person", "object.name", "is missing"), ErrorTypeInvariant, true},
		{"cause of export error", NewExportFailed("bolt://x", "nodes", NewNodeNotFound("n")), ErrorTypeNotFound, true},
		{"plain error", fmt.Errorf("boom"), ErrorTypeNotFound, false},
		{"nil", nil, ErrorTypeNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsErrorType(tt.err, tt.kind))
		})
	}
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewEdgeNotFound("a", "b", "Marriage")))
	assert.True(t, IsDuplicate(NewDuplicateNode("a")))
	assert.True(t, IsInvariantViolation(NewInvariantViolation("Relation", "label", "is missing")))
	assert.True(t, IsInvalidInput(NewInvalidAttribute("k", "unsupported value type []string")))
	assert.False(t, IsNotFound(NewAmbiguousLookup("Person", "abc", 2)))
}
