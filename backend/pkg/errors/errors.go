package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound represents lookups of missing nodes, edges or business ids
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeDuplicateID represents inserts that collide with an existing node or edge
	ErrorTypeDuplicateID ErrorType = "duplicate_id"
	// ErrorTypeInvariant represents typed entities built from incomplete graph data
	ErrorTypeInvariant ErrorType = "invariant_violation"
	// ErrorTypeAmbiguous represents a business id matched by more than one node
	ErrorTypeAmbiguous ErrorType = "ambiguous_lookup"
	// ErrorTypeInvalidInput represents malformed attributes or arguments
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeExport represents failures while copying the graph to Neo4j
	ErrorTypeExport ErrorType = "export"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph store errors

// ErrNodeNotFound is returned when a node id is not in the store
type ErrNodeNotFound struct {
	*BaseError
	NodeID string
}

func NewNodeNotFound(nodeID string) *ErrNodeNotFound {
	return &ErrNodeNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("node not found: %s", nodeID), nil),
		NodeID:    nodeID,
	}
}

// ErrEdgeNotFound is returned when no edge exists for a (subject, object, label) triple
type ErrEdgeNotFound struct {
	*BaseError
	SubjectID string
	ObjectID  string
	Label     string
}

func NewEdgeNotFound(subjectID, objectID, label string) *ErrEdgeNotFound {
	return &ErrEdgeNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("edge not found: %s -[%s]-> %s", subjectID, label, objectID), nil),
		SubjectID: subjectID,
		ObjectID:  objectID,
		Label:     label,
	}
}

// ErrDuplicateNode is returned when a node id is already taken
type ErrDuplicateNode struct {
	*BaseError
	NodeID string
}

func NewDuplicateNode(nodeID string) *ErrDuplicateNode {
	return &ErrDuplicateNode{
		BaseError: NewBaseError(ErrorTypeDuplicateID, fmt.Sprintf("node already exists: %s", nodeID), nil),
		NodeID:    nodeID,
	}
}

// ErrDuplicateEdge is returned when an edge with the same label already joins two nodes
type ErrDuplicateEdge struct {
	*BaseError
	SubjectID string
	ObjectID  string
	Label     string
}

func NewDuplicateEdge(subjectID, objectID, label string) *ErrDuplicateEdge {
	return &ErrDuplicateEdge{
		BaseError: NewBaseError(ErrorTypeDuplicateID, fmt.Sprintf("edge already exists: %s -[%s]-> %s", subjectID, label, objectID), nil),
		SubjectID: subjectID,
		ObjectID:  objectID,
		Label:     label,
	}
}

// ErrInvalidAttribute is returned for attribute maps the store cannot hold
type ErrInvalidAttribute struct {
	*BaseError
	Key    string
	Reason string
}

func NewInvalidAttribute(key, reason string) *ErrInvalidAttribute {
	return &ErrInvalidAttribute{
		BaseError: NewBaseError(ErrorTypeInvalidInput, fmt.Sprintf("invalid attribute %q: %s", key, reason), nil),
		Key:       key,
		Reason:    reason,
	}
}

// Entity mapping errors

// ErrEntityNotFound is returned when no entity of a type carries a business id
type ErrEntityNotFound struct {
	*BaseError
	TypeTag    string
	BusinessID string
}

func NewEntityNotFound(typeTag, businessID string) *ErrEntityNotFound {
	return &ErrEntityNotFound{
		BaseError:  NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", typeTag, businessID), nil),
		TypeTag:    typeTag,
		BusinessID: businessID,
	}
}

// ErrInvariantViolation is returned when a typed wrapper cannot be built from graph data
type ErrInvariantViolation struct {
	*BaseError
	TypeTag string
	Key     string
}

func NewInvariantViolation(typeTag, key, reason string) *ErrInvariantViolation {
	return &ErrInvariantViolation{
		BaseError: NewBaseError(ErrorTypeInvariant, fmt.Sprintf("%s: attribute %q %s", typeTag, key, reason), nil),
		TypeTag:   typeTag,
		Key:       key,
	}
}

// ErrAmbiguousLookup describes a business id shared by several nodes
type ErrAmbiguousLookup struct {
	*BaseError
	TypeTag    string
	BusinessID string
	Count      int
}

func NewAmbiguousLookup(typeTag, businessID string, count int) *ErrAmbiguousLookup {
	return &ErrAmbiguousLookup{
		BaseError:  NewBaseError(ErrorTypeAmbiguous, fmt.Sprintf("found %d %s nodes with id: %s", count, typeTag, businessID), nil),
		TypeTag:    typeTag,
		BusinessID: businessID,
		Count:      count,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Export Errors

// ErrExportFailed is returned when the graph cannot be copied to Neo4j
type ErrExportFailed struct {
	*BaseError
	URI   string
	Stage string
}

func NewExportFailed(uri, stage string, err error) *ErrExportFailed {
	return &ErrExportFailed{
		BaseError: NewBaseError(ErrorTypeExport, fmt.Sprintf("export to %s failed during %s", uri, stage), err),
		URI:       uri,
		Stage:     stage,
	}
}

// Helper functions

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		var kinded interface{ Kind() ErrorType }
		if !stderrors.As(err, &kinded) {
			return false
		}
		if kinded.Kind() == errType {
			return true
		}
		// Continue below the matched error; its cause may carry another kind.
		unwrapper, ok := kinded.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsDuplicate reports whether err is a duplicate-id error
func IsDuplicate(err error) bool {
	return IsErrorType(err, ErrorTypeDuplicateID)
}

// IsInvariantViolation reports whether err is an invariant violation
func IsInvariantViolation(err error) bool {
	return IsErrorType(err, ErrorTypeInvariant)
}

// IsInvalidInput reports whether err is an invalid-input error
func IsInvalidInput(err error) bool {
	return IsErrorType(err, ErrorTypeInvalidInput)
}
