package typemap

import (
	"fmt"
	"reflect"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes for mapping construction and literal rendering
const (
	ErrCodeUnsupportedRank    = "UNSUPPORTED_RANK"
	ErrCodeUnsupportedShape   = "UNSUPPORTED_SHAPE"
	ErrCodeTypeMismatch       = "TYPE_MISMATCH"
	ErrCodeMappingNotFound    = "MAPPING_NOT_FOUND"
	ErrCodeMappingConflict    = "MAPPING_ALREADY_REGISTERED"
	ErrCodeRenderFailed       = "RENDER_FAILED"
	ErrCodeInvalidElementType = "INVALID_ELEMENT_TYPE"
)

// MappingError represents unified errors from the type mapping layer
type MappingError struct {
	Type      ErrorType      `json:"type"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	StoreType string         `json:"store_type,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *MappingError) Error() string {
	if e.StoreType != "" {
		return fmt.Sprintf("[%s:%s] store type '%s': %s", e.Type, e.Code, e.StoreType, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *MappingError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a MappingError
func (e *MappingError) WithDetail(key string, value any) *MappingError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a MappingError
func (e *MappingError) WithCause(cause error) *MappingError {
	e.Cause = cause
	return e
}

// WithStoreType adds store type context to a MappingError
func (e *MappingError) WithStoreType(storeType string) *MappingError {
	e.StoreType = storeType
	return e
}

// NewMappingError creates a new MappingError
func NewMappingError(errorType ErrorType, code, message string) *MappingError {
	return &MappingError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewUnsupportedRankError creates an error for literal rendering against a
// sequence of rank other than 1. Multi-dimensional arrays are a permanent
// non-goal of this layer.
func NewUnsupportedRankError() *MappingError {
	return NewMappingError(ErrorTypeValidation, ErrCodeUnsupportedRank,
		"array literals for rank > 1 are not supported")
}

// NewUnsupportedShapeError creates an error for a sequence type that does not
// match the element mapping it was requested with.
func NewUnsupportedShapeError(message string) *MappingError {
	return NewMappingError(ErrorTypeValidation, ErrCodeUnsupportedShape, message)
}

// NewTypeMismatchError creates an error for a value whose dynamic type does
// not match the mapped Go type.
func NewTypeMismatchError(storeType string, want reflect.Type, got any) *MappingError {
	return NewMappingError(ErrorTypeValidation, ErrCodeTypeMismatch,
		fmt.Sprintf("expected %s, got %T", want, got)).
		WithStoreType(storeType)
}

// NewMappingNotFoundError creates an error for a store type with no
// registered mapping.
func NewMappingNotFoundError(storeType string) *MappingError {
	return NewMappingError(ErrorTypeNotFound, ErrCodeMappingNotFound,
		"no mapping registered").WithStoreType(storeType)
}

// NewMappingConflictError creates an error for a duplicate registration.
func NewMappingConflictError(storeType string) *MappingError {
	return NewMappingError(ErrorTypeValidation, ErrCodeMappingConflict,
		"a mapping is already registered").WithStoreType(storeType)
}

// ============================================================================
// Error checking utilities
// ============================================================================

func hasCode(err error, code string) bool {
	if me, ok := err.(*MappingError); ok {
		return me.Code == code
	}
	return false
}

// IsUnsupportedRankError checks if an error is an unsupported rank error
func IsUnsupportedRankError(err error) bool {
	return hasCode(err, ErrCodeUnsupportedRank)
}

// IsUnsupportedShapeError checks if an error is an unsupported shape error
func IsUnsupportedShapeError(err error) bool {
	return hasCode(err, ErrCodeUnsupportedShape)
}

// IsTypeMismatchError checks if an error is a type mismatch error
func IsTypeMismatchError(err error) bool {
	return hasCode(err, ErrCodeTypeMismatch)
}

// IsMappingNotFoundError checks if an error is a mapping not found error
func IsMappingNotFoundError(err error) bool {
	return hasCode(err, ErrCodeMappingNotFound)
}
