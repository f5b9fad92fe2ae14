package query

import (
	"errors"
	"fmt"
)

var (
	// ErrQueryCreation matches every *QueryCreationError
	ErrQueryCreation = errors.New("could not create query")

	// ErrInvalidParameter is returned when invocation arguments cannot be bound
	ErrInvalidParameter = errors.New("invalid query parameter")
)

// CreationCause classifies why a derived query could not be created
type CreationCause int

const (
	CauseInvalidMethod CreationCause = iota
	CauseInvalidPrefix
	CauseUnknownProperty
	CauseUnsupportedKeyword
	CauseOrNotSupported
	CauseParameterMismatch
	CauseMapping
)

// String returns the cause label used in logs and metrics
func (c CreationCause) String() string {
	switch c {
	case CauseInvalidMethod:
		return "invalid_method"
	case CauseInvalidPrefix:
		return "invalid_prefix"
	case CauseUnknownProperty:
		return "unknown_property"
	case CauseUnsupportedKeyword:
		return "unsupported_keyword"
	case CauseOrNotSupported:
		return "or_not_supported"
	case CauseParameterMismatch:
		return "parameter_mismatch"
	case CauseMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// QueryCreationError is the single error reported when a query method
// cannot be turned into a query
type QueryCreationError struct {
	Method string
	Cause  CreationCause
	Err    error
}

// Error implements the error interface
func (e *QueryCreationError) Error() string {
	return fmt.Sprintf("could not create query for method %s (%s): %v", e.Method, e.Cause, e.Err)
}

// Unwrap returns the underlying error
func (e *QueryCreationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrQueryCreation
func (e *QueryCreationError) Is(target error) bool {
	return target == ErrQueryCreation
}

func creationError(method string, cause CreationCause, format string, args ...interface{}) *QueryCreationError {
	return &QueryCreationError{Method: method, Cause: cause, Err: fmt.Errorf(format, args...)}
}

// IsQueryCreationError checks if an error is a query creation error
func IsQueryCreationError(err error) bool {
	return errors.Is(err, ErrQueryCreation)
}

// CauseOf returns the creation cause of err, if it carries one
func CauseOf(err error) (CreationCause, bool) {
	var qce *QueryCreationError
	if errors.As(err, &qce) {
		return qce.Cause, true
	}
	return 0, false
}
