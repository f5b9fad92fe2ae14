package mapping

import "errors"

// Mapping error types
var (
	// ErrInvalidArgument is returned when a component is configured with missing or blank inputs
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEntityNotFound is returned when a type or name has no registered entity
	ErrEntityNotFound = errors.New("entity not registered")

	// ErrDuplicateEntity is returned when an entity name is registered twice
	ErrDuplicateEntity = errors.New("entity already registered")

	// ErrUnsupportedType is returned when a Go type has no CQL column mapping
	ErrUnsupportedType = errors.New("unsupported property type")

	// ErrPropertyNotFound is returned when a property path does not resolve
	ErrPropertyNotFound = errors.New("property not found")

	// ErrCyclicUserType is returned when user-defined types reference each other in a cycle
	ErrCyclicUserType = errors.New("cyclic user-defined type")

	// ErrUserTypeNotFound is returned when a registered UDT is missing from the keyspace
	ErrUserTypeNotFound = errors.New("user type not found in keyspace")

	// ErrUserTypeMismatch is returned when a registered UDT declares fields the keyspace type lacks
	ErrUserTypeMismatch = errors.New("user type does not match keyspace definition")
)

// IsEntityNotFound returns true if the error is ErrEntityNotFound
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsPropertyNotFound returns true if the error is ErrPropertyNotFound
func IsPropertyNotFound(err error) bool {
	return errors.Is(err, ErrPropertyNotFound)
}

// IsInvalidArgument returns true if the error is ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
