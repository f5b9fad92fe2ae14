package mapping

import (
	"github.com/cqlkit/cqlmap/internal/cql"
	utilstrings "github.com/cqlkit/cqlmap/internal/util/strings"
)

// UserDefinedType marks a Go type as a Cassandra user-defined type. Values of
// a marked type are stored inline in a column, never in a table of their own.
// User-defined types may contain nested user-defined types.
type UserDefinedType struct {
	// Name of the UDT. Empty derives snake_case from the Go type name.
	Name string

	// ForceQuote renders the name as a case-sensitive quoted identifier
	ForceQuote bool
}

// UserDefinedTypeMarker is implemented by types that declare their own marker.
// Such types are registered automatically when a mapped property refers to them.
type UserDefinedTypeMarker interface {
	CassandraUserType() UserDefinedType
}

// TypeName resolves the CQL identifier for a type called goTypeName
func (u UserDefinedType) TypeName(goTypeName string) (cql.Identifier, error) {
	name := u.Name
	if name == "" {
		name = utilstrings.ToSnakeCase(goTypeName)
	}
	if u.ForceQuote {
		return cql.Quoted(name)
	}
	return cql.Of(name)
}
