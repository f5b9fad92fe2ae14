package mapping

import (
	"fmt"
	"strings"

	"github.com/cqlkit/cqlmap/internal/cql"
)

// CreateUserTypeCQL renders the CREATE TYPE statement for a user-defined type
func CreateUserTypeCQL(keyspace cql.Identifier, entity *PersistentEntity) (string, error) {
	if entity == nil || !entity.IsUserDefinedType() {
		return "", fmt.Errorf("%w: not a user-defined type", ErrInvalidArgument)
	}
	if len(entity.properties) == 0 {
		return "", fmt.Errorf("%w: user type %s has no fields", ErrInvalidArgument, entity.TypeName())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CREATE TYPE IF NOT EXISTS %s (\n", cql.QualifiedName(keyspace, entity.TypeName())))

	for i, p := range entity.properties {
		sb.WriteString(fmt.Sprintf("    %s %s", p.Column.ToCql(), p.Type.String()))
		if i < len(entity.properties)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(");")
	return sb.String(), nil
}

// CreateUserTypesCQL renders CREATE TYPE statements for every registered UDT,
// nested types first
func (c *Context) CreateUserTypesCQL() ([]string, error) {
	types := c.UserTypes()
	statements := make([]string, 0, len(types))
	for _, entity := range types {
		stmt, err := CreateUserTypeCQL(c.keyspace, entity)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}
