package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/mapping"
)

// Statement is a CQL string with its bound values in placeholder order
type Statement struct {
	Query  string
	Values []interface{}
}

// String returns the CQL text
func (s *Statement) String() string {
	return s.Query
}

// CqlQueryCreator renders a PartTree as CQL for one entity
type CqlQueryCreator struct {
	tree           *PartTree
	entity         *mapping.PersistentEntity
	keyspace       cql.Identifier
	allowFiltering bool
}

// NewCqlQueryCreator checks that Cassandra can express tree and returns a
// creator for it
func NewCqlQueryCreator(tree *PartTree, entity *mapping.PersistentEntity, keyspace cql.Identifier, allowFiltering bool) (*CqlQueryCreator, error) {
	c := &CqlQueryCreator{
		tree:           tree,
		entity:         entity,
		keyspace:       keyspace,
		allowFiltering: allowFiltering,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CqlQueryCreator) validate() error {
	method := c.tree.Source()

	if c.entity.IsUserDefinedType() {
		return creationError(method, CauseMapping, "%s is a user-defined type, not a table", c.entity.Name())
	}
	if len(c.tree.orParts) > 1 {
		return creationError(method, CauseOrNotSupported, "Cassandra does not support an OR operator")
	}

	subject := c.tree.Subject()
	if subject.IsDistinct() {
		if subject.Action() != ActionSelect {
			return creationError(method, CauseInvalidMethod, "Distinct is only supported for select queries")
		}
		if len(c.entity.PartitionKey()) == 0 {
			return creationError(method, CauseMapping, "Distinct requires partition key columns on %s", c.entity.Name())
		}
	}
	if subject.Action() == ActionDelete {
		if subject.IsLimiting() || len(c.tree.sort) > 0 {
			return creationError(method, CauseInvalidMethod, "delete queries cannot be limited or sorted")
		}
		if !c.tree.HasPredicate() {
			return creationError(method, CauseInvalidMethod, "delete queries need at least one criterion")
		}
	}

	for _, part := range c.tree.Parts() {
		if err := validatePart(method, part); err != nil {
			return err
		}
	}
	for _, o := range c.tree.sort {
		if len(o.path) > 1 {
			return creationError(method, CauseUnsupportedKeyword, "cannot sort by user-defined type field %s", o.Column())
		}
	}
	return nil
}

func validatePart(method string, part *Part) error {
	if part.IgnoreCase() == IgnoreCaseAlways {
		return creationError(method, CauseUnsupportedKeyword, "ignoring case is not supported (%s)", part.Source())
	}

	// relations only address whole columns
	if len(part.PropertyPath()) > 1 {
		return creationError(method, CauseUnsupportedKeyword, "cannot query by user-defined type field %s (%s)", part.Path(), part.Source())
	}

	prop := part.Property()
	switch part.Type() {
	case NegatingSimpleProperty, IsNull, IsNotNull, IsEmpty, IsNotEmpty, NotLike, NotIn, NotContaining:
		return creationError(method, CauseUnsupportedKeyword, "keyword %s is not supported (%s)", part.Type(), part.Source())
	case Like, StartingWith, EndingWith:
		if !prop.Type.IsText() {
			return creationError(method, CauseUnsupportedKeyword, "%s requires a text property, %s is %s", part.Type(), part.Path(), prop.Type)
		}
	case Containing:
		if !prop.IsCollection() && !prop.Type.IsText() {
			return creationError(method, CauseUnsupportedKeyword, "%s requires a collection or text property, %s is %s", part.Type(), part.Path(), prop.Type)
		}
	case True, False:
		if !prop.Type.IsBoolean() {
			return creationError(method, CauseUnsupportedKeyword, "%s requires a boolean property, %s is %s", part.Type(), part.Path(), prop.Type)
		}
	}
	return nil
}

// CreateQuery renders the statement for one invocation
func (c *CqlQueryCreator) CreateQuery(params ParameterAccessor) (*Statement, error) {
	if isNil(params) {
		params = &ParametersParameterAccessor{}
	}
	if want := c.tree.NumberOfArguments(); params.Len() < want {
		return nil, fmt.Errorf("%w: %s needs %d arguments, got %d", ErrInvalidParameter, c.tree.Source(), want, params.Len())
	}

	var sb strings.Builder
	args := make([]interface{}, 0, params.Len())
	subject := c.tree.Subject()
	table := cql.QualifiedName(c.keyspace, c.entity.TableName())

	switch subject.Action() {
	case ActionDelete:
		sb.WriteString(fmt.Sprintf("DELETE FROM %s", table))
	case ActionCount:
		sb.WriteString(fmt.Sprintf("SELECT COUNT(1) FROM %s", table))
	default:
		sb.WriteString(fmt.Sprintf("SELECT %s FROM %s", c.selection(), table))
	}

	// WHERE
	if c.tree.HasPredicate() {
		sb.WriteString(" WHERE ")
		index := 0
		for i, part := range c.tree.orParts[0].parts {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			condition, err := partToCQL(part, params, &index, &args)
			if err != nil {
				return nil, fmt.Errorf("failed to build condition %s: %w", part.Source(), err)
			}
			sb.WriteString(condition)
		}
	}

	if subject.Action() == ActionDelete {
		return &Statement{Query: sb.String(), Values: args}, nil
	}

	// ORDER BY
	if len(c.tree.sort) > 0 && subject.Action() != ActionCount {
		orders := make([]string, len(c.tree.sort))
		for i, o := range c.tree.sort {
			orders[i] = o.Column() + " " + o.Direction().String()
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	// LIMIT
	switch {
	case subject.Action() == ActionExists:
		sb.WriteString(" LIMIT 1")
	case subject.IsLimiting():
		sb.WriteString(fmt.Sprintf(" LIMIT %d", subject.MaxResults()))
	}

	if c.allowFiltering {
		sb.WriteString(" ALLOW FILTERING")
	}

	return &Statement{Query: sb.String(), Values: args}, nil
}

func (c *CqlQueryCreator) selection() string {
	if !c.tree.Subject().IsDistinct() {
		return "*"
	}
	keys := c.entity.PartitionKey()
	columns := make([]string, len(keys))
	for i, k := range keys {
		columns[i] = k.Column.ToCql()
	}
	return "DISTINCT " + strings.Join(columns, ", ")
}

// partToCQL renders one part, appending its bound values to args
func partToCQL(part *Part, params ParameterAccessor, index *int, args *[]interface{}) (string, error) {
	column := mapping.ColumnPath(part.PropertyPath())
	next := func() interface{} {
		v := params.Value(*index)
		*index++
		return v
	}

	switch part.Type() {
	case SimpleProperty:
		*args = append(*args, next())
		return column + "=?", nil

	case LessThan, Before:
		*args = append(*args, next())
		return column + "<?", nil

	case LessThanEqual:
		*args = append(*args, next())
		return column + "<=?", nil

	case GreaterThan, After:
		*args = append(*args, next())
		return column + ">?", nil

	case GreaterThanEqual:
		*args = append(*args, next())
		return column + ">=?", nil

	case Between:
		*args = append(*args, next(), next())
		return column + ">=? AND " + column + "<=?", nil

	case In:
		v := next()
		if !isList(v) {
			return "", fmt.Errorf("%w: IN needs a slice, got %T", ErrInvalidParameter, v)
		}
		*args = append(*args, v)
		return column + " IN ?", nil

	case Like:
		*args = append(*args, next())
		return column + " LIKE ?", nil

	case StartingWith, EndingWith:
		s, ok := next().(string)
		if !ok {
			return "", fmt.Errorf("%w: %s needs a string", ErrInvalidParameter, part.Type())
		}
		if part.Type() == StartingWith {
			*args = append(*args, s+"%")
		} else {
			*args = append(*args, "%"+s)
		}
		return column + " LIKE ?", nil

	case Containing:
		v := next()
		if part.Property().IsCollection() {
			*args = append(*args, v)
			return column + " CONTAINS ?", nil
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s needs a string", ErrInvalidParameter, part.Type())
		}
		*args = append(*args, "%"+s+"%")
		return column + " LIKE ?", nil

	case True:
		return column + "=true", nil

	case False:
		return column + "=false", nil

	default:
		return "", fmt.Errorf("unsupported keyword: %s", part.Type())
	}
}

func isList(v interface{}) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}
