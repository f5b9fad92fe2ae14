package mapping

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/cql"
	utilstrings "github.com/cqlkit/cqlmap/internal/util/strings"
)

// EntityDefinition declares an entity or user-defined type without a Go type
type EntityDefinition struct {
	Name       string
	Table      string // table name, or the UDT name when UserType is set
	UserType   bool
	ForceQuote bool
	Properties []PropertyDefinition
}

// PropertyDefinition declares one property of an EntityDefinition
type PropertyDefinition struct {
	Name   string // property name as used in method names
	Column string // defaults to snake_case(Name)
	Type   string // CQL type expression, e.g. text, list<int>, frozen<address>
	Key    string // partition, clustering or empty
}

// RegisterDefinition maps a declared entity. User-defined types referenced by
// its properties must already be registered.
func (c *Context) RegisterDefinition(def EntityDefinition) (*PersistentEntity, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, fmt.Errorf("%w: entity name must not be blank", ErrInvalidArgument)
	}

	tableName, err := definitionTableName(def)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", def.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entity := newPersistentEntity(def.Name, nil, tableName)
	entity.userType = def.UserType
	if def.UserType {
		entity.marker = UserDefinedType{Name: def.Table, ForceQuote: def.ForceQuote}
	}

	for _, pd := range def.Properties {
		prop, err := c.definitionProperty(pd)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", def.Name, err)
		}
		if err := entity.addProperty(prop); err != nil {
			return nil, err
		}
	}

	if err := c.store(entity); err != nil {
		return nil, err
	}

	c.logger.Debug("registered definition",
		zap.String("entity", entity.Name()),
		zap.String("table", entity.TableName().ToCql()),
		zap.Bool("user_type", entity.IsUserDefinedType()))
	return entity, nil
}

func definitionTableName(def EntityDefinition) (cql.Identifier, error) {
	name := def.Table
	if name == "" {
		name = utilstrings.ToSnakeCase(def.Name)
	}
	if def.UserType {
		return UserDefinedType{Name: name, ForceQuote: def.ForceQuote}.TypeName(def.Name)
	}
	return cql.Of(name)
}

// definitionProperty builds a property. Caller holds the write lock.
func (c *Context) definitionProperty(pd PropertyDefinition) (*PersistentProperty, error) {
	if strings.TrimSpace(pd.Name) == "" {
		return nil, fmt.Errorf("%w: property name must not be blank", ErrInvalidArgument)
	}

	columnName := pd.Column
	if columnName == "" {
		columnName = utilstrings.ToSnakeCase(pd.Name)
	}
	column, err := cql.Of(columnName)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", pd.Name, err)
	}

	typ, err := cql.ParseType(pd.Type)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", pd.Name, err)
	}

	key, err := ParseKeyKind(pd.Key)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", pd.Name, err)
	}

	prop := &PersistentProperty{
		Name:   pd.Name,
		Column: column,
		Type:   typ,
		Key:    key,
	}

	for _, ref := range referencedUserTypes(typ) {
		udt := c.userTypeByName(ref)
		if udt == nil {
			return nil, fmt.Errorf("%w: property %s refers to user type %s", ErrEntityNotFound, pd.Name, ref)
		}
		if typ.IsUserType() {
			prop.UserType = udt
		}
	}

	return prop, nil
}

// userTypeByName finds a registered UDT by its stored name. Caller holds the lock.
func (c *Context) userTypeByName(name string) *PersistentEntity {
	for _, e := range c.entities {
		if e.IsUserDefinedType() && e.TypeName().Unquoted() == name {
			return e
		}
	}
	return nil
}
