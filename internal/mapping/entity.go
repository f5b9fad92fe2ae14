package mapping

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cqlkit/cqlmap/internal/cql"
)

// KeyKind describes the role of a property in the primary key
type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyPartition
	KeyClustering
)

// String returns the string representation of the key kind
func (k KeyKind) String() string {
	switch k {
	case KeyPartition:
		return "partition"
	case KeyClustering:
		return "clustering"
	default:
		return "none"
	}
}

// ParseKeyKind converts a string to a KeyKind
func ParseKeyKind(s string) (KeyKind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return KeyNone, nil
	case "partition", "partition_key":
		return KeyPartition, nil
	case "clustering", "clustering_key":
		return KeyClustering, nil
	default:
		return KeyNone, fmt.Errorf("unknown key kind: %s", s)
	}
}

// PersistentProperty is a mapped field of an entity or user-defined type
type PersistentProperty struct {
	Name       string         // property name used in method names (lastName)
	FieldName  string         // Go struct field, empty for definitions
	FieldIndex []int          // reflect index path, nil for definitions
	Column     cql.Identifier // column or UDT field name
	Type       *cql.Type
	UserType   *PersistentEntity // set when Type references a registered UDT
	Key        KeyKind
}

// IsUserType reports whether the property holds a user-defined type value
func (p *PersistentProperty) IsUserType() bool {
	return p.UserType != nil
}

// IsCollection reports whether the property holds a list, set or map
func (p *PersistentProperty) IsCollection() bool {
	return p.Type.IsCollection()
}

// PersistentEntity describes how a type maps to a table or a user-defined type
type PersistentEntity struct {
	name       string
	goType     reflect.Type
	tableName  cql.Identifier
	userType   bool
	marker     UserDefinedType
	properties []*PersistentProperty
	byName     map[string]*PersistentProperty
}

func newPersistentEntity(name string, goType reflect.Type, tableName cql.Identifier) *PersistentEntity {
	return &PersistentEntity{
		name:       name,
		goType:     goType,
		tableName:  tableName,
		properties: make([]*PersistentProperty, 0),
		byName:     make(map[string]*PersistentProperty),
	}
}

func (e *PersistentEntity) addProperty(p *PersistentProperty) error {
	if _, exists := e.byName[p.Name]; exists {
		return fmt.Errorf("duplicate property %s on %s", p.Name, e.name)
	}
	e.properties = append(e.properties, p)
	e.byName[p.Name] = p
	return nil
}

// Name returns the entity name (the Go type name for reflected entities)
func (e *PersistentEntity) Name() string { return e.name }

// Type returns the Go type, nil for entities built from definitions
func (e *PersistentEntity) Type() reflect.Type { return e.goType }

// TableName returns the table identifier. For user-defined types this is the type name.
func (e *PersistentEntity) TableName() cql.Identifier { return e.tableName }

// TypeName returns the UDT identifier, honoring the marker's ForceQuote
func (e *PersistentEntity) TypeName() cql.Identifier { return e.tableName }

// IsUserDefinedType reports whether the entity maps a UDT rather than a table
func (e *PersistentEntity) IsUserDefinedType() bool { return e.userType }

// Marker returns the UDT marker; the zero value for table entities
func (e *PersistentEntity) Marker() UserDefinedType { return e.marker }

// Properties returns properties in declaration order
func (e *PersistentEntity) Properties() []*PersistentProperty {
	out := make([]*PersistentProperty, len(e.properties))
	copy(out, e.properties)
	return out
}

// Property looks up a property by name
func (e *PersistentEntity) Property(name string) (*PersistentProperty, bool) {
	p, ok := e.byName[name]
	return p, ok
}

// PropertyPath resolves a dotted property path such as address.city,
// descending into user-defined type properties.
func (e *PersistentEntity) PropertyPath(path string) ([]*PersistentProperty, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path on %s", ErrPropertyNotFound, e.name)
	}

	segments := strings.Split(path, ".")
	resolved := make([]*PersistentProperty, 0, len(segments))
	current := e

	for i, segment := range segments {
		if current == nil {
			return nil, fmt.Errorf("%w: %s on %s (%s is not a user-defined type)",
				ErrPropertyNotFound, path, e.name, segments[i-1])
		}
		prop, ok := current.Property(segment)
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrPropertyNotFound, path, e.name)
		}
		resolved = append(resolved, prop)
		current = prop.UserType
	}

	return resolved, nil
}

// PartitionKey returns the partition key properties in declaration order
func (e *PersistentEntity) PartitionKey() []*PersistentProperty {
	return e.propertiesWithKey(KeyPartition)
}

// ClusteringColumns returns the clustering properties in declaration order
func (e *PersistentEntity) ClusteringColumns() []*PersistentProperty {
	return e.propertiesWithKey(KeyClustering)
}

func (e *PersistentEntity) propertiesWithKey(kind KeyKind) []*PersistentProperty {
	out := make([]*PersistentProperty, 0)
	for _, p := range e.properties {
		if p.Key == kind {
			out = append(out, p)
		}
	}
	return out
}

// ColumnPath renders resolved properties as a column reference (address.city)
func ColumnPath(props []*PersistentProperty) string {
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = p.Column.ToCql()
	}
	return strings.Join(parts, ".")
}
