package mapping

import (
	"fmt"
	"net"
	"reflect"
	"strings"
	"time"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/datastax/go-cassandra-native-protocol/datatype"
	"github.com/google/uuid"

	"github.com/cqlkit/cqlmap/internal/cql"
	utilstrings "github.com/cqlkit/cqlmap/internal/util/strings"
)

var (
	timeType      = reflect.TypeOf(time.Time{})
	uuidType      = reflect.TypeOf(uuid.UUID{})
	gocqlUUIDType = reflect.TypeOf(gocql.UUID{})
	ipType        = reflect.TypeOf(net.IP{})
	bytesType     = reflect.TypeOf([]byte{})
	emptyStruct   = reflect.TypeOf(struct{}{})
	markerType    = reflect.TypeOf((*UserDefinedTypeMarker)(nil)).Elem()
)

// fieldTag is the parsed form of a `cql:"column,option"` struct tag
type fieldTag struct {
	column string
	key    KeyKind
	skip   bool
}

func parseFieldTag(tag string) (fieldTag, error) {
	if tag == "-" {
		return fieldTag{skip: true}, nil
	}

	parts := strings.Split(tag, ",")
	ft := fieldTag{column: strings.TrimSpace(parts[0])}
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch opt {
		case "transient":
			ft.skip = true
		case "":
		default:
			kind, err := ParseKeyKind(opt)
			if err != nil {
				return ft, err
			}
			ft.key = kind
		}
	}
	return ft, nil
}

// indirect strips pointer types
func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// markerFor returns the marker a type declares through UserDefinedTypeMarker
func markerFor(t reflect.Type) (UserDefinedType, bool) {
	if !t.Implements(markerType) && !reflect.PointerTo(t).Implements(markerType) {
		return UserDefinedType{}, false
	}
	m, ok := reflect.New(t).Interface().(UserDefinedTypeMarker)
	if !ok {
		return UserDefinedType{}, false
	}
	return m.CassandraUserType(), true
}

// builder reflects Go types into entities. It must run with the context's
// write lock held. Entities and markers are staged on the builder and reach
// the context only through commit, so a failed registration leaves no trace.
type builder struct {
	ctx      *Context
	visiting map[reflect.Type]bool
	staged   []*PersistentEntity
	byType   map[reflect.Type]*PersistentEntity
	markers  map[reflect.Type]UserDefinedType
}

func newBuilder(ctx *Context) *builder {
	return &builder{
		ctx:      ctx,
		visiting: make(map[reflect.Type]bool),
		byType:   make(map[reflect.Type]*PersistentEntity),
		markers:  make(map[reflect.Type]UserDefinedType),
	}
}

func (b *builder) entityOf(t reflect.Type) (*PersistentEntity, bool) {
	if entity, ok := b.byType[t]; ok {
		return entity, true
	}
	entity, ok := b.ctx.byType[t]
	return entity, ok
}

func (b *builder) markerOf(t reflect.Type) (UserDefinedType, bool) {
	if marker, ok := b.markers[t]; ok {
		return marker, true
	}
	marker, ok := b.ctx.markers[t]
	return marker, ok
}

// stage records entity for commit, rejecting names already taken
func (b *builder) stage(entity *PersistentEntity) error {
	if _, exists := b.ctx.entities[entity.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, entity.Name())
	}
	for _, e := range b.staged {
		if e.Name() == entity.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateEntity, entity.Name())
		}
	}
	b.staged = append(b.staged, entity)
	if entity.goType != nil {
		b.byType[entity.goType] = entity
	}
	return nil
}

// commit publishes the staged entities and their markers
func (b *builder) commit() {
	for _, entity := range b.staged {
		b.ctx.entities[entity.Name()] = entity
		if entity.goType != nil {
			b.ctx.byType[entity.goType] = entity
		}
		if entity.IsUserDefinedType() {
			b.ctx.markers[entity.goType] = entity.marker
		}
	}
}

func (b *builder) buildEntity(t reflect.Type, tableName cql.Identifier, userType bool, marker UserDefinedType) (*PersistentEntity, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrUnsupportedType, t)
	}
	if b.visiting[t] {
		return nil, fmt.Errorf("%w: %s", ErrCyclicUserType, t)
	}
	b.visiting[t] = true
	defer delete(b.visiting, t)

	entity := newPersistentEntity(t.Name(), t, tableName)
	entity.userType = userType
	entity.marker = marker

	if err := b.addFields(entity, t, nil); err != nil {
		return nil, err
	}
	return entity, nil
}

func (b *builder) addFields(entity *PersistentEntity, t reflect.Type, index []int) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldIndex := append(append([]int{}, index...), i)

		tag, err := parseFieldTag(field.Tag.Get("cql"))
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
		}
		if tag.skip {
			continue
		}

		// Embedded structs without a marker are flattened
		if field.Anonymous && indirect(field.Type).Kind() == reflect.Struct && !b.isUserType(indirect(field.Type)) {
			if err := b.addFields(entity, indirect(field.Type), fieldIndex); err != nil {
				return err
			}
			continue
		}

		columnName := tag.column
		if columnName == "" {
			columnName = utilstrings.ToSnakeCase(field.Name)
		}
		column, err := cql.Of(columnName)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
		}

		typ, udt, err := b.typeFor(field.Type)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
		}

		prop := &PersistentProperty{
			Name:       utilstrings.Uncapitalize(field.Name),
			FieldName:  field.Name,
			FieldIndex: fieldIndex,
			Column:     column,
			Type:       typ,
			UserType:   udt,
			Key:        tag.key,
		}
		if err := entity.addProperty(prop); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) isUserType(t reflect.Type) bool {
	if _, ok := b.markerOf(t); ok {
		return true
	}
	_, ok := markerFor(t)
	return ok
}

// typeFor maps a Go type to its CQL type. The returned entity is set when the
// type itself is a user-defined type.
func (b *builder) typeFor(t reflect.Type) (*cql.Type, *PersistentEntity, error) {
	t = indirect(t)

	switch t {
	case timeType:
		return cql.Native(datatype.Timestamp), nil, nil
	case uuidType, gocqlUUIDType:
		return cql.Native(datatype.Uuid), nil, nil
	case ipType:
		return cql.Native(datatype.Inet), nil, nil
	case bytesType:
		return cql.Native(datatype.Blob), nil, nil
	}

	switch t.Kind() {
	case reflect.String:
		return cql.Native(datatype.Varchar), nil, nil
	case reflect.Bool:
		return cql.Native(datatype.Boolean), nil, nil
	case reflect.Int, reflect.Int64:
		return cql.Native(datatype.Bigint), nil, nil
	case reflect.Int32:
		return cql.Native(datatype.Int), nil, nil
	case reflect.Int16:
		return cql.Native(datatype.Smallint), nil, nil
	case reflect.Int8:
		return cql.Native(datatype.Tinyint), nil, nil
	case reflect.Float32:
		return cql.Native(datatype.Float), nil, nil
	case reflect.Float64:
		return cql.Native(datatype.Double), nil, nil
	case reflect.Slice, reflect.Array:
		elem, _, err := b.typeFor(t.Elem())
		if err != nil {
			return nil, nil, err
		}
		return cql.ListOf(elem), nil, nil
	case reflect.Map:
		key, _, err := b.typeFor(t.Key())
		if err != nil {
			return nil, nil, err
		}
		if t.Elem() == emptyStruct {
			return cql.SetOf(key), nil, nil
		}
		value, _, err := b.typeFor(t.Elem())
		if err != nil {
			return nil, nil, err
		}
		return cql.MapOf(key, value), nil, nil
	case reflect.Struct:
		udt, err := b.userTypeFor(t)
		if err != nil {
			return nil, nil, err
		}
		return cql.UserTypeRef(udt.TypeName()), udt, nil
	}

	return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// userTypeFor returns the UDT entity for t, registering it on first use when
// the type carries a marker.
func (b *builder) userTypeFor(t reflect.Type) (*PersistentEntity, error) {
	if entity, ok := b.entityOf(t); ok {
		if !entity.IsUserDefinedType() {
			return nil, fmt.Errorf("%w: %s is mapped as a table, not a user-defined type", ErrUnsupportedType, t)
		}
		return entity, nil
	}

	marker, ok := b.markerOf(t)
	if !ok {
		marker, ok = markerFor(t)
	}
	if !ok {
		return nil, fmt.Errorf("%w: struct %s is not a user-defined type", ErrUnsupportedType, t)
	}

	return b.registerUserType(t, marker)
}

func (b *builder) registerUserType(t reflect.Type, marker UserDefinedType) (*PersistentEntity, error) {
	typeName, err := marker.TypeName(t.Name())
	if err != nil {
		return nil, err
	}

	entity, err := b.buildEntity(t, typeName, true, marker)
	if err != nil {
		return nil, err
	}

	if err := b.stage(entity); err != nil {
		return nil, err
	}
	return entity, nil
}
