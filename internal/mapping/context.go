// Package mapping maps Go types onto Cassandra tables and user-defined types,
// and resolves user-defined type definitions from live keyspace metadata.
package mapping

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/logging"
	utilstrings "github.com/cqlkit/cqlmap/internal/util/strings"
)

// Context is the registry of mapped entities and user-defined types. It is
// populated at startup and safe for concurrent reads afterwards.
type Context struct {
	mu       sync.RWMutex
	entities map[string]*PersistentEntity
	byType   map[reflect.Type]*PersistentEntity
	markers  map[reflect.Type]UserDefinedType
	keyspace cql.Identifier
	logger   *zap.Logger
}

// ContextOption configures a Context
type ContextOption func(*Context)

// WithKeyspace qualifies table and type names with keyspace
func WithKeyspace(keyspace cql.Identifier) ContextOption {
	return func(c *Context) {
		c.keyspace = keyspace
	}
}

// WithLogger sets the logger used for registration events
func WithLogger(logger *zap.Logger) ContextOption {
	return func(c *Context) {
		c.logger = logging.OrNop(logger)
	}
}

// NewContext creates an empty mapping context
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		entities: make(map[string]*PersistentEntity),
		byType:   make(map[reflect.Type]*PersistentEntity),
		markers:  make(map[reflect.Type]UserDefinedType),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keyspace returns the keyspace names are qualified with, possibly zero
func (c *Context) Keyspace() cql.Identifier {
	return c.keyspace
}

// EntityOption configures a table entity registration
type EntityOption func(*entityOptions)

type entityOptions struct {
	table string
}

// WithTable overrides the table name derived from the type name
func WithTable(name string) EntityOption {
	return func(o *entityOptions) {
		o.table = name
	}
}

// RegisterEntity maps a struct type (given by a sample value or pointer) to a table.
// Properties referring to user-defined types register those types as well.
func (c *Context) RegisterEntity(sample any, opts ...EntityOption) (*PersistentEntity, error) {
	t, err := structType(sample)
	if err != nil {
		return nil, err
	}

	options := &entityOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.table == "" {
		options.table = utilstrings.ToSnakeCase(t.Name())
	}
	table, err := cql.Of(options.table)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byType[t]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, t)
	}

	b := newBuilder(c)
	entity, err := b.buildEntity(t, table, false, UserDefinedType{})
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", t, err)
	}
	if err := b.stage(entity); err != nil {
		return nil, err
	}
	b.commit()

	c.logger.Debug("registered entity",
		zap.String("entity", entity.Name()),
		zap.String("table", entity.TableName().ToCql()),
		zap.Int("properties", len(entity.properties)))
	return entity, nil
}

// RegisterUserType marks a struct type as a user-defined type and maps it.
// This is the registration-table form of the UDT marker.
func (c *Context) RegisterUserType(sample any, marker UserDefinedType) (*PersistentEntity, error) {
	t, err := structType(sample)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.byType[t]; exists {
		if existing.IsUserDefinedType() && existing.marker == marker {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, t)
	}

	b := newBuilder(c)
	b.markers[t] = marker
	entity, err := b.registerUserType(t, marker)
	if err != nil {
		return nil, fmt.Errorf("failed to map user type %s: %w", t, err)
	}
	b.commit()

	c.logger.Debug("registered user type",
		zap.String("entity", entity.Name()),
		zap.String("type", entity.TypeName().ToCql()),
		zap.Bool("force_quote", marker.ForceQuote))
	return entity, nil
}

// store adds entity to the registry. Caller holds the write lock.
func (c *Context) store(entity *PersistentEntity) error {
	if _, exists := c.entities[entity.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, entity.Name())
	}
	c.entities[entity.Name()] = entity
	if entity.goType != nil {
		c.byType[entity.goType] = entity
	}
	return nil
}

// Entity retrieves an entity by name
func (c *Context) Entity(name string) (*PersistentEntity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entity, ok := c.entities[name]
	return entity, ok
}

// EntityOf retrieves the entity mapped for a Go type
func (c *Context) EntityOf(t reflect.Type) (*PersistentEntity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entity, ok := c.byType[indirect(t)]
	return entity, ok
}

// UserTypeMarker returns the UDT marker recorded for a Go type
func (c *Context) UserTypeMarker(t reflect.Type) (UserDefinedType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	marker, ok := c.markers[indirect(t)]
	return marker, ok
}

// Entities returns all table entities sorted by name
func (c *Context) Entities() []*PersistentEntity {
	return c.list(false)
}

// UserTypes returns all user-defined types, nested types before the types
// that contain them.
func (c *Context) UserTypes() []*PersistentEntity {
	types := c.list(true)

	byName := make(map[string]*PersistentEntity, len(types))
	for _, e := range types {
		byName[e.TypeName().Unquoted()] = e
	}

	ordered := make([]*PersistentEntity, 0, len(types))
	seen := make(map[*PersistentEntity]bool, len(types))
	var visit func(e *PersistentEntity)
	visit = func(e *PersistentEntity) {
		if seen[e] {
			return
		}
		seen[e] = true
		for _, p := range e.properties {
			for _, name := range referencedUserTypes(p.Type) {
				if nested, ok := byName[name]; ok {
					visit(nested)
				}
			}
		}
		ordered = append(ordered, e)
	}
	for _, e := range types {
		visit(e)
	}
	return ordered
}

// referencedUserTypes lists the UDT names a type refers to, including those
// nested in collections
func referencedUserTypes(t *cql.Type) []string {
	if t == nil {
		return nil
	}
	switch {
	case t.IsUserType():
		return []string{t.UserType().Unquoted()}
	case t.IsCollection():
		refs := referencedUserTypes(t.Elem())
		refs = append(refs, referencedUserTypes(t.Key())...)
		return append(refs, referencedUserTypes(t.Value())...)
	default:
		return nil
	}
}

func (c *Context) list(userTypes bool) []*PersistentEntity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*PersistentEntity, 0, len(c.entities))
	for _, e := range c.entities {
		if e.IsUserDefinedType() == userTypes {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// VerifyUserTypes checks every registered user-defined type against the
// keyspace: the type must exist and declare every mapped field. Fields whose
// type is known from metadata must match the mapped CQL type.
func (c *Context) VerifyUserTypes(resolver UserTypeResolver) error {
	if isNil(resolver) {
		return fmt.Errorf("%w: resolver must not be nil", ErrInvalidArgument)
	}

	var errs []error
	for _, entity := range c.UserTypes() {
		udt, found, err := resolver.ResolveType(entity.TypeName())
		if err != nil {
			errs = append(errs, fmt.Errorf("resolving %s: %w", entity.TypeName(), err))
			continue
		}
		if !found {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUserTypeNotFound, entity.TypeName()))
			continue
		}

		fields := make(map[string]gocql.TypeInfo, len(udt.FieldNames))
		for i, name := range udt.FieldNames {
			var info gocql.TypeInfo
			if i < len(udt.FieldTypes) {
				info = udt.FieldTypes[i]
			}
			fields[name] = info
		}
		for _, p := range entity.properties {
			info, ok := fields[p.Column.Unquoted()]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s has no field %s",
					ErrUserTypeMismatch, entity.TypeName(), p.Column))
				continue
			}
			if info == nil {
				continue
			}
			actual, err := protocolType(info)
			if err != nil {
				c.logger.Debug("skipping field type check",
					zap.Stringer("type", entity.TypeName()),
					zap.String("field", p.Column.Unquoted()),
					zap.Error(err))
				continue
			}
			if !cql.SameDataType(p.Type.DataType(), actual) {
				errs = append(errs, fmt.Errorf("%w: %s.%s is %s in the keyspace, mapped as %s",
					ErrUserTypeMismatch, entity.TypeName(), p.Column, actual.AsCql(), p.Type))
			}
		}
	}

	return errors.Join(errs...)
}

func structType(sample any) (reflect.Type, error) {
	if sample == nil {
		return nil, fmt.Errorf("%w: sample must not be nil", ErrInvalidArgument)
	}
	var t reflect.Type
	if rt, ok := sample.(reflect.Type); ok {
		t = indirect(rt)
	} else {
		t = indirect(reflect.TypeOf(sample))
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrUnsupportedType, t)
	}
	return t, nil
}
