package mapping

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/logging"
	"github.com/cqlkit/cqlmap/internal/metrics"
)

// KeyspaceMetadataSource exposes live keyspace metadata. *gocql.Session
// satisfies it; the driver refreshes the metadata on schema changes.
type KeyspaceMetadataSource interface {
	KeyspaceMetadata(keyspace string) (*gocql.KeyspaceMetadata, error)
}

// UserTypeResolver resolves user-defined types by name.
// found is false when the keyspace or the type does not exist.
type UserTypeResolver interface {
	ResolveType(typeName cql.Identifier) (udt *gocql.UserTypeMetadata, found bool, err error)
}

// SimpleUserTypeResolver resolves user-defined types from the metadata of a
// single keyspace. Every call reads the current metadata; nothing is cached,
// so types created or altered after construction are visible immediately.
type SimpleUserTypeResolver struct {
	source   KeyspaceMetadataSource
	keyspace string
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// ResolverOption configures a SimpleUserTypeResolver
type ResolverOption func(*SimpleUserTypeResolver)

// WithResolverLogger sets the resolver's logger
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *SimpleUserTypeResolver) {
		r.logger = logging.OrNop(logger)
	}
}

// WithResolverMetrics records every resolution outcome
func WithResolverMetrics(m *metrics.Collector) ResolverOption {
	return func(r *SimpleUserTypeResolver) {
		r.metrics = m
	}
}

// NewSimpleUserTypeResolver creates a resolver for keyspace.
// source must not be nil and keyspace must not be blank.
func NewSimpleUserTypeResolver(source KeyspaceMetadataSource, keyspace string, opts ...ResolverOption) (*SimpleUserTypeResolver, error) {
	if isNil(source) {
		return nil, fmt.Errorf("%w: metadata source must not be nil", ErrInvalidArgument)
	}
	if strings.TrimSpace(keyspace) == "" {
		return nil, fmt.Errorf("%w: keyspace must not be blank", ErrInvalidArgument)
	}

	r := &SimpleUserTypeResolver{
		source:   source,
		keyspace: keyspace,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Keyspace returns the keyspace the resolver reads from
func (r *SimpleUserTypeResolver) Keyspace() string {
	return r.keyspace
}

// ResolveType looks the type up in the keyspace's current metadata
func (r *SimpleUserTypeResolver) ResolveType(typeName cql.Identifier) (*gocql.UserTypeMetadata, bool, error) {
	if typeName.IsZero() {
		return nil, false, fmt.Errorf("%w: type name must not be blank", ErrInvalidArgument)
	}

	keyspace, err := r.source.KeyspaceMetadata(r.keyspace)
	if err != nil {
		if errors.Is(err, gocql.ErrKeyspaceDoesNotExist) {
			r.absent(typeName, "keyspace does not exist")
			return nil, false, nil
		}
		r.metrics.RecordUserTypeResolution(metrics.OutcomeError)
		return nil, false, fmt.Errorf("reading metadata of keyspace %s: %w", r.keyspace, err)
	}
	if keyspace == nil {
		r.absent(typeName, "keyspace does not exist")
		return nil, false, nil
	}

	udt, ok := keyspace.UserTypes[typeName.Unquoted()]
	if !ok || udt == nil {
		r.absent(typeName, "type not declared")
		return nil, false, nil
	}

	r.metrics.RecordUserTypeResolution(metrics.OutcomeFound)
	r.logger.Debug("resolved user type",
		zap.String("keyspace", r.keyspace),
		zap.String("type", typeName.ToCql()),
		zap.Int("fields", len(udt.FieldNames)))
	return udt, true, nil
}

func (r *SimpleUserTypeResolver) absent(typeName cql.Identifier, reason string) {
	r.metrics.RecordUserTypeResolution(metrics.OutcomeAbsent)
	r.logger.Debug("user type not found",
		zap.String("keyspace", r.keyspace),
		zap.String("type", typeName.ToCql()),
		zap.String("reason", reason))
}

// isNil also catches a nil pointer stored in an interface
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
