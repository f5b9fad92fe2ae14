package mapping

import (
	"errors"
	"sync"
	"testing"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/metrics"
)

func TestNewSimpleUserTypeResolver_Validation(t *testing.T) {
	tests := []struct {
		name     string
		source   KeyspaceMetadataSource
		keyspace string
		wantErr  bool
	}{
		{"valid", newFakeMetadataSource(), "shop", false},
		{"nil source", nil, "shop", true},
		{"nil session", (*gocql.Session)(nil), "shop", true},
		{"nil fake", (*fakeMetadataSource)(nil), "shop", true},
		{"empty keyspace", newFakeMetadataSource(), "", true},
		{"blank keyspace", newFakeMetadataSource(), "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, err := NewSimpleUserTypeResolver(tt.source, tt.keyspace)
			if tt.wantErr {
				assert.True(t, IsInvalidArgument(err))
				assert.Nil(t, resolver)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.keyspace, resolver.Keyspace())
		})
	}
}

func TestResolveType_Found(t *testing.T) {
	source := newFakeMetadataSource()
	source.addUserType("shop", "address", "street", "city")
	source.addUserType("shop", "Address", "line1")

	resolver, err := NewSimpleUserTypeResolver(source, "shop", WithResolverLogger(zap.NewNop()))
	require.NoError(t, err)

	udt, found, err := resolver.ResolveType(cql.MustOf("address"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "address", udt.Name)
	assert.Equal(t, []string{"street", "city"}, udt.FieldNames)

	// quoted identifiers keep their case
	quoted, err := cql.Quoted("Address")
	require.NoError(t, err)
	udt, found, err = resolver.ResolveType(quoted)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"line1"}, udt.FieldNames)
}

func TestResolveType_Absent(t *testing.T) {
	source := newFakeMetadataSource()
	source.addUserType("shop", "address", "street")

	resolver, err := NewSimpleUserTypeResolver(source, "shop")
	require.NoError(t, err)

	udt, found, err := resolver.ResolveType(cql.MustOf("phone"))
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, udt)

	// keyspace dropped after construction
	source.dropKeyspace("shop")
	udt, found, err = resolver.ResolveType(cql.MustOf("address"))
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, udt)
}

func TestResolveType_NilKeyspaceMetadata(t *testing.T) {
	resolver, err := NewSimpleUserTypeResolver(nilMetadataSource{}, "shop")
	require.NoError(t, err)

	_, found, err := resolver.ResolveType(cql.MustOf("address"))
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestResolveType_NoCaching(t *testing.T) {
	source := newFakeMetadataSource()
	source.addUserType("shop", "address", "street")

	resolver, err := NewSimpleUserTypeResolver(source, "shop")
	require.NoError(t, err)

	_, found, err := resolver.ResolveType(cql.MustOf("phone"))
	require.NoError(t, err)
	assert.False(t, found)

	source.addUserType("shop", "phone", "number")

	udt, found, err := resolver.ResolveType(cql.MustOf("phone"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "phone", udt.Name)
	assert.Equal(t, 2, source.calls)
}

func TestResolveType_TransportError(t *testing.T) {
	source := newFakeMetadataSource()
	source.err = errors.New("connection refused")

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	resolver, err := NewSimpleUserTypeResolver(source, "shop", WithResolverMetrics(m))
	require.NoError(t, err)

	_, found, err := resolver.ResolveType(cql.MustOf("address"))
	assert.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "shop")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UserTypeResolutions.WithLabelValues(metrics.OutcomeError)))
}

func TestResolveType_BlankName(t *testing.T) {
	resolver, err := NewSimpleUserTypeResolver(newFakeMetadataSource(), "shop")
	require.NoError(t, err)

	_, _, err = resolver.ResolveType(cql.Identifier{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResolveType_Metrics(t *testing.T) {
	source := newFakeMetadataSource()
	source.addUserType("shop", "address", "street")

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	resolver, err := NewSimpleUserTypeResolver(source, "shop", WithResolverMetrics(m))
	require.NoError(t, err)

	_, _, _ = resolver.ResolveType(cql.MustOf("address"))
	_, _, _ = resolver.ResolveType(cql.MustOf("missing"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UserTypeResolutions.WithLabelValues(metrics.OutcomeFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UserTypeResolutions.WithLabelValues(metrics.OutcomeAbsent)))
}

func TestResolveType_Concurrent(t *testing.T) {
	source := newFakeMetadataSource()
	source.addUserType("shop", "address", "street")

	resolver, err := NewSimpleUserTypeResolver(source, "shop")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, found, err := resolver.ResolveType(cql.MustOf("address"))
			assert.NoError(t, err)
			assert.True(t, found)
		}()
	}
	wg.Wait()
}
