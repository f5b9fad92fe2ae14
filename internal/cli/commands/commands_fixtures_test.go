package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/cli/config"
	"github.com/cqlkit/cqlmap/internal/mapping"
)

const testConfig = `
cassandra:
  hosts: [127.0.0.1]
  keyspace: shop
logging:
  level: error
user_types:
  - name: GeoPoint
    properties:
      - {name: lat, type: double}
      - {name: lng, type: double}
  - name: Address
    table: Address
    force_quote: true
    properties:
      - {name: street, type: text}
      - {name: zipCode, type: text}
      - {name: location, type: frozen<geo_point>}
entities:
  - name: Person
    properties:
      - {name: id, type: uuid, key: partition}
      - {name: lastName, type: text, key: clustering}
      - {name: firstName, type: text}
      - {name: age, type: int}
      - {name: address, type: 'frozen<"Address">'}
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))
	return path
}

// execute runs the root command with args and captures its output
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// metadataSource serves keyspace metadata from memory
type metadataSource struct {
	keyspace *gocql.KeyspaceMetadata
}

func (m *metadataSource) KeyspaceMetadata(string) (*gocql.KeyspaceMetadata, error) {
	if m.keyspace == nil {
		return nil, gocql.ErrKeyspaceDoesNotExist
	}
	return m.keyspace, nil
}

func (m *metadataSource) add(name string, fields ...string) {
	if m.keyspace == nil {
		m.keyspace = &gocql.KeyspaceMetadata{Name: "shop", UserTypes: map[string]*gocql.UserTypeMetadata{}}
	}
	m.keyspace.UserTypes[name] = &gocql.UserTypeMetadata{Keyspace: "shop", Name: name, FieldNames: fields}
}

// stubResolver swaps the cluster connection for source
func stubResolver(t *testing.T, source *metadataSource) *int {
	t.Helper()
	released := new(int)
	original := newResolver
	newResolver = func(_ context.Context, cfg *config.Config, logger *zap.Logger, opts ...mapping.ResolverOption) (mapping.UserTypeResolver, func(), error) {
		r, err := mapping.NewSimpleUserTypeResolver(source, cfg.Cassandra.Keyspace, opts...)
		return r, func() { *released++ }, err
	}
	t.Cleanup(func() { newResolver = original })
	return released
}
