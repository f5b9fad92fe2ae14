package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/mapping"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
}

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config to be non-nil")
	}

	// Check defaults
	if len(cfg.Cassandra.Hosts) != 1 || cfg.Cassandra.Hosts[0] != "127.0.0.1" {
		t.Errorf("expected default hosts [127.0.0.1], got %v", cfg.Cassandra.Hosts)
	}

	if cfg.Cassandra.Timeout != 5*time.Second {
		t.Errorf("expected default timeout 5s, got %s", cfg.Cassandra.Timeout)
	}

	if cfg.Cassandra.Consistency != "quorum" {
		t.Errorf("expected default consistency 'quorum', got %s", cfg.Cassandra.Consistency)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected default level 'info', got %s", cfg.Logging.Level)
	}

	if cfg.Server.Address != ":9464" {
		t.Errorf("expected default address ':9464', got %s", cfg.Server.Address)
	}
}

const shopConfig = `
cassandra:
  hosts: [cass-1, cass-2]
  keyspace: shop
  timeout: 10s
  consistency: local_quorum
logging:
  level: debug
server:
  address: 127.0.0.1:8080
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
    table: people
    properties:
      - {name: id, type: uuid, key: partition}
      - {name: lastName, type: text, key: clustering}
      - {name: firstName, type: text}
      - {name: address, type: 'frozen<"Address">'}
`

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte(shopConfig), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"cass-1", "cass-2"}, cfg.Cassandra.Hosts)
	assert.Equal(t, "shop", cfg.Cassandra.Keyspace)
	assert.Equal(t, 10*time.Second, cfg.Cassandra.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Address)
	require.Len(t, cfg.UserTypes, 2)
	assert.True(t, cfg.UserTypes[1].ForceQuote)
	require.Len(t, cfg.Entities, 1)
	assert.Equal(t, "people", cfg.Entities[0].Table)
	assert.Equal(t, "partition", cfg.Entities[0].Properties[0].Key)

	cluster := cfg.ClusterConfig()
	assert.Equal(t, "shop", cluster.Keyspace)
	assert.Equal(t, "local_quorum", cluster.Consistency)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopConfig), 0644))

	t.Setenv("CQLMAP_CASSANDRA_KEYSPACE", "inventory")
	t.Setenv("CQLMAP_LOGGING_LEVEL", "warn")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "inventory", cfg.Cassandra.Keyspace)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad level",
			content: "logging:\n  level: loud\n",
			wantErr: "logging.level",
		},
		{
			name:    "bad consistency",
			content: "cassandra:\n  consistency: most\n",
			wantErr: "cassandra.consistency",
		},
		{
			name:    "negative timeout",
			content: "cassandra:\n  timeout: -1s\n",
			wantErr: "cassandra.timeout",
		},
		{
			name:    "duplicate names",
			content: "entities:\n  - {name: A, properties: [{name: x, type: int}]}\n  - {name: A, properties: [{name: y, type: int}]}\n",
			wantErr: "duplicate name A",
		},
		{
			name:    "entity without properties",
			content: "user_types:\n  - name: Empty\n",
			wantErr: "declares no properties",
		},
		{
			name:    "missing name",
			content: "entities:\n  - table: t\n    properties: [{name: x, type: int}]\n",
			wantErr: "name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMappingContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(shopConfig), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	mc, err := cfg.MappingContext(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "shop", mc.Keyspace().ToCql())

	address, ok := mc.Entity("Address")
	require.True(t, ok)
	assert.True(t, address.IsUserDefinedType())
	assert.Equal(t, `"Address"`, address.TypeName().ToCql())

	person, ok := mc.Entity("Person")
	require.True(t, ok)
	assert.Equal(t, "people", person.TableName().ToCql())

	path2, err := person.PropertyPath("address.zipCode")
	require.NoError(t, err)
	assert.Equal(t, "address.zip_code", mapping.ColumnPath(path2))
}

func TestMappingContext_UnknownUserType(t *testing.T) {
	cfg := &Config{
		Entities: []EntityConfig{{
			Name:       "Person",
			Properties: []PropertyConfig{{Name: "home", Type: "frozen<address>"}},
		}},
	}

	_, err := cfg.MappingContext(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, mapping.ErrEntityNotFound)
}

func TestSaveAndExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(dir))

	cfg := &Config{
		Cassandra: CassandraConfig{Hosts: []string{"db"}, Keyspace: "shop", Timeout: 3 * time.Second, Consistency: "one"},
		Logging:   LoggingConfig{Level: "info"},
		Server:    ServerConfig{Address: ":9000"},
	}
	path := filepath.Join(dir, FileName)
	require.NoError(t, Save(cfg, path))
	assert.True(t, Exists(dir))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Cassandra, loaded.Cassandra)
	assert.Equal(t, ":9000", loaded.Server.Address)
}
