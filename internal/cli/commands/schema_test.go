package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCommand(t *testing.T) {
	path := writeConfig(t)

	out, _, err := execute(t, "--config", path, "schema")
	require.NoError(t, err)

	expected := `CREATE TYPE IF NOT EXISTS shop.geo_point (
    lat double,
    lng double
);

CREATE TYPE IF NOT EXISTS shop."Address" (
    street text,
    zip_code text,
    location frozen<geo_point>
);
`
	assert.Equal(t, expected, out)
}

func TestSchemaCommand_NoUserTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cqlmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cassandra:\n  keyspace: shop\n"), 0644))

	out, stderr, err := execute(t, "--config", path, "schema")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
	assert.Contains(t, stderr, "no user types declared")
}
