package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqlkit/cqlmap/internal/server"
)

func stubRunServer(t *testing.T) **server.Server {
	t.Helper()
	var captured *server.Server
	original := runServer
	runServer = func(_ context.Context, srv *server.Server) error {
		captured = srv
		return nil
	}
	t.Cleanup(func() { runServer = original })
	return &captured
}

func TestServeCommand_Offline(t *testing.T) {
	path := writeConfig(t)
	captured := stubRunServer(t)

	_, _, err := execute(t, "--config", path, "serve", "--offline", "--address", "127.0.0.1:0")
	require.NoError(t, err)
	require.NotNil(t, *captured)
	assert.Equal(t, "127.0.0.1:0", (*captured).Addr())
}

func TestServeCommand_ConnectsResolver(t *testing.T) {
	path := writeConfig(t)
	captured := stubRunServer(t)
	released := stubResolver(t, &metadataSource{})

	_, _, err := execute(t, "--config", path, "serve")
	require.NoError(t, err)
	require.NotNil(t, *captured)
	assert.Equal(t, ":9464", (*captured).Addr())
	assert.Equal(t, 1, *released)
}
