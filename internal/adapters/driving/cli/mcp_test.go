package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServe_Flags(t *testing.T) {
	port := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.Equal(t, "0", port.DefValue)

	host := mcpServeCmd.Flags().Lookup("host")
	require.NotNil(t, host)
	assert.Equal(t, "localhost", host.DefValue)
}

func TestMCPServe_InvalidPort(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "mcp", "serve", "--port", "70000")

	assert.ErrorContains(t, err, "invalid port 70000")
}

func TestMCPServe_RequiresIndex(t *testing.T) {
	setupTestServices(t)
	svc.Index = nil

	_, err := execute(t, "mcp", "serve", "--port", "8080")

	assert.ErrorContains(t, err, "vector index not configured")
}
