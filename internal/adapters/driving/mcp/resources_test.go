package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/services"
)

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestExtractSourceID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid source URI",
			uri:      "fundlink://sources/src_0123",
			expected: "src_0123",
		},
		{
			name:     "invalid prefix",
			uri:      "file://sources/src_0123",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "fundlink://sources/src_0123/extra",
			expected: "",
		},
		{
			name:     "missing id",
			uri:      "fundlink://sources/",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractSourceID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func newTrackedPorts() (*Ports, string) {
	tracker := services.NewSourceTracker(nil)
	id := tracker.AddSource("https://www.sbimf.com/bluechip", "SBI Mutual Fund", "Bluechip", domain.SourceTypeAMC)
	ports := newTestPorts()
	ports.Sources = tracker
	return ports, id
}

func TestServer_handleSourcesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil tracker returns empty list", func(t *testing.T) {
		server, err := NewServer(newTestPorts())
		require.NoError(t, err)

		result, err := server.handleSourcesResource(ctx, makeReadResourceRequest("fundlink://sources"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns tracked sources", func(t *testing.T) {
		ports, id := newTrackedPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleSourcesResource(ctx, makeReadResourceRequest("fundlink://sources"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, id)
		assert.Contains(t, result.Contents[0].Text, "SBI Mutual Fund")
	})
}

func TestServer_handleSourceResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil tracker returns not found", func(t *testing.T) {
		server, err := NewServer(newTestPorts())
		require.NoError(t, err)

		_, err = server.handleSourceResource(ctx, makeReadResourceRequest("fundlink://sources/src_1"))
		require.Error(t, err)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		ports, _ := newTrackedPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleSourceResource(ctx, makeReadResourceRequest("fundlink://sources/src_missing"))
		require.Error(t, err)
	})

	t.Run("returns the source", func(t *testing.T) {
		ports, id := newTrackedPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleSourceResource(ctx, makeReadResourceRequest("fundlink://sources/"+id))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "https://www.sbimf.com/bluechip")
		assert.Contains(t, result.Contents[0].Text, `"source_type": "amc"`)
	})
}

func TestServer_handleCatalogResource(t *testing.T) {
	server, err := NewServer(newTestPorts())
	require.NoError(t, err)

	result, err := server.handleCatalogResource(context.Background(), makeReadResourceRequest("fundlink://catalog"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Contains(t, result.Contents[0].Text, `"category_key": "expense_ratio"`)
	assert.Contains(t, result.Contents[0].Text, "groww.in")
}
