package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for fundlink resources.
	uriScheme = "fundlink://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "All tracked source URLs with their validation status",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}",
		Name:        "source",
		Description: "One tracked source by ID",
		MIMEType:    "application/json",
	}, s.handleSourceResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "catalog",
		Name:        "catalog",
		Description: "Information categories and platform link templates",
		MIMEType:    "application/json",
	}, s.handleCatalogResource)
}

// handleSourcesResource returns every tracked source.
func (s *Server) handleSourcesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sources == nil {
		return jsonResource(req.Params.URI, []any{})
	}
	return jsonResource(req.Params.URI, s.ports.Sources.AllSources(""))
}

// handleSourceResource returns a single source.
func (s *Server) handleSourceResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sources == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractSourceID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rec := s.ports.Sources.GetSourceByID(id)
	if rec == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, rec)
}

// handleCatalogResource returns the resolver's catalog.
func (s *Server) handleCatalogResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.ports.Resolver.Catalog())
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSourceID extracts the source ID from a URI like fundlink://sources/{sourceId}.
func extractSourceID(uri string) string {
	const prefix = uriScheme + "sources/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
