// Package mcp provides an MCP (Model Context Protocol) server adapter for
// fundlink. It lets AI assistants query the fund index and resolve
// platform links.
package mcp

import "errors"

var (
	// ErrMissingIndex is returned when the vector index is not provided.
	ErrMissingIndex = errors.New("mcp: vector index is required")

	// ErrMissingResolver is returned when the link resolver is not provided.
	ErrMissingResolver = errors.New("mcp: link resolver is required")
)
