package mcp

import (
	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Index answers similarity queries.
	Index driving.VectorIndex

	// Resolver maps content to platform links.
	Resolver driving.LinkResolver

	// Sources exposes the source ledger. Optional.
	Sources driving.SourceTracker

	// Pipeline reports the last ingestion run. Optional.
	Pipeline driving.IngestionPipeline
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Index == nil {
		return ErrMissingIndex
	}
	if p.Resolver == nil {
		return ErrMissingResolver
	}
	return nil
}
