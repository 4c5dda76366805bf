// Package domain defines the core business entities for fundlink.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ScrapedDocument / ProcessedDocument: Pages before and after cleaning
//   - Chunk: A retrievable unit of document text
//   - SourceRecord: A deduplicated ledger entry for one source URL
//   - InfoCategory / Catalog: The platform link knowledge base
//   - PipelineStats / Stage: Ingestion run bookkeeping
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
