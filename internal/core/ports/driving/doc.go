// Package driving defines the operations the CLI and MCP adapters call on
// the core: LinkResolver, SourceTracker, VectorIndex, IngestionPipeline and
// SettingsService.
//
// Implementations live in internal/core/services.
package driving
