// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Chunker: Splits processed documents into chunks
//   - VectorEngine: Physical vector storage and similarity search
//   - SourceStore: Source ledger persistence
//   - ArtifactStore: Stage artifact persistence for resumable runs
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Scraper: Fetches pages. Without it, runs must resume from a saved artifact.
//   - Cleaner: HTML-to-text extraction. Without it, content passes through as-is.
//   - EmbeddingService: Generates vectors. Without it, only explicit-embedding queries work.
//   - URLProber: Source reachability checks. Without it, validation marks sources inaccessible.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
