// Package sqlite provides SQLite-backed implementations of driven port
// interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. One database file hosts:
//
//   - SourceStore: the source tracker's ledger (sources + content links)
//   - VectorEngine: chunk embeddings with brute-force cosine search
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.fundlink/data/fundlink.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
