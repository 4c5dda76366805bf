// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline, vector index, source tracker and link resolver
// live here. Services are pure Go with no CGO or external dependencies
// beyond the ports they are constructed with.
package services
