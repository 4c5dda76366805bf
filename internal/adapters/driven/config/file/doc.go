// Package file provides file-based configuration adapters.
//
// Adapters:
//   - ConfigStore: TOML settings at ~/.fundlink/config.toml
//   - LoadCatalog: YAML override of the link resolver's knowledge base
package file
