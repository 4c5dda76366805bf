// Package postprocessors builds chunkers from configuration.
package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// BuilderFunc creates a Chunker from generic config.
// Config is a map of chunker settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.Chunker, error)

// Registry maps chunking strategy names to their builders.
// It allows dynamic construction of chunkers from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new chunker registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a builder to the registry.
// Name should match the chunker's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a chunker by strategy name with the given config.
// Returns error if the name is not registered.
func (r *Registry) Build(name string, cfg map[string]any) (driven.Chunker, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown chunking strategy: %s", name)
	}
	return builder(cfg)
}

// Has returns true if a builder with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered strategy names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
