package services

import (
	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
)

// Cite chooses the links to present for one query result. The stored
// platform link is used when present; otherwise the chunk is resolved
// again against the current catalog.
func Cite(resolver driving.LinkResolver, query string, result domain.QueryResult) domain.Citation {
	chunk := result.Chunk()

	resolved := chunk.PlatformURL
	if resolved == "" {
		resolved = resolver.Resolve(chunk)
	}

	category := resolver.IdentifyInfoCategory(query)
	if category == "" {
		category = resolver.IdentifyInfoCategory(chunk.Content)
	}

	primary, secondary := resolver.Priority(query, chunk, resolved)
	return domain.Citation{
		Category:  category,
		Primary:   primary,
		Secondary: secondary,
		Message:   resolver.FallbackMessage(category, primary),
	}
}
