package driving

import "github.com/custodia-labs/fundlink/internal/core/domain"

// LinkResolver maps content to the platform's canonical pages.
// Methods returning a string return "" where no value exists.
type LinkResolver interface {
	// IsPlatformURL reports whether url belongs to the platform domain.
	IsPlatformURL(url string) bool

	// IdentifyInfoCategory returns the first category in priority order
	// whose keywords occur in text.
	IdentifyInfoCategory(text string) string

	// ExtractFundSlug parses a fund slug from a platform URL.
	ExtractFundSlug(url string) string

	// ExtractAMCSlug parses an AMC slug from a platform URL.
	ExtractAMCSlug(url string) string

	// AMCSlugForName looks up the slug for an AMC name, ignoring case.
	AMCSlugForName(amcName string) string

	// BuildURL fills a category's template. Categories that are not on the
	// platform always yield "".
	BuildURL(categoryKey, fundSlug, amcSlug string) string

	// Resolve returns the canonical platform link for a chunk.
	Resolve(chunk domain.Chunk) string

	// Priority orders the links to show for an answer.
	Priority(query string, chunk domain.Chunk, resolvedURL string) (primary, secondary string)

	// FallbackMessage is user-facing guidance pointing at url.
	FallbackMessage(categoryKey, url string) string

	// MappingStatistics summarises how many chunks carry a platform link.
	MappingStatistics(chunks []domain.Chunk) domain.MappingStatistics

	// Catalog returns the knowledge base in use.
	Catalog() domain.Catalog
}
