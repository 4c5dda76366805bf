package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
)

// Ensure LinkResolver implements the interface.
var _ driving.LinkResolver = (*LinkResolver)(nil)

// fundsPathRoot is the first path segment of every fund or AMC page.
const fundsPathRoot = "mutual-funds"

// slugPattern is the accepted shape of fund and AMC slugs.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Path segments under /mutual-funds/ that are sections, not funds.
var reservedSegments = map[string]struct{}{
	"amc":  {},
	"top":  {},
	"user": {},
}

// LinkResolver maps chunks to canonical platform pages using a static catalog.
// It holds no mutable state and is safe for concurrent use.
type LinkResolver struct {
	catalog    domain.Catalog
	slugByName map[string]string
}

// NewLinkResolver creates a resolver over catalog.
func NewLinkResolver(catalog domain.Catalog) *LinkResolver {
	slugs := make(map[string]string, len(catalog.AMCSlugs))
	for name, slug := range catalog.AMCSlugs {
		slugs[normalizeName(name)] = slug
	}
	return &LinkResolver{
		catalog:    catalog,
		slugByName: slugs,
	}
}

// Catalog returns the knowledge base in use.
func (r *LinkResolver) Catalog() domain.Catalog {
	return r.catalog
}

// IsPlatformURL reports whether u is on the platform domain or a subdomain.
func (r *LinkResolver) IsPlatformURL(u string) bool {
	return domain.HostMatches(domain.URLHost(u), r.catalog.Platform.Domain)
}

// IdentifyInfoCategory returns the first category, in priority order,
// with a keyword present in text.
func (r *LinkResolver) IdentifyInfoCategory(text string) string {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return ""
	}
	for _, cat := range r.catalog.Categories {
		if cat.Matches(lowered) {
			return cat.Key
		}
	}
	return ""
}

// ExtractFundSlug returns <slug> for platform URLs of the form
// /mutual-funds/<slug>, or "".
func (r *LinkResolver) ExtractFundSlug(u string) string {
	segs := r.platformPath(u)
	if len(segs) < 2 || segs[0] != fundsPathRoot {
		return ""
	}
	if _, reserved := reservedSegments[segs[1]]; reserved {
		return ""
	}
	if !slugPattern.MatchString(segs[1]) {
		return ""
	}
	return segs[1]
}

// ExtractAMCSlug returns <slug> for platform URLs of the form
// /mutual-funds/amc/<slug>, or "".
func (r *LinkResolver) ExtractAMCSlug(u string) string {
	segs := r.platformPath(u)
	if len(segs) < 3 || segs[0] != fundsPathRoot || segs[1] != "amc" {
		return ""
	}
	if !slugPattern.MatchString(segs[2]) {
		return ""
	}
	return segs[2]
}

// AMCSlugForName returns the catalog slug for an AMC name, ignoring case
// and surrounding whitespace.
func (r *LinkResolver) AMCSlugForName(amcName string) string {
	return r.slugByName[normalizeName(amcName)]
}

// BuildURL fills the category template. It returns "" for unknown or
// off-platform categories and when a placeholder has no value.
func (r *LinkResolver) BuildURL(categoryKey, fundSlug, amcSlug string) string {
	cat, ok := r.catalog.Category(categoryKey)
	if !ok || !cat.OnPlatform() {
		return ""
	}

	path := cat.URLTemplate
	if cat.NeedsFundSlug() {
		if fundSlug == "" {
			return ""
		}
		path = strings.ReplaceAll(path, domain.PlaceholderFundSlug, fundSlug)
	}
	if cat.NeedsAMCSlug() {
		if amcSlug == "" {
			return ""
		}
		path = strings.ReplaceAll(path, domain.PlaceholderAMCSlug, amcSlug)
	}

	link := strings.TrimRight(r.catalog.Platform.BaseURL, "/") + path
	if cat.Anchor != "" {
		link += "#" + cat.Anchor
	}
	return link
}

// Resolve returns the canonical platform link for chunk, or "".
// Chunks that already come from the platform resolve to their own URL.
func (r *LinkResolver) Resolve(chunk domain.Chunk) string {
	// 1. Platform-sourced content is its own canonical page.
	if r.IsPlatformURL(chunk.SourceURL) {
		return chunk.SourceURL
	}

	// 2. Classify the content.
	key := r.IdentifyInfoCategory(chunk.Content)
	if key == "" {
		return ""
	}
	cat, _ := r.catalog.Category(key)
	if !cat.OnPlatform() {
		return ""
	}

	// 3. Fill the template from whatever identifies the fund or AMC.
	fundSlug := r.fundSlugFromMetadata(chunk.Metadata)
	amcSlug := r.amcSlugFromMetadata(chunk.Metadata)

	switch {
	case cat.NeedsFundSlug():
		if fundSlug != "" {
			return r.BuildURL(key, fundSlug, amcSlug)
		}
		// Fund-level facts without a fund fall back to the AMC page.
		return r.BuildURL(domain.CategoryAMCPage, "", amcSlug)
	case cat.NeedsAMCSlug():
		return r.BuildURL(key, "", amcSlug)
	default:
		return r.BuildURL(key, "", "")
	}
}

// Priority orders the links to present with an answer. Queries about
// information only external sources can answer always cite the source.
func (r *LinkResolver) Priority(query string, chunk domain.Chunk, resolvedURL string) (primary, secondary string) {
	if key := r.IdentifyInfoCategory(query); key != "" {
		if cat, ok := r.catalog.Category(key); ok && cat.ExternalRequired {
			return chunk.SourceURL, ""
		}
	}

	if resolvedURL != "" && r.IsPlatformURL(resolvedURL) {
		if chunk.SourceURL == resolvedURL {
			return resolvedURL, ""
		}
		return resolvedURL, chunk.SourceURL
	}

	if chunk.SourceURL == "" {
		return resolvedURL, ""
	}
	return chunk.SourceURL, ""
}

// FallbackMessage is user-facing guidance pointing at u.
func (r *LinkResolver) FallbackMessage(categoryKey, u string) string {
	name := r.catalog.Platform.Name
	if name == "" {
		name = r.catalog.Platform.Domain
	}

	switch {
	case u == "":
		return "Please refer to the official scheme documents on the AMC website for this information."
	case r.IsPlatformURL(u):
		return fmt.Sprintf("You can find this information on %s: %s", name, u)
	}

	if cat, ok := r.catalog.Category(categoryKey); ok && cat.ExternalRequired {
		return fmt.Sprintf("This information is not available on %s. Please refer to the official source: %s", name, u)
	}
	return fmt.Sprintf("This information is available on the official source: %s", u)
}

// MappingStatistics summarises platform link coverage over chunks.
func (r *LinkResolver) MappingStatistics(chunks []domain.Chunk) domain.MappingStatistics {
	stats := domain.MappingStatistics{
		TotalChunks: len(chunks),
		ByCategory:  make(map[string]int),
	}
	for _, c := range chunks {
		if c.PlatformURL != "" {
			stats.MappedChunks++
		}
		if r.IsPlatformURL(c.SourceURL) {
			stats.FromPlatformSource++
		}
		if key := r.IdentifyInfoCategory(c.Content); key != "" {
			stats.ByCategory[key]++
		} else {
			stats.Uncategorised++
		}
	}
	if stats.TotalChunks > 0 {
		stats.MappingRate = float64(stats.MappedChunks) / float64(stats.TotalChunks) * 100
	}
	return stats
}

func (r *LinkResolver) platformPath(u string) []string {
	if !r.IsPlatformURL(u) {
		return nil
	}
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return nil
	}
	path := strings.Trim(strings.ToLower(parsed.Path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (r *LinkResolver) fundSlugFromMetadata(meta map[string]any) string {
	if slug := strings.ToLower(domain.MetadataString(meta, domain.MetaFundSlug)); slugPattern.MatchString(slug) {
		return slug
	}
	for _, key := range []string{domain.MetaFundURL, domain.MetaGrowwURL, domain.MetaPlatformURL} {
		if slug := r.ExtractFundSlug(domain.MetadataString(meta, key)); slug != "" {
			return slug
		}
	}
	return ""
}

func (r *LinkResolver) amcSlugFromMetadata(meta map[string]any) string {
	if slug := strings.ToLower(domain.MetadataString(meta, domain.MetaAMCSlug)); slugPattern.MatchString(slug) {
		return slug
	}
	return r.AMCSlugForName(domain.MetadataString(meta, domain.MetaAMCName))
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
