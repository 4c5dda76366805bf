package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// URL template placeholders.
const (
	PlaceholderFundSlug = "{fund_slug}"
	PlaceholderAMCSlug  = "{amc_slug}"
)

// Category keys referenced directly by the resolver.
const (
	CategoryFundDetails = "fund_details"
	CategoryAMCPage     = "amc_page"
)

// InfoCategory is a static catalog entry describing one kind of fund
// information and where it lives on the platform.
type InfoCategory struct {
	// Key identifies the category (e.g. "expense_ratio").
	Key string `json:"category_key" yaml:"key"`

	// PlatformAvailable is true if the platform has a page for this information.
	PlatformAvailable bool `json:"groww_available" yaml:"platform_available"`

	// ExternalRequired is true if only an external source can answer it.
	ExternalRequired bool `json:"external_required" yaml:"external_required"`

	// URLTemplate is a path with optional {fund_slug}/{amc_slug} placeholders.
	URLTemplate string `json:"url_template,omitempty" yaml:"url_template"`

	// Anchor is an optional page fragment, without the leading '#'.
	Anchor string `json:"anchor,omitempty" yaml:"anchor"`

	// Keywords trigger this category when found in a query or chunk.
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// OnPlatform returns true if a platform link can ever be built for this category.
func (c InfoCategory) OnPlatform() bool {
	return c.PlatformAvailable && !c.ExternalRequired && c.URLTemplate != ""
}

// NeedsFundSlug returns true if the template is fund-level.
func (c InfoCategory) NeedsFundSlug() bool {
	return strings.Contains(c.URLTemplate, PlaceholderFundSlug)
}

// NeedsAMCSlug returns true if the template is AMC-level.
func (c InfoCategory) NeedsAMCSlug() bool {
	return strings.Contains(c.URLTemplate, PlaceholderAMCSlug)
}

// Matches returns true if any keyword occurs in lowered text starting on a
// word boundary. A plural "s" or "es" may follow the keyword.
// lowered must already be lower-case.
func (c InfoCategory) Matches(lowered string) bool {
	for _, kw := range c.Keywords {
		if containsWord(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// containsWord reports whether needle occurs in haystack with no letter or
// digit directly before it and nothing after it but a boundary or a plural
// suffix.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for start := 0; start <= len(haystack)-len(needle); {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(needle)
		if boundaryBefore(haystack, i) && endsWord(haystack, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[i:])
		start = i + size
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func endsWord(s string, i int) bool {
	if boundaryAfter(s, i) {
		return true
	}
	for _, suffix := range pluralSuffixes {
		if strings.HasPrefix(s[i:], suffix) && boundaryAfter(s, i+len(suffix)) {
			return true
		}
	}
	return false
}

var pluralSuffixes = []string{"s", "es"}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Platform identifies the link-target site.
type Platform struct {
	Name    string `json:"name" yaml:"name"`
	Domain  string `json:"domain" yaml:"domain"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// Catalog is the resolver's knowledge base. Categories are held in
// priority order: the first matching entry wins.
type Catalog struct {
	Platform   Platform          `json:"platform" yaml:"platform"`
	Categories []InfoCategory    `json:"categories" yaml:"categories"`
	AMCSlugs   map[string]string `json:"amc_slugs" yaml:"amc_slugs"`
	AMCDomains []string          `json:"amc_domains" yaml:"amc_domains"`
}

// Category returns the entry for key.
func (c Catalog) Category(key string) (InfoCategory, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return InfoCategory{}, false
}

// Keys returns the category keys in priority order.
func (c Catalog) Keys() []string {
	keys := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		keys[i] = cat.Key
	}
	return keys
}

// ClassifyURL infers a SourceType from a URL's host.
func (c Catalog) ClassifyURL(raw string) SourceType {
	host := URLHost(raw)
	switch {
	case host == "":
		return SourceTypeExternal
	case HostMatches(host, c.Platform.Domain):
		return SourceTypePlatform
	case HostMatches(host, "sebi.gov.in"):
		return SourceTypeSEBI
	case HostMatches(host, "amfiindia.com"):
		return SourceTypeAMFI
	}
	for _, d := range c.AMCDomains {
		if HostMatches(host, d) {
			return SourceTypeAMC
		}
	}
	return SourceTypeExternal
}

// DefaultCatalog returns the built-in Groww knowledge base.
//
//nolint:funlen // static table
func DefaultCatalog() Catalog {
	const fundPage = "/mutual-funds/" + PlaceholderFundSlug

	return Catalog{
		Platform: Platform{
			Name:    "Groww",
			Domain:  "groww.in",
			BaseURL: "https://groww.in",
		},
		Categories: []InfoCategory{
			{
				Key: "expense_ratio", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "expense-ratio",
				Keywords: []string{"expense ratio", "total expense ratio", "ter", "fees", "charges"},
			},
			{
				Key: "exit_load", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "exit-load",
				Keywords: []string{"exit load", "exit fee", "redemption"},
			},
			{
				Key: "minimum_sip", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "investment-details",
				Keywords: []string{"minimum sip", "min sip", "sip amount", "minimum investment"},
			},
			{
				Key: "lock_in_period", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "investment-details",
				Keywords: []string{"lock-in", "lock in", "lockin"},
			},
			{
				Key: "riskometer", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "risk",
				Keywords: []string{"riskometer", "risk-o-meter", "risk level", "risk profile"},
			},
			{
				Key: "benchmark", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "benchmark",
				Keywords: []string{"benchmark"},
			},
			{
				Key: "nav", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "nav",
				Keywords: []string{"nav", "net asset value", "unit price"},
			},
			{
				Key: "returns", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "returns",
				Keywords: []string{"returns", "performance", "cagr"},
			},
			{
				Key: "portfolio", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "portfolio",
				Keywords: []string{"portfolio", "holdings", "asset allocation"},
			},
			{
				Key: "fund_manager", PlatformAvailable: true,
				URLTemplate: fundPage, Anchor: "fund-management",
				Keywords: []string{"fund manager", "managed by"},
			},
			{
				Key: "download_statement", PlatformAvailable: true,
				URLTemplate: "/mutual-funds/user/statements",
				Keywords:    []string{"download statement", "account statement", "capital gains statement", "statement"},
			},
			{
				Key: "tax_treatment", ExternalRequired: true,
				Keywords: []string{"tax", "taxation", "capital gains", "ltcg", "stcg"},
			},
			{
				Key: "scheme_document", ExternalRequired: true,
				Keywords: []string{"scheme document", "scheme information document", "sid", "kim", "factsheet"},
			},
			{
				Key: CategoryAMCPage, PlatformAvailable: true,
				URLTemplate: "/mutual-funds/amc/" + PlaceholderAMCSlug,
				Keywords:    []string{"amc", "asset management", "fund house"},
			},
			{
				Key: CategoryFundDetails, PlatformAvailable: true,
				URLTemplate: fundPage,
				Keywords:    []string{"fund", "scheme", "details", "overview"},
			},
		},
		AMCSlugs: map[string]string{
			"SBI Mutual Fund":              "sbi-mutual-funds",
			"HDFC Mutual Fund":             "hdfc-mutual-funds",
			"ICICI Prudential Mutual Fund": "icici-prudential-mutual-funds",
			"Axis Mutual Fund":             "axis-mutual-funds",
			"Nippon India Mutual Fund":     "nippon-india-mutual-funds",
		},
		AMCDomains: []string{
			"sbimf.com",
			"hdfcfund.com",
			"icicipruamc.com",
			"axismf.com",
			"nipponindiaim.com",
		},
	}
}

// MappingStatistics summarises platform link coverage over a set of chunks.
type MappingStatistics struct {
	TotalChunks        int            `json:"total_chunks"`
	MappedChunks       int            `json:"mapped_chunks"`
	FromPlatformSource int            `json:"chunks_from_platform_source"`
	MappingRate        float64        `json:"mapping_rate"`
	ByCategory         map[string]int `json:"by_category"`
	Uncategorised      int            `json:"uncategorised"`
}
