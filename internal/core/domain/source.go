package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// SourceType classifies where a source URL lives.
type SourceType string

// Known source types.
const (
	// SourceTypePlatform is a page on the link-target platform (Groww).
	SourceTypePlatform SourceType = "groww"

	// SourceTypeAMC is an asset management company's own site.
	SourceTypeAMC SourceType = "amc"

	// SourceTypeSEBI is the securities regulator.
	SourceTypeSEBI SourceType = "sebi"

	// SourceTypeAMFI is the mutual fund industry body.
	SourceTypeAMFI SourceType = "amfi"

	// SourceTypeExternal is any other site.
	SourceTypeExternal SourceType = "external"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypePlatform, SourceTypeAMC, SourceTypeSEBI, SourceTypeAMFI, SourceTypeExternal:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// SourceRecord is one deduplicated source URL and its provenance.
type SourceRecord struct {
	// ID is a deterministic hash of the normalised URL.
	ID string `json:"source_id"`

	// URL is the URL as first added.
	URL string `json:"url"`

	// AMCName is the AMC the source was added under.
	AMCName string `json:"amc_name"`

	// Title is an optional human-readable title.
	Title string `json:"title,omitempty"`

	// Type classifies the source.
	Type SourceType `json:"source_type"`

	// Domain is the URL host.
	Domain string `json:"domain"`

	// Validated is true once a reachability probe has run.
	Validated bool `json:"validated"`

	// IsAccessible holds the probe outcome. Nil until validated.
	IsAccessible *bool `json:"is_accessible"`

	// ValidatedAt is when the last probe ran.
	ValidatedAt *time.Time `json:"validation_date,omitempty"`

	// FirstSeenAt is when the URL was first added.
	FirstSeenAt time.Time `json:"first_seen_at"`
}

// Accessible reports the probe outcome, treating "not yet probed" as false.
func (r SourceRecord) Accessible() bool {
	return r.IsAccessible != nil && *r.IsAccessible
}

// SourceLedger is the persisted state of the source tracker.
type SourceLedger struct {
	// Sources maps source ID to record.
	Sources map[string]SourceRecord `json:"sources"`

	// URLToID maps normalised URL to source ID.
	URLToID map[string]string `json:"url_to_id"`

	// ContentToSources maps a content ID to the ordered set of its source IDs.
	ContentToSources map[string][]string `json:"content_to_sources"`
}

// NewSourceLedger returns an empty ledger with all maps allocated.
func NewSourceLedger() *SourceLedger {
	return &SourceLedger{
		Sources:          make(map[string]SourceRecord),
		URLToID:          make(map[string]string),
		ContentToSources: make(map[string][]string),
	}
}

// Clone returns a deep copy of the ledger.
func (l *SourceLedger) Clone() *SourceLedger {
	out := NewSourceLedger()
	for id, rec := range l.Sources {
		if rec.IsAccessible != nil {
			v := *rec.IsAccessible
			rec.IsAccessible = &v
		}
		if rec.ValidatedAt != nil {
			v := *rec.ValidatedAt
			rec.ValidatedAt = &v
		}
		out.Sources[id] = rec
	}
	for u, id := range l.URLToID {
		out.URLToID[u] = id
	}
	for c, ids := range l.ContentToSources {
		out.ContentToSources[c] = append([]string(nil), ids...)
	}
	return out
}

// SourceStatistics summarises the tracker.
type SourceStatistics struct {
	TotalSources      int                `json:"total_sources"`
	UniqueAMCs        int                `json:"unique_amcs"`
	SourcesByType     map[SourceType]int `json:"sources_by_type"`
	ValidatedSources  int                `json:"validated_sources"`
	AccessibleSources int                `json:"accessible_sources"`
	TotalContentLinks int                `json:"total_content_links"`
}

// NormalizeURL canonicalises a URL for deduplication. Comparison is
// case-insensitive and ignores surrounding whitespace and trailing slashes.
func NormalizeURL(raw string) string {
	n := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimRight(n, "/")
}

// SourceIDFor returns the deterministic source ID for a URL.
func SourceIDFor(raw string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(raw)))
	return "src_" + hex.EncodeToString(sum[:8])
}

// URLHost returns the lower-cased host of raw, or "" if it cannot be parsed.
func URLHost(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// HostMatches returns true if host is domain or a subdomain of it.
func HostMatches(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
