package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

func newTestResolver() *LinkResolver {
	return NewLinkResolver(domain.DefaultCatalog())
}

func TestLinkResolver_IsPlatformURL(t *testing.T) {
	r := newTestResolver()

	assert.True(t, r.IsPlatformURL("https://groww.in/mutual-funds/x"))
	assert.True(t, r.IsPlatformURL("https://www.groww.in/"))
	assert.False(t, r.IsPlatformURL("https://notgroww.in/"))
	assert.False(t, r.IsPlatformURL("https://groww.in.evil.com/"))
	assert.False(t, r.IsPlatformURL(""))
}

func TestLinkResolver_IdentifyInfoCategory(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		text     string
		expected string
	}{
		{"The expense ratio of this fund is 0.45%", "expense_ratio"},
		{"An exit load of 1% applies within a year", "exit_load"},
		{"ELSS funds have a lock-in of 3 years", "lock_in_period"},
		{"How is LTCG taxed?", "tax_treatment"},
		{"Download the scheme information document", "scheme_document"},
		{"Check the NAV today", "nav"},
		{"What are the expense ratios of HDFC funds?", "expense_ratio"},
		{"Are there exit loads on these schemes?", "exit_load"},
		{"Show me the NAVs", "nav"},
		{"Navigate the page", ""},
		{"Please consider the options", ""},
		{"", ""},
		{"hello world", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.IdentifyInfoCategory(tt.text))
		})
	}
}

func TestLinkResolver_IdentifyInfoCategory_PriorityOrder(t *testing.T) {
	r := newTestResolver()

	// Both expense ratio and exit load are mentioned; expense ratio ranks first.
	got := r.IdentifyInfoCategory("Exit load is 1% and the expense ratio is 0.5%")

	assert.Equal(t, "expense_ratio", got)
}

func TestLinkResolver_ExtractSlugs(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, "hdfc-top-100-fund-direct-growth",
		r.ExtractFundSlug("https://groww.in/mutual-funds/hdfc-top-100-fund-direct-growth"))
	assert.Equal(t, "sbi-bluechip", r.ExtractFundSlug("https://groww.in/mutual-funds/SBI-Bluechip/"))
	assert.Empty(t, r.ExtractFundSlug("https://groww.in/mutual-funds/amc/sbi-mutual-funds"))
	assert.Empty(t, r.ExtractFundSlug("https://groww.in/mutual-funds"))
	assert.Empty(t, r.ExtractFundSlug("https://example.com/mutual-funds/x"))

	assert.Equal(t, "sbi-mutual-funds", r.ExtractAMCSlug("https://groww.in/mutual-funds/amc/sbi-mutual-funds"))
	assert.Empty(t, r.ExtractAMCSlug("https://groww.in/mutual-funds/hdfc-top-100"))
}

func TestLinkResolver_AMCSlugForName(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, "hdfc-mutual-funds", r.AMCSlugForName("HDFC Mutual Fund"))
	assert.Equal(t, "hdfc-mutual-funds", r.AMCSlugForName("  hdfc   mutual fund "))
	assert.Empty(t, r.AMCSlugForName("Unknown AMC"))
}

func TestLinkResolver_BuildURL(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, "https://groww.in/mutual-funds/hdfc-top-100#expense-ratio",
		r.BuildURL("expense_ratio", "hdfc-top-100", ""))
	assert.Equal(t, "https://groww.in/mutual-funds/amc/sbi-mutual-funds",
		r.BuildURL("amc_page", "", "sbi-mutual-funds"))
	assert.Equal(t, "https://groww.in/mutual-funds/user/statements",
		r.BuildURL("download_statement", "", ""))

	assert.Empty(t, r.BuildURL("expense_ratio", "", ""), "missing fund slug")
	assert.Empty(t, r.BuildURL("tax_treatment", "x", "y"), "external-only category")
	assert.Empty(t, r.BuildURL("nope", "x", "y"))
}

func TestLinkResolver_Resolve(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name     string
		chunk    domain.Chunk
		expected string
	}{
		{
			name:     "platform source returns itself",
			chunk:    domain.Chunk{SourceURL: "https://groww.in/mutual-funds/abc", Content: "anything"},
			expected: "https://groww.in/mutual-funds/abc",
		},
		{
			name: "fund slug from metadata",
			chunk: domain.Chunk{
				SourceURL: "https://www.hdfcfund.com/factsheet",
				Content:   "The expense ratio is 0.5%",
				Metadata:  map[string]any{domain.MetaFundSlug: "hdfc-top-100"},
			},
			expected: "https://groww.in/mutual-funds/hdfc-top-100#expense-ratio",
		},
		{
			name: "fund slug parsed from fund url",
			chunk: domain.Chunk{
				SourceURL: "https://www.hdfcfund.com/factsheet",
				Content:   "Exit load of 1% applies",
				Metadata:  map[string]any{domain.MetaFundURL: "https://groww.in/mutual-funds/hdfc-top-100"},
			},
			expected: "https://groww.in/mutual-funds/hdfc-top-100#exit-load",
		},
		{
			name: "fund level category falls back to amc page",
			chunk: domain.Chunk{
				SourceURL: "https://www.hdfcfund.com/factsheet",
				Content:   "The expense ratio is 0.5%",
				Metadata:  map[string]any{domain.MetaAMCName: "HDFC Mutual Fund"},
			},
			expected: "https://groww.in/mutual-funds/amc/hdfc-mutual-funds",
		},
		{
			name: "external only category",
			chunk: domain.Chunk{
				SourceURL: "https://www.sbimf.com/tax",
				Content:   "Capital gains tax on equity funds",
				Metadata:  map[string]any{domain.MetaFundSlug: "sbi-bluechip"},
			},
			expected: "",
		},
		{
			name: "no identifiers",
			chunk: domain.Chunk{
				SourceURL: "https://www.sbimf.com/x",
				Content:   "The expense ratio is 0.5%",
			},
			expected: "",
		},
		{
			name:     "uncategorised",
			chunk:    domain.Chunk{SourceURL: "https://www.sbimf.com/x", Content: "hello world"},
			expected: "",
		},
		{
			name:     "slug-free category",
			chunk:    domain.Chunk{SourceURL: "https://x.com", Content: "Download statement for your folio"},
			expected: "https://groww.in/mutual-funds/user/statements",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Resolve(tt.chunk))
		})
	}
}

func TestLinkResolver_Priority(t *testing.T) {
	r := newTestResolver()
	chunk := domain.Chunk{SourceURL: "https://www.hdfcfund.com/factsheet"}
	resolved := "https://groww.in/mutual-funds/hdfc-top-100#expense-ratio"

	primary, secondary := r.Priority("what is the expense ratio", chunk, resolved)
	assert.Equal(t, resolved, primary)
	assert.Equal(t, chunk.SourceURL, secondary)

	primary, secondary = r.Priority("how is it taxed? tax rules", chunk, resolved)
	assert.Equal(t, chunk.SourceURL, primary)
	assert.Empty(t, secondary)

	primary, secondary = r.Priority("what is the expense ratio", chunk, "")
	assert.Equal(t, chunk.SourceURL, primary)
	assert.Empty(t, secondary)

	platformChunk := domain.Chunk{SourceURL: resolved}
	primary, secondary = r.Priority("nav", platformChunk, resolved)
	assert.Equal(t, resolved, primary)
	assert.Empty(t, secondary)
}

func TestLinkResolver_FallbackMessage(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, "You can find this information on Groww: https://groww.in/x",
		r.FallbackMessage("nav", "https://groww.in/x"))
	assert.Equal(t, "This information is available on the official source: https://sbimf.com/x",
		r.FallbackMessage("nav", "https://sbimf.com/x"))
	assert.Contains(t, r.FallbackMessage("tax_treatment", "https://sbimf.com/x"), "not available on Groww")
	assert.NotEmpty(t, r.FallbackMessage("", ""))
}

func TestLinkResolver_MappingStatistics(t *testing.T) {
	r := newTestResolver()
	chunks := []domain.Chunk{
		{SourceURL: "https://groww.in/mutual-funds/a", Content: "nav is 10", PlatformURL: "https://groww.in/mutual-funds/a"},
		{SourceURL: "https://sbimf.com/b", Content: "exit load 1%", PlatformURL: "https://groww.in/mutual-funds/b#exit-load"},
		{SourceURL: "https://sbimf.com/c", Content: "hello"},
		{SourceURL: "https://sbimf.com/d", Content: "tax rules"},
	}

	stats := r.MappingStatistics(chunks)

	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, 2, stats.MappedChunks)
	assert.Equal(t, 1, stats.FromPlatformSource)
	assert.InDelta(t, 50.0, stats.MappingRate, 1e-9)
	assert.Equal(t, 1, stats.ByCategory["nav"])
	assert.Equal(t, 1, stats.ByCategory["exit_load"])
	assert.Equal(t, 1, stats.ByCategory["tax_treatment"])
	assert.Equal(t, 1, stats.Uncategorised)

	empty := r.MappingStatistics(nil)
	assert.Zero(t, empty.MappingRate)
}
