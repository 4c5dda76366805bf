package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoCategory_Matches(t *testing.T) {
	nav := InfoCategory{Key: "nav", Keywords: []string{"nav", "net asset value"}}

	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"exact word", "what is the nav today", true},
		{"phrase", "net asset value of the fund", true},
		{"trailing punctuation", "current nav?", true},
		{"plural", "show me the navs", true},
		{"plural before punctuation", "latest navs, please", true},
		{"inside a word", "how do i navigate the app", false},
		{"suffix longer than plural", "navsx", false},
		{"empty text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, nav.Matches(strings.ToLower(tt.text)))
		})
	}
}

func TestInfoCategory_TemplateKinds(t *testing.T) {
	catalog := DefaultCatalog()

	expense, ok := catalog.Category("expense_ratio")
	require.True(t, ok)
	assert.True(t, expense.NeedsFundSlug())
	assert.False(t, expense.NeedsAMCSlug())
	assert.True(t, expense.OnPlatform())

	amc, ok := catalog.Category(CategoryAMCPage)
	require.True(t, ok)
	assert.True(t, amc.NeedsAMCSlug())

	tax, ok := catalog.Category("tax_treatment")
	require.True(t, ok)
	assert.False(t, tax.OnPlatform())
}

func TestDefaultCatalog_PriorityOrder(t *testing.T) {
	keys := DefaultCatalog().Keys()

	require.NotEmpty(t, keys)
	assert.Equal(t, "expense_ratio", keys[0])
	assert.Equal(t, CategoryFundDetails, keys[len(keys)-1])

	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate category %s", k)
		seen[k] = true
	}
}

func TestCatalog_ClassifyURL(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		url      string
		expected SourceType
	}{
		{"https://groww.in/mutual-funds/hdfc-top-100-fund", SourceTypePlatform},
		{"https://www.sebi.gov.in/filings", SourceTypeSEBI},
		{"https://www.amfiindia.com/nav", SourceTypeAMFI},
		{"https://www.hdfcfund.com/explore", SourceTypeAMC},
		{"https://example.org/blog", SourceTypeExternal},
		{"::not a url", SourceTypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, catalog.ClassifyURL(tt.url))
		})
	}
}
