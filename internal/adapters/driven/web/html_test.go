package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	page := `<html><head><title>HDFC Flexi Cap</title><style>p{}</style></head>
<body>
<nav><a href="/">Home</a><button>Menu</button> links</nav>
<header>Site header</header>
<main>
<h1>HDFC Flexi Cap Fund</h1>
<p>The fund invests   across <b>market caps</b>.</p>
<!-- tracking -->
<table><tr><td>Expense ratio</td><td>0.75%</td></tr></table>
<script>var x = "<p>not text</p>";</script>
</main>
<footer>Copyright</footer>
</body></html>`

	got := stripHTML(page)

	assert.Equal(t, "HDFC Flexi Cap Fund\n\nThe fund invests across market caps.\n\nExpense ratio 0.75%", got)
}

func TestStripHTML_EntitiesAndBreaks(t *testing.T) {
	got := stripHTML(`<div>Min SIP&nbsp;&#8377;500<br/>Lock-in: none</div>`)
	assert.Equal(t, "Min SIP ₹500\nLock-in: none", got)
}

func TestCleanText(t *testing.T) {
	got := cleanText("Visit https://example.com/x for details\nmail help@amc.com today")
	assert.Equal(t, "Visit for details\nmail today", got)
}

func TestNormaliseLines(t *testing.T) {
	assert.Equal(t, "a b\n\nc", normaliseLines("\n\n  a \t b \n\n\n\n c  \n\n"))
	assert.Equal(t, "", normaliseLines(" \n \n"))
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		url     string
		want    string
	}{
		{"title tag", "<title> SBI &amp; Co\n Fund </title>", "https://x/y", "SBI & Co Fund"},
		{"url fallback", "<p>no title</p>", "https://groww.in/mutual-funds/hdfc-flexi-cap-fund?tab=1", "hdfc flexi cap fund"},
		{"trailing slash", "", "https://sebi.gov.in/investor_charter/", "investor charter"},
		{"bare host", "", "https://amfiindia.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTitle(tt.content, tt.url))
		})
	}
}
