package web

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// Ensure Cleaner implements the interface.
var _ driven.Cleaner = (*Cleaner)(nil)

// DefaultMinContentLength is the shortest cleaned text, in characters,
// that is kept.
const DefaultMinContentLength = 50

// Rule extracts one named fact from cleaned text.
type Rule struct {
	// Name is the structured_info key.
	Name string

	// Extract returns the value and true if the fact is present.
	Extract func(text string) (string, bool)
}

const riskLevels = `very\s+high|moderately\s+high|high|moderately\s+low|moderate|very\s+low|low`

var (
	expenseRatio = regexp.MustCompile(`(?i)expense\s+ratio[:\s]+(\d+(?:\.\d+)?)\s*%?`)
	exitLoad     = regexp.MustCompile(`(?i)exit\s+load[:\s]+(\d+(?:\.\d+)?)\s*%?`)
	minimumSIP   = regexp.MustCompile(`(?i)min(?:imum|\.)?\s+sip(?:\s+amount)?[:\s]+(?:rs\.?|inr|₹)?\s*(\d+(?:,\d+)*)`)
	lockIn       = regexp.MustCompile(`(?i)lock[-\s]?in(?:\s+period)?[:\s]+(\d+)\s*(year|month|day)s?`)
	riskometer   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)risk[-\s]?o[-\s]?meter[:\s]+(` + riskLevels + `)\b`),
		regexp.MustCompile(`(?i)\brisk[:\s]+(` + riskLevels + `)\b`),
	}
	benchmark   = regexp.MustCompile(`(?i)benchmark[:\s]+([a-z][^\n.]*(?:index|tri|total\s+return))\b`)
	fundManager = regexp.MustCompile(`(?i:fund\s+managers?)[:\s]+((?:Mr\.?\s+|Ms\.?\s+)?[A-Z][a-zA-Z.]*(?:[ \t]+[A-Z][a-zA-Z.]*){0,3})`)
	nav         = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bnav\b[^₹\n]{0,40}(?:₹|rs\.?)\s*(\d+(?:,\d{3})*(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\bnav\b[:\s]+(\d+(?:,\d{3})*(?:\.\d+)?)`),
	}
	whitespace = regexp.MustCompile(`\s+`)
)

func firstGroup(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	}
}

func firstOf(res []*regexp.Regexp, format func(string) string) func(string) (string, bool) {
	return func(text string) (string, bool) {
		for _, re := range res {
			if m := re.FindStringSubmatch(text); m != nil {
				return format(m[1]), true
			}
		}
		return "", false
	}
}

func percent(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		v, ok := firstGroup(re)(text)
		if !ok {
			return "", false
		}
		return v + "%", true
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// DefaultRules returns the built-in extraction rules. Each rule runs
// independently of the others.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "expense_ratio", Extract: percent(expenseRatio)},
		{Name: "exit_load", Extract: percent(exitLoad)},
		{Name: "minimum_sip", Extract: firstGroup(minimumSIP)},
		{Name: "lock_in_period", Extract: func(text string) (string, bool) {
			m := lockIn.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return m[1] + " " + strings.ToLower(m[2]) + "s", true
		}},
		{Name: "riskometer", Extract: firstOf(riskometer, titleCase)},
		{Name: "benchmark", Extract: func(text string) (string, bool) {
			v, ok := firstGroup(benchmark)(text)
			return whitespace.ReplaceAllString(v, " "), ok
		}},
		{Name: "fund_manager", Extract: firstGroup(fundManager)},
		{Name: "nav", Extract: firstOf(nav, func(s string) string { return strings.ReplaceAll(s, ",", "") })},
	}
}

// Cleaner strips HTML and extracts structured facts.
type Cleaner struct {
	rules     []Rule
	minLength int
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithRules replaces the extraction rules.
func WithRules(rules ...Rule) CleanerOption {
	return func(c *Cleaner) {
		c.rules = rules
	}
}

// WithMinContentLength sets the shortest text kept.
func WithMinContentLength(n int) CleanerOption {
	return func(c *Cleaner) {
		if n >= 0 {
			c.minLength = n
		}
	}
}

// NewCleaner creates a cleaner with the default rules.
func NewCleaner(opts ...CleanerOption) *Cleaner {
	c := &Cleaner{
		rules:     DefaultRules(),
		minLength: DefaultMinContentLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean converts a scraped page into a processed document.
// Returns domain.ErrContentTooShort when less than the minimum length of
// text remains.
func (c *Cleaner) Clean(ctx context.Context, doc domain.ScrapedDocument) (*domain.ProcessedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := cleanText(stripHTML(doc.Content))
	if n := utf8.RuneCountInString(content); n < c.minLength {
		return nil, fmt.Errorf("%d characters: %w", n, domain.ErrContentTooShort)
	}

	if doc.Title == "" {
		doc.Title = extractTitle(doc.Content, doc.URL)
	}

	return &domain.ProcessedDocument{
		Content:        content,
		StructuredInfo: c.Extract(content),
		Metadata:       doc.Metadata(),
	}, nil
}

// Extract applies every rule to text.
func (c *Cleaner) Extract(text string) map[string]any {
	info := make(map[string]any)
	for _, r := range c.rules {
		if v, ok := r.Extract(text); ok && v != "" {
			info[r.Name] = v
		}
	}
	return info
}
