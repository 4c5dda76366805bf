package web

import (
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|main)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|main)\b[^>]*>`)
	cellElements      = regexp.MustCompile(`(?i)</(td|th)>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	emailPattern      = regexp.MustCompile(`\S+@\S+\.\S+`)
	multiSpaces       = regexp.MustCompile(`[ \t\p{Zs}]+`)
)

// droppedElements are removed with their content. Scripts and styles go
// first since their bodies may contain markup-like text.
var droppedElements = func() []*regexp.Regexp {
	tags := []string{"script", "style", "noscript", "head", "svg", "nav", "header", "footer", "aside", "iframe", "button"}
	out := make([]*regexp.Regexp, len(tags))
	for i, tag := range tags {
		out[i] = regexp.MustCompile(`(?is)<` + tag + `\b[^>]*>.*?</` + tag + `\s*>`)
	}
	return out
}()

// extractTitle returns the <title> text, falling back to the last path
// segment of rawURL.
func extractTitle(content, rawURL string) string {
	if m := titleTag.FindStringSubmatch(content); len(m) > 1 {
		if title := strings.Join(strings.Fields(html.UnescapeString(m[1])), " "); title != "" {
			return title
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return ""
	}
	name := path.Base(p)
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}

// stripHTML removes markup and page chrome, keeping one line per block
// element and a blank line where the markup had a paragraph gap.
func stripHTML(content string) string {
	for _, re := range droppedElements {
		content = re.ReplaceAllString(content, "")
	}

	content = htmlComments.ReplaceAllString(content, "")
	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n\n")
	content = cellElements.ReplaceAllString(content, " ")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	return normaliseLines(content)
}

// cleanText removes links and e-mail addresses and normalises whitespace.
func cleanText(content string) string {
	content = urlPattern.ReplaceAllString(content, "")
	content = emailPattern.ReplaceAllString(content, "")
	return normaliseLines(content)
}

// normaliseLines collapses spaces within lines, trims each line and
// reduces runs of blank lines to one.
func normaliseLines(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")

	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
