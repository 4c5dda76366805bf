package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxHeaderLen is the longest line treated as a section header.
const maxHeaderLen = 80

// maxHeaderWords is the most words a section header may have.
const maxHeaderWords = 10

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

var numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)

// abbreviations never end a sentence when followed by a period.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "rs": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"st": true, "e.g": true, "i.e": true, "approx": true,
}

// SplitSentences splits text at terminal punctuation (. ! ?) followed by
// whitespace or end of text. Runs of punctuation and closing quotes stay
// with their sentence. Decimals, domains, runs of initials and common
// abbreviations such as "Rs." do not end a sentence.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		j := i + 1
		for j < len(runes) && isClosing(runes[j]) {
			j++
		}

		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		if r == '.' && j == i+1 && isAbbreviation(runes[start:i], runes[j:]) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start:j])); s != "" {
			out = append(out, s)
		}
		start = j
		i = j - 1
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func isClosing(r rune) bool {
	switch r {
	case '.', '!', '?', '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

// isAbbreviation reports whether the word ending the fragment is a known
// abbreviation, "No." before a number, or an initial that is part of a run
// such as "J. K.". rest is the text after the period.
func isAbbreviation(fragment, rest []rune) bool {
	word := lastWord(fragment)
	if word == "" {
		return false
	}
	next := firstWord(rest)

	lower := strings.ToLower(word)
	if lower == "no" {
		first, _ := utf8.DecodeRuneInString(next)
		return unicode.IsDigit(first)
	}
	if isInitial(word) {
		nextInitial := strings.HasSuffix(next, ".") && isInitial(strings.TrimSuffix(next, "."))
		prev := lastWord(trimLastWord(fragment))
		prevInitial := strings.HasSuffix(prev, ".") && isInitial(strings.TrimSuffix(prev, "."))
		return nextInitial || prevInitial
	}
	return abbreviations[lower]
}

// isInitial reports whether word is a single upper-case letter.
func isInitial(word string) bool {
	r, size := utf8.DecodeRuneInString(word)
	return size > 0 && size == len(word) && unicode.IsUpper(r)
}

func lastWord(fragment []rune) string {
	end := len(fragment)
	start := end
	for start > 0 && !unicode.IsSpace(fragment[start-1]) {
		start--
	}
	return strings.TrimLeft(string(fragment[start:end]), "(\"'")
}

// trimLastWord drops the final word and the whitespace before it.
func trimLastWord(fragment []rune) []rune {
	end := len(fragment)
	for end > 0 && !unicode.IsSpace(fragment[end-1]) {
		end--
	}
	for end > 0 && unicode.IsSpace(fragment[end-1]) {
		end--
	}
	return fragment[:end]
}

func firstWord(rest []rune) string {
	start := 0
	for start < len(rest) && unicode.IsSpace(rest[start]) {
		start++
	}
	end := start
	for end < len(rest) && !unicode.IsSpace(rest[end]) {
		end++
	}
	return string(rest[start:end])
}

// SplitParagraphs splits text on blank lines.
func SplitParagraphs(text string) []string {
	var out []string
	for _, part := range paragraphBreak.Split(text, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DetectSections groups lines under detected headers. Each returned section
// is the header line followed by its body. Text before the first header is
// its own section. Returns nil if no header is found.
func DetectSections(text string) []string {
	lines := strings.Split(text, "\n")

	var (
		sections []string
		current  []string
		found    bool
	)
	flush := func() {
		if s := strings.TrimSpace(strings.Join(current, "\n")); s != "" {
			sections = append(sections, s)
		}
		current = current[:0]
	}

	for i, line := range lines {
		if isHeader(line, nextNonEmpty(lines, i+1)) {
			found = true
			flush()
		}
		current = append(current, line)
	}
	flush()

	if !found {
		return nil
	}
	return sections
}

func nextNonEmpty(lines []string, from int) string {
	for _, l := range lines[from:] {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

// isHeader applies the header heuristics: markdown or numbered headings,
// or a short capitalised line without sentence punctuation that is
// followed by body text.
func isHeader(line, next string) bool {
	t := strings.TrimSpace(line)
	if t == "" || strings.TrimSpace(next) == "" {
		return false
	}
	if strings.HasPrefix(t, "#") {
		return true
	}
	if utf8.RuneCountInString(t) > maxHeaderLen || len(strings.Fields(t)) > maxHeaderWords {
		return false
	}
	if numberedHeading.MatchString(t) && !endsSentence(t) {
		return true
	}

	first, _ := utf8.DecodeRuneInString(t)
	if !unicode.IsUpper(first) {
		return false
	}
	return !endsSentence(t)
}

func endsSentence(s string) bool {
	last, _ := utf8.DecodeLastRuneInString(s)
	switch last {
	case '.', '!', '?', ',', ';':
		return true
	}
	return false
}
