package ingest

import (
	"regexp"
	"strings"
)

// maxTitleLength is spec.md §4.2's hard cap on stored titles.
const maxTitleLength = 1000

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	controlCharPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

	dashReplacer = strings.NewReplacer(
		"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "―", "-",
		"‘", "'", "’", "'", "“", `"`, "”", `"`,
		" ", " ",
	)
)

// sanitizeText is the shared pass applied to every harvested title and
// abstract before it reaches the catalog: strip markup, fold typographic
// dashes/quotes/nbsp down to their ASCII equivalents, drop control
// characters, and collapse every whitespace run to a single space. No
// third-party HTML sanitizer is used here: a regexp pass covers the narrow
// "strip tags, normalize punctuation" contract spec.md §4.2 asks for
// rather than a full HTML parser.
func sanitizeText(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = dashReplacer.Replace(s)
	s = controlCharPattern.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// SanitizeTitle applies sanitizeText and truncates to maxTitleLength runes.
func SanitizeTitle(title string) string {
	clean := sanitizeText(title)
	runes := []rune(clean)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}
	return clean
}

// SanitizeAbstract applies sanitizeText with no length cap; abstracts are
// stored as unbounded text.
func SanitizeAbstract(abstract string) string {
	return sanitizeText(abstract)
}
