package matching

import (
	"regexp"
	"strings"
)

// titlePrefixPatterns strip the proposal-numbering and status prefixes the
// sources prepend: bracketed sequence codes ([AIP-12]), governance labels
// (Constitutional:, RFC, Draft), markdown headers and [UPDATED] markers.
var titlePrefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\[?aip[-\s]?\d+\]?\s*:?\s*`),
	regexp.MustCompile(`(?i)^\[?(non-?constitutional|constitutional|rfc|draft|final)\]?\s*:?\s*`),
	regexp.MustCompile(`(?i)^proposal\s*:?\s*`),
	regexp.MustCompile(`^#+\s*`),
	regexp.MustCompile(`(?i)^\[?updated\]?\s*:?\s*`),
}

var (
	nonAlnumPattern    = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	slugStripPattern   = regexp.MustCompile(`[^a-z0-9\s-]+`)
	slugHyphensPattern = regexp.MustCompile(`-+`)
)

// NormalizeTitle canonicalizes a title for comparison: decode HTML entities,
// lowercase, strip leading numbering/status prefixes, drop everything except
// letters, digits and spaces, collapse whitespace.
func NormalizeTitle(title string) string {
	if title == "" {
		return ""
	}

	t := strings.ToLower(DecodeEntities(title))
	for _, p := range titlePrefixPatterns {
		t = p.ReplaceAllString(t, "")
	}
	t = nonAlnumPattern.ReplaceAllString(t, " ")
	t = whitespacePattern.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// TitleToSlug converts a title to the hyphenated form a discourse forum
// would use for its topic slug.
func TitleToSlug(title string) string {
	if title == "" {
		return ""
	}

	t := strings.ToLower(DecodeEntities(title))
	t = slugStripPattern.ReplaceAllString(t, "")
	t = whitespacePattern.ReplaceAllString(t, "-")
	t = slugHyphensPattern.ReplaceAllString(t, "-")
	return strings.Trim(t, "-")
}

// CalculateSimilarity scores two titles 0-100 by token-set overlap.
// Identical normalized titles score 100 outright. Otherwise the score is
// integer Jaccard similarity over whitespace tokens longer than two
// characters; either side tokenizing to nothing scores 0. Order-insensitive
// and tolerant of prefix/suffix drift.
func CalculateSimilarity(a, b string) int {
	na := NormalizeTitle(a)
	nb := NormalizeTitle(b)

	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	ta := tokenSet(na)
	tb := tokenSet(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection

	return intersection * 100 / union
}

// SlugSimilarity scores two forum slugs 0-100 by overlap of their hyphen
// tokens, with the same length->2 token filter as title similarity.
func SlugSimilarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	ta := hyphenTokenSet(a)
	tb := hyphenTokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection

	return intersection * 100 / union
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		if len(tok) > 2 {
			set[tok] = true
		}
	}
	return set
}

func hyphenTokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Split(strings.ToLower(s), "-") {
		if len(tok) > 2 {
			set[tok] = true
		}
	}
	return set
}
