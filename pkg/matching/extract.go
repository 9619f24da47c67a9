// Package matching contains the pure record-linkage primitives: natural-key
// extraction from URLs and free text, title normalization, token-overlap
// similarity, skip patterns for titles that never map to a proposal, and the
// method-weighted confidence model.
package matching

import (
	"html"
	"regexp"
	"strings"
)

var (
	// Discourse-style forum links: /t/<slug> or /t/<slug>/<topic id>.
	// The topic id is frequently absent from the visible link text.
	forumLinkPattern = regexp.MustCompile(`(?i)forum\.[a-z0-9.-]+/t/([a-zA-Z0-9_-]+)(?:/(\d+))?`)

	forumTopicPattern = regexp.MustCompile(`(?i)/t/[a-zA-Z0-9_-]+/(\d+)`)

	// Snapshot proposal URLs: snapshot.org/#/<space>/proposal/<id>.
	snapshotIDPattern = regexp.MustCompile(`(?i)snapshot\.[a-z]+/(?:#/)?[a-zA-Z0-9._-]+/proposal/(0x[0-9a-fA-F]+|[a-zA-Z0-9]+)`)

	// Tally governance URLs: tally.xyz/gov/<org>/proposal/<id>.
	tallyIDPattern = regexp.MustCompile(`(?i)tally\.[a-z]+/gov/[a-zA-Z0-9_-]+/proposal/(\d+)`)
)

// genericSlugSubstrings marks forum slugs that reference recurring programs
// rather than individual proposals. Links to these are skipped during
// deterministic matching.
var genericSlugSubstrings = []string{
	"short-term-incentive",
	"arbitrum-arbos-upgrades",
}

// ForumLink is one (slug, topic id) pair extracted from free text. TopicID
// is nil when the link text omitted the numeric id.
type ForumLink struct {
	Slug    string
	TopicID *string
}

// DecodeEntities decodes HTML entities (ampersands, quotes, dashes and the
// rest) that the sources routinely leave in titles and bodies.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

// ExtractForumTopicID pulls the numeric topic id out of a forum topic URL.
// Returns nil on malformed or non-forum input; trailing query strings and
// fragments are tolerated.
func ExtractForumTopicID(url string) *string {
	if url == "" {
		return nil
	}
	m := forumTopicPattern.FindStringSubmatch(DecodeEntities(url))
	if m == nil {
		return nil
	}
	return &m[1]
}

// ExtractSnapshotID pulls the off-chain vote id out of a snapshot proposal URL.
func ExtractSnapshotID(url string) *string {
	if url == "" {
		return nil
	}
	m := snapshotIDPattern.FindStringSubmatch(DecodeEntities(url))
	if m == nil {
		return nil
	}
	return &m[1]
}

// ExtractTallyID pulls the on-chain proposal id out of a tally governance URL.
func ExtractTallyID(url string) *string {
	if url == "" {
		return nil
	}
	m := tallyIDPattern.FindStringSubmatch(DecodeEntities(url))
	if m == nil {
		return nil
	}
	return &m[1]
}

// ExtractForumLinks returns the full ordered list of forum links found in a
// free-text blob. Slugs are lowercased; the topic id is nil when absent from
// the link text.
func ExtractForumLinks(text string) []ForumLink {
	if text == "" {
		return nil
	}

	matches := forumLinkPattern.FindAllStringSubmatch(DecodeEntities(text), -1)
	links := make([]ForumLink, 0, len(matches))
	for _, m := range matches {
		link := ForumLink{Slug: strings.ToLower(m[1])}
		if m[2] != "" {
			id := m[2]
			link.TopicID = &id
		}
		links = append(links, link)
	}
	return links
}

// IsGenericSlug reports whether a forum slug references a recurring program
// (incentive rounds, upgrade megathreads) rather than a single proposal.
func IsGenericSlug(slug string) bool {
	slug = strings.ToLower(slug)
	for _, sub := range genericSlugSubstrings {
		if strings.Contains(slug, sub) {
			return true
		}
	}
	for _, token := range strings.Split(slug, "-") {
		if token == "stip" {
			return true
		}
	}
	return false
}
