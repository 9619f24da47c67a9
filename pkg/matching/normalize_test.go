package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bracketed sequence prefix",
			input:    "[AIP-12] Treasury Swap",
			expected: "treasury swap",
		},
		{
			name:     "constitutional label",
			input:    "Constitutional: Activate Upgrade",
			expected: "activate upgrade",
		},
		{
			name:     "non-constitutional label",
			input:    "[Non-Constitutional] Fund the Grants Program",
			expected: "fund the grants program",
		},
		{
			name:     "markdown header",
			input:    "# Treasury Swap",
			expected: "treasury swap",
		},
		{
			name:     "updated marker",
			input:    "[UPDATED] Treasury Swap",
			expected: "treasury swap",
		},
		{
			name:     "html entities decoded",
			input:    "Research &amp; Development",
			expected: "research development",
		},
		{
			name:     "punctuation stripped and whitespace collapsed",
			input:    "Treasury   Swap  (v2)!",
			expected: "treasury swap v2",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTitle(tt.input))
		})
	}
}

func TestCalculateSimilarity_IdenticalNormalized(t *testing.T) {
	// Prefix drift normalizes away, so these are identical and score 100.
	assert.Equal(t, 100, CalculateSimilarity("[AIP-12] Treasury Swap", "Treasury Swap"))
	assert.Equal(t, 100, CalculateSimilarity("Treasury Swap", "Treasury Swap"))
}

func TestCalculateSimilarity_NoSharedTokens(t *testing.T) {
	assert.Equal(t, 0, CalculateSimilarity("Treasury Swap", "Security Council"))
}

func TestCalculateSimilarity_ShortTokensIgnored(t *testing.T) {
	// Only tokens longer than two characters count, so overlap limited to
	// stopword-sized tokens scores zero.
	assert.Equal(t, 0, CalculateSimilarity("an ox", "an elephant"))
}

func TestCalculateSimilarity_PartialOverlap(t *testing.T) {
	// tokens: {treasury, swap, proposal} vs {treasury, swap}
	// intersection 2, union 3 -> 66
	assert.Equal(t, 66, CalculateSimilarity("Treasury Swap Proposal", "Treasury Swap"))
}

func TestCalculateSimilarity_EmptyInput(t *testing.T) {
	assert.Equal(t, 0, CalculateSimilarity("", "Treasury Swap"))
	assert.Equal(t, 0, CalculateSimilarity("Treasury Swap", ""))
	assert.Equal(t, 0, CalculateSimilarity("", ""))
}

func TestTitleToSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Treasury Swap", "treasury-swap"},
		{"Fund the Grants Program!", "fund-the-grants-program"},
		{"Research &amp; Development", "research-development"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TitleToSlug(tt.input), "input %q", tt.input)
	}
}

func TestSlugSimilarity(t *testing.T) {
	assert.Equal(t, 100, SlugSimilarity("treasury-swap", "treasury-swap"))
	assert.Equal(t, 0, SlugSimilarity("treasury-swap", "security-council"))
	assert.Equal(t, 0, SlugSimilarity("", "treasury-swap"))

	// {treasury, swap, proposal} vs {treasury, swap}: 2/3
	assert.Equal(t, 66, SlugSimilarity("treasury-swap-proposal", "treasury-swap"))
}
