package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractForumTopicID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string // "" means nil
	}{
		{
			name:     "plain topic url",
			url:      "https://forum.arbitrum.foundation/t/treasury-swap/12345",
			expected: "12345",
		},
		{
			name:     "trailing query string",
			url:      "https://forum.arbitrum.foundation/t/treasury-swap/12345?u=alice",
			expected: "12345",
		},
		{
			name:     "fragment identifier",
			url:      "https://forum.arbitrum.foundation/t/treasury-swap/12345#post-2",
			expected: "12345",
		},
		{
			name:     "entity encoded ampersand",
			url:      "https://forum.arbitrum.foundation/t/treasury-swap/12345?a=1&amp;b=2",
			expected: "12345",
		},
		{
			name:     "slug without id",
			url:      "https://forum.arbitrum.foundation/t/treasury-swap",
			expected: "",
		},
		{
			name:     "not a forum url",
			url:      "https://example.com/blog/12345",
			expected: "",
		},
		{
			name:     "empty",
			url:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractForumTopicID(tt.url)
			if tt.expected == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, *got)
		})
	}
}

func TestExtractSnapshotID(t *testing.T) {
	got := ExtractSnapshotID("https://snapshot.org/#/arbitrumfoundation.eth/proposal/0xabc123def")
	require.NotNil(t, got)
	assert.Equal(t, "0xabc123def", *got)

	assert.Nil(t, ExtractSnapshotID("https://forum.arbitrum.foundation/t/x/1"))
	assert.Nil(t, ExtractSnapshotID(""))
}

func TestExtractTallyID(t *testing.T) {
	got := ExtractTallyID("https://www.tally.xyz/gov/arbitrum/proposal/7712891")
	require.NotNil(t, got)
	assert.Equal(t, "7712891", *got)

	assert.Nil(t, ExtractTallyID("https://www.tally.xyz/gov/arbitrum"))
	assert.Nil(t, ExtractTallyID(""))
}

func TestExtractForumLinks(t *testing.T) {
	body := `Discussion: https://forum.arbitrum.foundation/t/treasury-swap/12345
and see also forum.arbitrum.foundation/t/grants-program for background.`

	links := ExtractForumLinks(body)
	require.Len(t, links, 2)

	assert.Equal(t, "treasury-swap", links[0].Slug)
	require.NotNil(t, links[0].TopicID)
	assert.Equal(t, "12345", *links[0].TopicID)

	// id absent from the visible link text
	assert.Equal(t, "grants-program", links[1].Slug)
	assert.Nil(t, links[1].TopicID)
}

func TestExtractForumLinks_OrderPreserved(t *testing.T) {
	body := "forum.x.com/t/first/1 then forum.x.com/t/second/2"
	links := ExtractForumLinks(body)
	require.Len(t, links, 2)
	assert.Equal(t, "first", links[0].Slug)
	assert.Equal(t, "second", links[1].Slug)
}

func TestExtractForumLinks_Empty(t *testing.T) {
	assert.Nil(t, ExtractForumLinks(""))
	assert.Empty(t, ExtractForumLinks("no links here"))
}

func TestIsGenericSlug(t *testing.T) {
	assert.True(t, IsGenericSlug("short-term-incentive-program"))
	assert.True(t, IsGenericSlug("arbitrum-arbos-upgrades"))
	assert.True(t, IsGenericSlug("stip-round-1"))
	assert.True(t, IsGenericSlug("protocol-stip-application"))

	assert.False(t, IsGenericSlug("treasury-swap"))
	assert.False(t, IsGenericSlug("stipulation-agreement")) // substring, not a token
}
