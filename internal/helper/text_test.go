package helper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/abc123", "abc123"},
		{"podcast page", "https://example.com/podcasts/episode-42", "episode-42"},
		{"trailing slash", "https://example.com/podcasts/episode-42/", "episode-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MediaID(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMediaIDErrors(t *testing.T) {
	for _, raw := range []string{"", "   ", "https://example.com/"} {
		_, err := MediaID(raw)
		assert.ErrorIs(t, err, ErrNoMediaID, "url %q", raw)
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 50))
	assert.Equal(t, "", TruncateRunes("héllo", 0))
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := Preview(long, 100)
	assert.Equal(t, strings.Repeat("a", 100)+"...", got)
	assert.Equal(t, "short...", Preview("short", 100))
}

func TestFlattenNewlines(t *testing.T) {
	assert.Equal(t, "- one - two - three", FlattenNewlines("- one\n- two\r\n- three"))
}
