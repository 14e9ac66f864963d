package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateNoContentScriptMentionsTopicAndMarker(t *testing.T) {
	script := GenerateNoContentScript("Climate Policy")
	assert.Contains(t, script, "Climate Policy")
	assert.Contains(t, script, "met today's bar for inclusion")
}

func TestTruncateToLimit(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		maxChars int
		want     string
	}{
		{"under limit is untouched", "short text", 100, "short text"},
		{"exact limit is untouched", "12345", 5, "12345"},
		{"over limit retains earliest characters", "0123456789", 4, "0123"},
		{"zero limit means unbounded", "0123456789", 0, "0123456789"},
		{"negative limit means unbounded", "0123456789", -1, "0123456789"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TruncateToLimit(tc.text, tc.maxChars))
		})
	}
}
