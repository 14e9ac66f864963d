package tts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFallbackTitle(t *testing.T) {
	d := time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)
	got := FallbackTitle("Space Exploration", d)
	assert.Equal(t, "Space Exploration Daily Digest - July 31, 2026", got)
}
