package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDailyTag(t *testing.T) {
	t.Run("parses a well-formed daily tag", func(t *testing.T) {
		got, ok := parseDailyTag("daily-2026-02-14")
		require.True(t, ok)
		want := time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)
		assert.True(t, got.Equal(want), "parseDailyTag() = %v, want %v", got, want)
	})

	t.Run("rejects tags without the daily- prefix", func(t *testing.T) {
		_, ok := parseDailyTag("weekly-2026-02-14")
		assert.False(t, ok)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, ok := parseDailyTag("daily-not-a-date")
		assert.False(t, ok)
	})
}
