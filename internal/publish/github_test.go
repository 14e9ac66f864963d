package publish

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

func TestDailyTag(t *testing.T) {
	d := time.Date(2026, time.July, 31, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "daily-2026-07-31", DailyTag(d))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&notFoundError{}))
	assert.False(t, isNotFound(taxonomy.NewTransient("ensure tag", errors.New("status 503"))))
	assert.False(t, isNotFound(nil))
}
