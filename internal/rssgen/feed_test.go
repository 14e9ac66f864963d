package rssgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicTitle(t *testing.T) {
	d := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	got := deterministicTitle("Climate Policy", d)
	assert.Equal(t, "Climate Policy Daily Digest - March 5, 2026", got)
}

func TestFormatHHMMSS(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{3661, "01:01:01"},
		{7325, "02:02:05"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatHHMMSS(tc.seconds))
	}
}
