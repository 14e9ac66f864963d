package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Climate Policy", "climate-policy"},
		{"AI & Machine Learning", "ai-machine-learning"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"already-slugged", "already-slugged"},
		{"Space/Exploration!!", "space-exploration"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Slugify(tc.in))
		})
	}
}
