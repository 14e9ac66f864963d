package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNoContentScript(t *testing.T) {
	cases := []struct {
		name   string
		script string
		want   bool
	}{
		{"fixed no-content template", "There's no new Climate Policy content that met today's bar for inclusion. We'll be back tomorrow with the next qualifying episodes.", true},
		{"real script never carries the marker", "Today on Climate Policy: three new reports on emissions targets...", false},
		{"empty script", "", false},
		{
			"marker phrase embedded in an implausibly long script is not treated as no-content",
			longScriptWithMarker(),
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isNoContentScript(tc.script))
		})
	}
}

func longScriptWithMarker() string {
	padding := ""
	for i := 0; i < 50; i++ {
		padding += "this topic had a lot of qualifying episodes today. "
	}
	return padding + "none of them met today's bar for inclusion, oddly enough."
}
