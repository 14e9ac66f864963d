package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geraldfingburke/dailydigest/internal/taxonomy"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil error exits zero", nil, 0},
		{"config missing exits two", taxonomy.NewConfigMissing("rss.channel_title"), 2},
		{"transient exits three", taxonomy.NewTransient("github upload", errors.New("status 503")), 3},
		{"anything else exits one", errors.New("unexpected"), 1},
		{"input invalid exits one", taxonomy.NewInputInvalid("bad score", nil), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestToSet(t *testing.T) {
	set := toSet([]string{PhaseAudio, PhaseDigest})
	assert.True(t, set[PhaseAudio])
	assert.True(t, set[PhaseDigest])
	assert.False(t, set[PhaseTTS])
}

func TestAllPhasesOrder(t *testing.T) {
	want := []string{PhaseDiscovery, PhaseAudio, PhaseDigest, PhaseTTS, PhasePublishing, PhaseRetention}
	assert.Equal(t, want, AllPhases)
}
