package taxonomy

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConfigMissing(t *testing.T) {
	t.Run("matches a bare ConfigMissingError", func(t *testing.T) {
		err := NewConfigMissing("pipeline.max_retries")
		assert.True(t, IsConfigMissing(err))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("build deps: %w", NewConfigMissing("rss.channel_title"))
		assert.True(t, IsConfigMissing(err))
	})

	t.Run("does not match unrelated errors", func(t *testing.T) {
		assert.False(t, IsConfigMissing(errors.New("boom")))
		assert.False(t, IsConfigMissing(nil))
	})
}

func TestIsTransient(t *testing.T) {
	err := fmt.Errorf("phase failed: %w", NewTransient("tts synthesis", errors.New("dial timeout")))
	assert.True(t, IsTransient(err))
	assert.False(t, IsTransient(NewInputInvalid("bad script", nil)))
}

func TestIsStateConflict(t *testing.T) {
	err := NewStateConflict(errors.New("duplicate key value"))
	assert.True(t, IsStateConflict(err))
}

func TestErrorMessagesIncludeContext(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"config missing without cause", NewConfigMissing("tts_generation.model"), "config missing: tts_generation.model"},
		{"transient with cause", NewTransient("github upload", errors.New("status 503")), "transient (github upload): status 503"},
		{"input invalid with cause", NewInputInvalid("score out of range", errors.New("1.5")), "invalid input (score out of range): 1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransient("tts synthesis", cause)
	assert.ErrorIs(t, err, cause)
}
