package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicScoresValueAndScan(t *testing.T) {
	scores := TopicScores{"climate": 0.82, "space": 0.14}

	v, err := scores.Value()
	require.NoError(t, err)
	b, ok := v.([]byte)
	require.True(t, ok, "Value() returned %T, want []byte", v)

	var round TopicScores
	require.NoError(t, round.Scan(b))
	assert.Equal(t, 0.82, round["climate"])
	assert.Equal(t, 0.14, round["space"])
}

func TestTopicScoresValueNil(t *testing.T) {
	var scores TopicScores
	v, err := scores.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTopicScoresScanNull(t *testing.T) {
	scores := TopicScores{"climate": 1}
	require.NoError(t, scores.Scan(nil))
	assert.Nil(t, scores)
}

func TestTopicScoresMax(t *testing.T) {
	t.Run("empty map", func(t *testing.T) {
		var scores TopicScores
		_, ok := scores.Max()
		assert.False(t, ok)
	})

	t.Run("returns the highest score", func(t *testing.T) {
		scores := TopicScores{"a": 0.2, "b": 0.9, "c": 0.5}
		max, ok := scores.Max()
		require.True(t, ok)
		assert.Equal(t, 0.9, max)
	})
}

func TestInt64ArrayValueAndScan(t *testing.T) {
	ids := Int64Array{1, 2, 3}
	v, err := ids.Value()
	require.NoError(t, err)

	var round Int64Array
	require.NoError(t, round.Scan(v))
	assert.Equal(t, Int64Array{1, 2, 3}, round)
}

func TestInt64ArrayValueNilEmitsEmptyArray(t *testing.T) {
	var ids Int64Array
	v, err := ids.Value()
	require.NoError(t, err)
	b, ok := v.([]byte)
	require.True(t, ok)
	assert.Equal(t, "[]", string(b))
}

func TestDigestTopicSlug(t *testing.T) {
	d := Digest{Topic: "Climate Policy"}
	assert.Equal(t, "climate-policy", d.TopicSlug())
}
