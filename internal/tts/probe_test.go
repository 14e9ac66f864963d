package tts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFraming(t *testing.T) {
	p := NewProber()

	write := func(t *testing.T, contents []byte) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "candidate.mp3")
		require.NoError(t, os.WriteFile(path, contents, 0o644))
		return path
	}

	t.Run("accepts an ID3-tagged file", func(t *testing.T) {
		path := write(t, append([]byte("ID3"), make([]byte, 32)...))
		assert.NoError(t, p.checkFraming(path))
	})

	t.Run("accepts a raw MPEG frame sync", func(t *testing.T) {
		path := write(t, []byte{0xFF, 0xFB, 0x90, 0x00, 0x00})
		assert.NoError(t, p.checkFraming(path))
	})

	t.Run("rejects neither marker", func(t *testing.T) {
		path := write(t, []byte("not an mp3 at all"))
		assert.Error(t, p.checkFraming(path))
	})

	t.Run("rejects a file too short to contain a header", func(t *testing.T) {
		path := write(t, []byte{0x01})
		assert.Error(t, p.checkFraming(path))
	})
}

func TestProbeRejectsEmptyFile(t *testing.T) {
	p := NewProber()
	path := filepath.Join(t.TempDir(), "empty.mp3")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := p.Probe(t.Context(), path, true)
	assert.Error(t, err, "Probe() should error for an empty file")
}
