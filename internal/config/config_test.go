package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseDSN(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err, "expected Load() to fail when no database DSN is set")
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DAILYDIGEST_DATABASE_DSN", "postgres://localhost/dailydigest")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/var/lib/dailydigest/staging", cfg.Staging.RootDir)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("DAILYDIGEST_DATABASE_DSN", "postgres://localhost/dailydigest")
	t.Setenv("DAILYDIGEST_SERVER_ADDR", ":9090")
	t.Setenv("DAILYDIGEST_LOGGING_PRETTY", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Logging.Pretty)
}
