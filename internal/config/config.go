// Package config loads bootstrap configuration — the handful of values
// needed before the Settings Store can even be reached: where the database
// lives, where the HTTP server listens, where staging files go, and which
// credentials unlock the external LLM/TTS/artifact-host collaborators.
//
// This is deliberately separate from internal/settings. Bootstrap config
// answers "where do I connect"; the Settings Store answers "how do I
// behave". Only the Settings Store follows the fail-fast, no-silent-default
// rule for every key — bootstrap values may carry narrow, documented
// defaults because they are operational, not behavioral.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every bootstrap value read from environment variables or an
// optional config file before the pipeline touches the database.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Staging   StagingConfig   `mapstructure:"staging"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Artifact  ArtifactConfig  `mapstructure:"artifact"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatabaseConfig holds the State Store connection string.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServerConfig holds HTTP listen settings for the `serve` command.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StagingConfig holds the local filesystem root used for transient chunk
// and MP3 files (§4.4, §4.6).
type StagingConfig struct {
	RootDir string `mapstructure:"root_dir"`
}

// OpenAIConfig holds credentials for the LLM collaborator (Scorer, Script
// Generator, TTS metadata generator all share one client, see §11).
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// TTSConfig holds credentials for the external TTS collaborator.
type TTSConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ArtifactConfig holds credentials for the GitHub-Releases-shaped artifact
// host (§6.4, §11).
type ArtifactConfig struct {
	Token string `mapstructure:"token"`
	Owner string `mapstructure:"owner"`
	Repo  string `mapstructure:"repo"`
}

// SchedulerConfig holds the bootstrap half of scheduling; the cron
// expression itself is a domain Setting (scheduler.cron_expression, §6.1)
// and is read at schedule-start, not here.
type SchedulerConfig struct {
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// LoggingConfig controls zerolog's global level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads bootstrap configuration from environment variables prefixed
// DAILYDIGEST_ (nested keys via underscore, e.g. DAILYDIGEST_DATABASE_DSN)
// and, if present, a config file named by configPath.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DAILYDIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal bootstrap config: %w", err)
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DAILYDIGEST_DATABASE_DSN (or database.dsn) is required")
	}

	return &cfg, nil
}

// setDefaults registers every key Load can populate. viper's Unmarshal only
// sees keys already known to its internal registry (config file, defaults,
// flags, explicit BindEnv) — AutomaticEnv alone does not make Unmarshal
// discover a brand-new env-var-only key, so every field, including the ones
// with no sensible default, needs a registration (empty string is enough to
// make Unmarshal see it; the required-ness checks in Load still apply).
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("staging.root_dir", "/var/lib/dailydigest/staging")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("tts.api_key", "")
	v.SetDefault("tts.base_url", "https://api.openai.com/v1")
	v.SetDefault("artifact.token", "")
	v.SetDefault("artifact.owner", "")
	v.SetDefault("artifact.repo", "")
	v.SetDefault("scheduler.run_timeout", 6*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
}
