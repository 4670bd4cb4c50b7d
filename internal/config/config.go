// Package config loads every tunable named in spec §6 from environment
// variables (and an optional .env file), with the listed defaults.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"voicekeep/internal/fslayout"
)

// Config holds every runtime tunable for the daemon.
type Config struct {
	// Filesystem roots (spec §6 layout)
	AudioRoot   string
	CuratorRoot string
	ProfileRoot string
	StateRoot   string

	WatchDir string // directory the Watch-Folder Ingester observes

	// Orchestrator
	PollIntervalSec      int
	MinPlaybackDurationSec int
	OrphanAgeHours       int

	// Watch-Folder Ingester
	WatchPollIntervalSec int
	StableChecks         int
	StableIntervalSec    int
	MaxStabilityAttempts int
	TranscodeTimeoutSec  int

	// Ambient
	LogLevel        string
	HTTPAddr        string
	IndexDBPath     string
	EmbedServiceURL string
}

// Layout builds an fslayout.Layout from the configured roots.
func (c *Config) Layout() fslayout.Layout {
	return fslayout.Layout{
		AudioRoot:   c.AudioRoot,
		CuratorRoot: c.CuratorRoot,
		ProfileRoot: c.ProfileRoot,
		StateRoot:   c.StateRoot,
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c *Config) MinPlaybackDuration() time.Duration {
	return time.Duration(c.MinPlaybackDurationSec) * time.Second
}

func (c *Config) OrphanAge() time.Duration {
	return time.Duration(c.OrphanAgeHours) * time.Hour
}

func (c *Config) WatchPollInterval() time.Duration {
	return time.Duration(c.WatchPollIntervalSec) * time.Second
}

func (c *Config) StableInterval() time.Duration {
	return time.Duration(c.StableIntervalSec) * time.Second
}

func (c *Config) TranscodeTimeout() time.Duration {
	return time.Duration(c.TranscodeTimeoutSec) * time.Second
}

// Load reads configuration from a .env file (if present) then the
// environment, falling back to spec-listed defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		AudioRoot:   getEnv("AUDIO_ROOT", filepath.Join(dataDir, "audio")),
		CuratorRoot: getEnv("CURATOR_ROOT", filepath.Join(dataDir, "curator")),
		ProfileRoot: getEnv("PROFILE_ROOT", filepath.Join(dataDir, "speakers")),
		StateRoot:   getEnv("STATE_ROOT", filepath.Join(dataDir, "state")),
		WatchDir:    getEnv("WATCH_DIR", filepath.Join(dataDir, "watch")),

		PollIntervalSec:        getEnvAsInt("POLL_INTERVAL_SEC", 5),
		MinPlaybackDurationSec: getEnvAsInt("MIN_PLAYBACK_DURATION_SEC", 10),
		OrphanAgeHours:         getEnvAsInt("ORPHAN_AGE_HOURS", 24),

		WatchPollIntervalSec: getEnvAsInt("WATCH_POLL_INTERVAL_SEC", 30),
		StableChecks:         getEnvAsInt("STABLE_CHECKS", 3),
		StableIntervalSec:    getEnvAsInt("STABLE_INTERVAL_SEC", 2),
		MaxStabilityAttempts: getEnvAsInt("MAX_STABILITY_ATTEMPTS", 30),
		TranscodeTimeoutSec:  getEnvAsInt("TRANSCODE_TIMEOUT_SEC", 300),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		EmbedServiceURL: getEnv("EMBED_SERVICE_URL", "http://localhost:9000"),
	}
	cfg.IndexDBPath = getEnv("INDEX_DB_PATH", filepath.Join(cfg.StateRoot, "index.db"))

	if cfg.PollIntervalSec < 1 {
		cfg.PollIntervalSec = 1
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
