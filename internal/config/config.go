// Package config loads the daemon configuration from TOML files.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// MaxQueues bounds the number of queues kept on the board
	// (oldest evicted first). Default: 20.
	MaxQueues int `koanf:"max_queues"`

	// PersistQueue enables restoring the queue board on startup.
	PersistQueue *bool `koanf:"persist_queue"`

	// SkipOnError advances to the next track on an unclassified playback
	// error instead of stopping.
	SkipOnError *bool `koanf:"skip_on_error"`

	// AudioQuality is the preferred stream quality: "low", "high" or "auto".
	AudioQuality string `koanf:"audio_quality"`

	Stream  StreamConfig  `koanf:"stream"`
	Catalog CatalogConfig `koanf:"catalog"`
	Session SessionConfig `koanf:"session"`
	Lyrics  LyricsConfig  `koanf:"lyrics"`
}

// StreamConfig holds stream resolution settings.
type StreamConfig struct {
	// ExpiryMarginSeconds is the remaining lifetime below which a cached
	// stream URL is treated as stale (default: 30).
	ExpiryMarginSeconds int `koanf:"expiry_margin_seconds"`

	// TimeoutSeconds is the network timeout for stream resolution (default: 30).
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

// CatalogConfig holds remote catalog client settings.
type CatalogConfig struct {
	BaseURL       string  `koanf:"base_url"`
	RatePerSecond float64 `koanf:"rate_per_second"` // request rate limit (default: 4)
}

// SessionConfig holds media session settings.
type SessionConfig struct {
	MPRIS         *bool `koanf:"mpris"`         // expose playback over MPRIS (default: true)
	Notifications *bool `koanf:"notifications"` // desktop notifications on track change (default: true)
}

// LyricsConfig holds lyrics lookup settings.
type LyricsConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Catalog.BaseURL = strings.TrimSuffix(cfg.Catalog.BaseURL, "/")

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/aria/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "aria", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

// GetMaxQueues returns the queue board capacity with the default applied.
func (c *Config) GetMaxQueues() int {
	if c.MaxQueues <= 0 {
		return 20
	}
	return c.MaxQueues
}

// GetPersistQueue reports whether queue restore is enabled (default: true).
func (c *Config) GetPersistQueue() bool {
	return c.PersistQueue == nil || *c.PersistQueue
}

// GetSkipOnError reports whether skip-on-error is enabled (default: true).
func (c *Config) GetSkipOnError() bool {
	return c.SkipOnError == nil || *c.SkipOnError
}

// GetAudioQuality returns the preferred quality with the default applied.
func (c *Config) GetAudioQuality() string {
	switch c.AudioQuality {
	case "low", "high", "auto":
		return c.AudioQuality
	}
	return "auto"
}

// GetStreamConfig returns the stream configuration with defaults applied.
func (c *Config) GetStreamConfig() StreamConfig {
	cfg := c.Stream
	if cfg.ExpiryMarginSeconds <= 0 {
		cfg.ExpiryMarginSeconds = 30
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	return cfg
}

// GetCatalogConfig returns the catalog configuration with defaults applied.
func (c *Config) GetCatalogConfig() CatalogConfig {
	cfg := c.Catalog
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 4
	}
	return cfg
}

// MPRISEnabled reports whether the MPRIS adapter should be started.
func (c *Config) MPRISEnabled() bool {
	return c.Session.MPRIS == nil || *c.Session.MPRIS
}

// NotificationsEnabled reports whether track-change notifications are sent.
func (c *Config) NotificationsEnabled() bool {
	return c.Session.Notifications == nil || *c.Session.Notifications
}

// LyricsEnabled reports whether lyrics lookup is enabled.
func (c *Config) LyricsEnabled() bool {
	return c.Lyrics.Enabled == nil || *c.Lyrics.Enabled
}
