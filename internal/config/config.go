package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/elonfeng/rentradar/pkg/score"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Origin   string         `yaml:"origin"`
	Maps     MapsConfig     `yaml:"maps"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Feeds    []FeedItem     `yaml:"feeds"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Spiel    SpielConfig    `yaml:"spiel"`
}

// DatabaseConfig selects the listing store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "json", "sqlite" or "postgres"
	Path   string `yaml:"path"`   // json file or sqlite database
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// ScoringConfig holds the weights and options for the scoring engine.
type ScoringConfig struct {
	Weights    score.Weights `yaml:"weights"`
	RatingAxis bool          `yaml:"rating_axis"`
}

// Options returns the engine options.
func (s ScoringConfig) Options() score.Options {
	return score.Options{RatingAxis: s.RatingAxis}
}

// MapsConfig configures commute distance lookups.
type MapsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ScraperConfig configures listing page acquisition.
type ScraperConfig struct {
	Mode      string            `yaml:"mode"` // "browser" or "http"
	Headless  bool              `yaml:"headless"`
	ChromeBin string            `yaml:"chrome_bin"`
	Timeout   string            `yaml:"timeout"`
	Retries   int               `yaml:"retries"`
	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers"`
}

// ParseTimeout returns the page timeout as time.Duration.
func (s ScraperConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// FeedItem is a saved search feed that yields listing URLs.
type FeedItem struct {
	Name    string   `yaml:"name"`
	URL     string   `yaml:"url"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// ScheduleConfig configures the discovery loop.
type ScheduleConfig struct {
	CollectInterval string `yaml:"collect_interval"`
	Occupants       int    `yaml:"occupants"`
	Rating          int    `yaml:"rating"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// SpielConfig locates the saved application text.
type SpielConfig struct {
	Path string `yaml:"path"`
}

// DefaultHeaders mimic a desktop browser request.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Cache-Control":             "max-age=0",
		"DNT":                       "1",
		"Referer":                   "https://www.zillow.com/",
		"Upgrade-Insecure-Requests": "1",
	}
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "json", Path: "./listings.json"},
		Scoring:  ScoringConfig{Weights: score.DefaultWeights()},
		Maps: MapsConfig{
			BaseURL: "https://maps.googleapis.com/maps/api/distancematrix/json",
		},
		Scraper: ScraperConfig{
			Mode:      "browser",
			Headless:  true,
			Timeout:   "60s",
			Retries:   3,
			UserAgent: defaultUserAgent,
			Headers:   DefaultHeaders(),
		},
		Schedule: ScheduleConfig{
			CollectInterval: "30m",
			Rating:          5,
		},
		Server: ServerConfig{Port: 5000},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Spiel: SpielConfig{Path: "./application-spiel.txt"},
	}
}

// Load reads configuration from a YAML file, then a .env file if present,
// and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "json", "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for driver %s", c.Database.Driver)
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver postgres")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Scraper.Mode {
	case "browser", "http":
	default:
		return fmt.Errorf("unknown scraper mode %q", c.Scraper.Mode)
	}
	if err := c.Scoring.Weights.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RENTRADAR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RENTRADAR_DB_DSN"); v != "" {
		cfg.Database.DSN = v
		cfg.Database.Driver = "postgres"
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Maps.APIKey = v
	}
	if v := os.Getenv("CHROME_BIN"); v != "" {
		cfg.Scraper.ChromeBin = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("RENTRADAR_ORIGIN"); v != "" {
		cfg.Origin = v
	}
	if v := os.Getenv("RENTRADAR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}
