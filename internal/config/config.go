package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Output   OutputConfig   `yaml:"output"`
	Archive  ArchiveConfig  `yaml:"archive"`
	News     NewsConfig     `yaml:"news"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig holds the NPS API credential. Endpoints and limits are fixed.
type APIConfig struct {
	Key string `yaml:"key"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig sets where raw snapshots and fetch logs are written.
type OutputConfig struct {
	DataDir string `yaml:"data_dir"`
	LogsDir string `yaml:"logs_dir"`
}

// ArchiveConfig configures optional off-host copies of raw snapshots.
type ArchiveConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config for the S3 snapshot archive.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// NewsConfig for per-park news feeds.
type NewsConfig struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// FeedItem is a single news feed entry.
type FeedItem struct {
	Name     string `yaml:"name"`
	ParkCode string `yaml:"park_code"`
	URL      string `yaml:"url"`
}

// AlertsConfig configures sync report destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook reports.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook reports.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// MetricsConfig configures metric export for batch runs.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./parks.db"},
		Output: OutputConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
		Archive: ArchiveConfig{
			S3: S3Config{Region: "us-east-1", Prefix: "nps"},
		},
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
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

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Archive.S3.Enabled && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.enabled is true but no bucket is set")
	}
	if c.News.Enabled {
		for i, f := range c.News.Feeds {
			if f.Name == "" || f.URL == "" {
				return fmt.Errorf("news.feeds[%d]: name and url are required", i)
			}
		}
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NPS_API_KEY"); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("PARKSYNC_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PARKSYNC_DATA_DIR"); v != "" {
		cfg.Output.DataDir = v
	}
	if v := os.Getenv("PARKSYNC_LOGS_DIR"); v != "" {
		cfg.Output.LogsDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PARKSYNC_S3_BUCKET"); v != "" {
		cfg.Archive.S3.Bucket = v
		cfg.Archive.S3.Enabled = true
	}
	if v := os.Getenv("PARKSYNC_S3_REGION"); v != "" {
		cfg.Archive.S3.Region = v
	}
	if v := os.Getenv("PARKSYNC_S3_ENDPOINT"); v != "" {
		cfg.Archive.S3.Endpoint = v
	}
	if v := os.Getenv("PARKSYNC_S3_PATH_STYLE"); v != "" {
		cfg.Archive.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("PARKSYNC_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Webhook.URL = v
		cfg.Alerts.Webhook.Enabled = true
	}
	if v := os.Getenv("PARKSYNC_WEBHOOK_SECRET"); v != "" {
		cfg.Alerts.Webhook.Secret = v
	}
	if v := os.Getenv("PARKSYNC_METRICS_FILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
}
