package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".ruthless"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .ruthless configuration file.
// Zero values mean "not set" and leave the corresponding option alone.
type File struct {
	Storage StorageSection `yaml:"storage,omitempty"`
	Fetch   FetchSection   `yaml:"fetch,omitempty"`
	Crawl   CrawlSection   `yaml:"crawl,omitempty"`
	Dedup   DedupSection   `yaml:"dedup,omitempty"`
	Metrics MetricsSection `yaml:"metrics,omitempty"`
}

// StorageSection configures the page store.
type StorageSection struct {
	Driver         string `yaml:"driver,omitempty"`
	DSN            string `yaml:"dsn,omitempty"`
	Dir            string `yaml:"dir,omitempty"`
	ConnectRetries int    `yaml:"connectRetries,omitempty"`
}

// FetchSection configures the HTTP fetcher.
type FetchSection struct {
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxRedirects int           `yaml:"maxRedirects,omitempty"`
	MaxBodySize  int64         `yaml:"maxBodySize,omitempty"`
	UserAgent    string        `yaml:"userAgent,omitempty"`
	Proxy        string        `yaml:"proxy,omitempty"`
}

// CrawlSection configures the crawl loop.
type CrawlSection struct {
	Workers      int           `yaml:"workers,omitempty"`
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
}

// DedupSection configures the shared Redis dedup cache.
type DedupSection struct {
	RedisURL string        `yaml:"redisURL,omitempty"`
	RunID    string        `yaml:"runID,omitempty"`
	Prefix   string        `yaml:"prefix,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Addr string `yaml:"addr,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .ruthless in the current directory
// 3. Look for .ruthless in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply copies the values set in the file into cfg. explicit reports whether
// the user set a flag on the command line; such options keep the flag value.
// A nil explicit treats every flag as unset.
func (cf *File) Apply(cfg *Config, explicit func(flag string) bool) {
	if explicit == nil {
		explicit = func(string) bool { return false }
	}

	setString := func(flag string, dst *string, v string) {
		if v != "" && !explicit(flag) {
			*dst = v
		}
	}
	setInt := func(flag string, dst *int, v int) {
		if v != 0 && !explicit(flag) {
			*dst = v
		}
	}
	setDuration := func(flag string, dst *time.Duration, v time.Duration) {
		if v != 0 && !explicit(flag) {
			*dst = v
		}
	}

	setString("driver", &cfg.Driver, cf.Storage.Driver)
	setString("dsn", &cfg.DSN, cf.Storage.DSN)
	setString("db-dir", &cfg.DBDir, cf.Storage.Dir)
	setInt("connect-retries", &cfg.ConnectRetries, cf.Storage.ConnectRetries)

	setDuration("timeout", &cfg.FetchTimeout, cf.Fetch.Timeout)
	setInt("max-redirects", &cfg.MaxRedirects, cf.Fetch.MaxRedirects)
	if cf.Fetch.MaxBodySize != 0 && !explicit("max-body-size") {
		cfg.MaxBodySize = cf.Fetch.MaxBodySize
	}
	setString("user-agent", &cfg.UserAgent, cf.Fetch.UserAgent)
	setString("proxy", &cfg.ProxyAddress, cf.Fetch.Proxy)

	setInt("workers", &cfg.Workers, cf.Crawl.Workers)
	setDuration("poll-interval", &cfg.PollInterval, cf.Crawl.PollInterval)

	setString("redis-url", &cfg.RedisURL, cf.Dedup.RedisURL)
	setString("run-id", &cfg.RunID, cf.Dedup.RunID)
	setString("redis-prefix", &cfg.RedisPrefix, cf.Dedup.Prefix)
	setDuration("redis-ttl", &cfg.RedisTTL, cf.Dedup.TTL)

	setString("metrics-addr", &cfg.MetricsAddr, cf.Metrics.Addr)
}
