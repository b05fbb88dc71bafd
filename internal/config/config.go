package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ruthless"

	// DefaultDriver stores pages in a local SQLite file.
	DefaultDriver = "sqlite"

	// DefaultWorkers keeps the crawl sequential.
	DefaultWorkers = 1

	// DefaultFetchTimeout bounds one fetch including its redirects.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRedirects is the redirect limit per fetch.
	DefaultMaxRedirects = 10

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultPollInterval is how long an idle worker waits for others to
	// enqueue work.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultConnectRetries is how often the initial database ping is retried.
	DefaultConnectRetries = 3

	// DefaultRedisPrefix namespaces dedup keys in Redis.
	DefaultRedisPrefix = "ruthless:seen"

	// DefaultRedisTTL is how long an idle dedup set survives in Redis.
	DefaultRedisTTL = 24 * time.Hour
)

// Version is reported in the default User-Agent. It is set by the cmd
// package at startup.
var Version = "dev"

// DefaultUserAgent returns the User-Agent sent with every request.
func DefaultUserAgent() string {
	return AppName + "/" + Version
}

// Config holds all configuration options for ruthless.
// It is populated from defaults, the config file and CLI flags, and passed
// down explicitly rather than kept in globals.
type Config struct {
	// Driver selects the page store backend: "sqlite" or "postgres".
	Driver string

	// DSN is the PostgreSQL connection string. Ignored for SQLite.
	DSN string

	// DBDir is the directory holding the SQLite database file.
	// Defaults to the XDG data directory (~/.local/share/ruthless on Linux).
	DBDir string

	// ConnectRetries is how many times a failing initial database ping is retried.
	ConnectRetries int

	// Tag names the crawl. Every seed and every page discovered from it
	// carries the tag; the same URL may be crawled once per tag.
	Tag string

	// Seeds are the URLs to insert before crawling.
	Seeds []string

	// SeedDepth is the depth given to seeds. Re-seeding an existing URL
	// forces its depth to this value.
	SeedDepth int

	// Workers is the number of pages processed concurrently.
	Workers int

	// PollInterval is how long an idle worker waits while others are busy.
	PollInterval time.Duration

	// FetchTimeout bounds a single fetch including redirects.
	FetchTimeout time.Duration

	// MaxRedirects is the redirect limit per fetch.
	MaxRedirects int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger responses are truncated.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ProxyAddress routes fetches through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string

	// RedisURL enables the Redis dedup cache shared by all workers and
	// processes of a run (see RunID). Empty means an in-memory cache.
	RedisURL string

	// RunID names the crawl run. Processes sharing a run id and a RedisURL
	// share one dedup cache. Empty means a fresh id per process.
	RunID string

	// RedisPrefix namespaces dedup keys.
	RedisPrefix string

	// RedisTTL is the expiry of a run's dedup sets.
	RedisTTL time.Duration

	// MetricsAddr serves Prometheus metrics on this address when set.
	MetricsAddr string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// JSONLog switches log output to JSON.
	JSONLog bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .ruthless in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// JSONReport selects JSON output for the status report.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output for the status report.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Driver:         DefaultDriver,
		DBDir:          XDGDataDir(),
		ConnectRetries: DefaultConnectRetries,
		Workers:        DefaultWorkers,
		PollInterval:   DefaultPollInterval,
		FetchTimeout:   DefaultFetchTimeout,
		MaxRedirects:   DefaultMaxRedirects,
		MaxBodySize:    DefaultMaxBodySize,
		UserAgent:      DefaultUserAgent(),
		RedisPrefix:    DefaultRedisPrefix,
		RedisTTL:       DefaultRedisTTL,
	}
}

// XDGDataDir returns the XDG data directory for ruthless.
// On Linux: ~/.local/share/ruthless
// On macOS: ~/Library/Application Support/ruthless
// On Windows: %LOCALAPPDATA%\ruthless
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// IsPostgres reports whether the PostgreSQL backend is selected.
func (c *Config) IsPostgres() bool {
	switch strings.ToLower(c.Driver) {
	case "postgres", "postgresql", "pg":
		return true
	}
	return false
}

// Validate checks the options shared by every command that opens the store
// or crawls. It returns the first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pg":
	default:
		return ErrInvalidDriver
	}

	if c.IsPostgres() && c.DSN == "" {
		return ErrMissingDSN
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// ValidateSeeds checks the options required to seed a crawl.
func (c *Config) ValidateSeeds() error {
	if strings.TrimSpace(c.Tag) == "" {
		return ErrNoTag
	}
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.SeedDepth < 0 {
		return ErrInvalidDepth
	}
	return nil
}
