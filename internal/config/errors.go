package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ValidateSeeds()
// so callers can use errors.Is() while users get a readable message.
var (
	// ErrNoTag is returned when seeding without a --tag.
	ErrNoTag = errors.New("no tag specified: use --tag to name the crawl")

	// ErrNoSeeds is returned when seeding without any URL.
	ErrNoSeeds = errors.New("no seed URL specified: provide at least one URL")

	// ErrInvalidDriver is returned for a storage driver other than sqlite or postgres.
	ErrInvalidDriver = errors.New("invalid driver: must be sqlite or postgres")

	// ErrMissingDSN is returned when the postgres driver has no connection string.
	ErrMissingDSN = errors.New("missing DSN: the postgres driver requires --dsn")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRedirects is returned when the redirect limit is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidDepth is returned when the seed depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")
)
