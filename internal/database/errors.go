package database

import "errors"

var (
	// ErrUnsupportedDriver is returned by Open for an unknown driver name.
	ErrUnsupportedDriver = errors.New("unsupported database driver: use sqlite or postgres")

	// ErrMissingDSN is returned by Open when the postgres driver has no DSN.
	ErrMissingDSN = errors.New("postgres driver requires a DSN")
)
