package database

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// pgInvalidCatalogName is the SQLSTATE returned when the target database does not exist.
const pgInvalidCatalogName = "3D000"

// pgDuplicateDatabase is returned by CREATE DATABASE when it already exists.
const pgDuplicateDatabase = "42P04"

// dialect captures the small differences between the SQL backends.
// All queries are written with "?" placeholders and rebound per dialect.
type dialect struct {
	name string

	// numbered rewrites "?" placeholders to "$1", "$2", ... for PostgreSQL.
	numbered bool

	// schema is executed statement by statement on open.
	schema []string

	// isUniqueViolation reports whether err is a (url, tag) constraint violation.
	isUniqueViolation func(err error) bool
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			parent_id INTEGER REFERENCES pages(id),
			url TEXT NOT NULL,
			tag TEXT NOT NULL,
			depth INTEGER NOT NULL DEFAULT 0,
			content TEXT,
			content_hash TEXT,
			error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			fetched_at DATETIME,
			failed_at DATETIME,
			UNIQUE(url, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_pending_depth ON pages(depth, id)
			WHERE fetched_at IS NULL AND failed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_pages_tag ON pages(tag)`,
	},
	isUniqueViolation: func(err error) bool {
		var se *sqlite.Error
		if errors.As(err, &se) {
			return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
		}
		return strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

var postgresDialect = dialect{
	name:     DriverPostgres,
	numbered: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id BIGSERIAL PRIMARY KEY,
			parent_id BIGINT REFERENCES pages(id),
			url TEXT NOT NULL,
			tag TEXT NOT NULL,
			depth INTEGER NOT NULL DEFAULT 0,
			content TEXT,
			content_hash TEXT,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			fetched_at TIMESTAMPTZ,
			failed_at TIMESTAMPTZ,
			UNIQUE(url, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_pending_depth ON pages(depth, id)
			WHERE fetched_at IS NULL AND failed_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_pages_tag ON pages(tag)`,
	},
	isUniqueViolation: func(err error) bool {
		return pqErrorCode(err) == pgUniqueViolation ||
			strings.Contains(err.Error(), "violates unique constraint")
	},
}

// dialectFor returns the dialect for a driver name.
func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3", "":
		return sqliteDialect, nil
	case DriverPostgres, "postgresql", "pg":
		return postgresDialect, nil
	default:
		return dialect{}, ErrUnsupportedDriver
	}
}

// rebind rewrites "?" placeholders for dialects that use numbered parameters.
// Queries in this package never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// pqErrorCode returns the SQLSTATE of a lib/pq error, or "".
func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
