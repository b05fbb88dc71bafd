// Package database provides the durable page store for ruthless.
//
// PageDB keeps one table, pages, keyed by (url, tag). It supports two
// backends that share every query:
//   - SQLite via modernc.org/sqlite (default, a single file under the XDG data dir)
//   - PostgreSQL via github.com/lib/pq
//
// The store is the source of truth for the crawl. The crawler holds no state
// that cannot be rebuilt by re-querying the frontier, so a process can be
// killed at any point and restarted against the same database.
//
// Uniqueness of (url, tag) is enforced by the schema. Inserts that violate it
// return model.ErrDuplicatePage so callers can tell them apart from every
// other failure. Terminal updates are conditional on the page still being
// pending and return model.ErrPageNotPending otherwise, which makes the
// pending -> fetched/failed transition happen at most once even when several
// workers or processes race on the same row.
package database
