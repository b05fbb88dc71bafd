package model

import "errors"

// Store-level sentinel errors. Store implementations wrap these so callers can
// test with errors.Is regardless of the SQL driver in use.
var (
	// ErrDuplicatePage is returned when inserting a (url, tag) pair that
	// already exists. Callers enqueueing links treat it as success.
	ErrDuplicatePage = errors.New("page already exists for this url and tag")

	// ErrPageNotPending is returned when a terminal update targets a page that
	// is already fetched or failed (or does not exist).
	ErrPageNotPending = errors.New("page is not pending")

	// ErrPageNotFound is returned by lookups that match no row.
	ErrPageNotFound = errors.New("page not found")
)
