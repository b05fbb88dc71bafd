// Package model defines the data structures shared by the crawler, the page
// store and the report writers.
//
// The central type is Page, one row of the crawl table. A page is keyed by
// its (URL, Tag) pair and moves through exactly one transition:
//
//	pending --> fetched
//	pending --> failed
//
// Terminal pages are never transitioned again and never deleted; they stay in
// the store as history so that the same URL is not fetched twice for a tag.
//
// Optional columns are modeled as pointers: a nil pointer means the column is
// absent (SQL NULL), not that it holds a zero value.
package model
