package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// PageState is the lifecycle state of a page.
type PageState int

const (
	// StatePending means the page has neither been fetched nor failed.
	// Pending pages form the crawl frontier.
	StatePending PageState = iota

	// StateFetched means the page was fetched successfully and its content stored.
	StateFetched

	// StateFailed means the fetch failed and the error was stored.
	// Failures are terminal; the page is never reconsidered.
	StateFailed
)

// String returns the lowercase name of the state.
func (s PageState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetched:
		return "fetched"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SameHostDistance and CrossHostDistance are the depth costs of following a
// link. The large cross-host cost keeps a crawl inside one site until that
// site's frontier is exhausted.
const (
	SameHostDistance  = 1
	CrossHostDistance = 100
)

// Page is one crawl record.
type Page struct {
	// ID is assigned by the store on insertion.
	ID int64 `json:"id"`

	// URL is the absolute URL of the page. Together with Tag it is unique.
	URL string `json:"url"`

	// Tag is the campaign label. It propagates unchanged from a seed to every
	// page discovered from it.
	Tag string `json:"tag"`

	// Depth is the distance estimate from the nearest seed of this tag.
	// Lower depths are crawled first.
	Depth int `json:"depth"`

	// ParentID references the page that discovered this URL.
	// Nil for seeds.
	ParentID *int64 `json:"parent_id,omitempty"`

	// Content is the fetched HTML. Only present once the page is fetched.
	Content *string `json:"-"`

	// ContentHash is the SHA3-256 hex digest of Content.
	ContentHash *string `json:"content_hash,omitempty"`

	// Error describes why the fetch failed. Only present once the page failed.
	Error *string `json:"error,omitempty"`

	// CreatedAt is when the row was inserted.
	CreatedAt time.Time `json:"created_at"`

	// FetchedAt and FailedAt mark the terminal state. At most one is set.
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	FailedAt  *time.Time `json:"failed_at,omitempty"`
}

// NewSeed returns a pending seed page with no parent.
func NewSeed(url, tag string, depth int) *Page {
	return &Page{
		URL:   url,
		Tag:   tag,
		Depth: depth,
	}
}

// NewChild returns a pending page discovered from parent at the given
// distance. The tag is inherited from the parent.
func NewChild(parent *Page, url string, distance int) *Page {
	parentID := parent.ID
	return &Page{
		URL:      url,
		Tag:      parent.Tag,
		Depth:    parent.Depth + distance,
		ParentID: &parentID,
	}
}

// State reports the lifecycle state derived from the terminal timestamps.
func (p *Page) State() PageState {
	switch {
	case p.FetchedAt != nil:
		return StateFetched
	case p.FailedAt != nil:
		return StateFailed
	default:
		return StatePending
	}
}

// IsSeed reports whether the page has no parent.
func (p *Page) IsSeed() bool {
	return p.ParentID == nil
}

// HashContent returns the SHA3-256 hex digest of content.
// Empty content produces an empty string.
func HashContent(content string) string {
	if content == "" {
		return ""
	}
	sum := sha3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
