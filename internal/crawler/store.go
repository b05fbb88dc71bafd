package crawler

import (
	"context"

	"github.com/nao1215/ruthless/internal/fetcher"
	"github.com/nao1215/ruthless/internal/model"
)

// Store is the part of the page store the crawler needs.
// database.PageDB implements it.
type Store interface {
	InsertPage(ctx context.Context, page *model.Page) (int64, error)
	UpdateSeedDepth(ctx context.Context, url, tag string, depth int) error
	MarkFetched(ctx context.Context, id int64, content string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	PendingDepthHistogram(ctx context.Context) ([]model.DepthCount, error)
	PendingPageAtOffset(ctx context.Context, depth int, offset int64) (*model.Page, error)
}

// Fetcher retrieves the HTML of a URL. fetcher.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error)
}
