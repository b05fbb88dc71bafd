package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/ruthless/internal/fetcher"
	"github.com/nao1215/ruthless/internal/metrics"
	"github.com/nao1215/ruthless/internal/model"
)

// Status is the terminal result of processing one page.
type Status int

const (
	// StatusFetched means the page was stored and its links enqueued.
	StatusFetched Status = iota

	// StatusFailed means the fetch failed and the failure was stored.
	StatusFailed

	// StatusSkipped means another worker finished the page first.
	StatusSkipped
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusFetched:
		return "fetched"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome describes what Unit.Process did with a page.
type Outcome struct {
	Status Status

	// Reason is the stored failure reason when Status is StatusFailed.
	Reason string

	// Links is the number of unique crawlable links found on the page.
	Links int

	// Enqueued is the number of new pending pages inserted.
	Enqueued int

	// Duplicates is the number of links skipped as already known,
	// whether by the dedup cache or by the store.
	Duplicates int
}

// Unit fetches one page, records the result and enqueues its children.
type Unit struct {
	store   Store
	fetcher Fetcher
	cache   DedupCache
	metrics *metrics.Crawler
	logger  *slog.Logger
}

// NewUnit creates a Unit. A nil cache disables cache lookups.
func NewUnit(store Store, f Fetcher, cache DedupCache, m *metrics.Crawler, logger *slog.Logger) *Unit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Unit{
		store:   store,
		fetcher: f,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

// Process crawls page, which must be pending. A fetch failure is recorded on
// the page and is not an error. Errors are store failures only; if one
// happens while enqueueing children the page stays fetched.
func (u *Unit) Process(ctx context.Context, page *model.Page) (Outcome, error) {
	start := time.Now()
	defer func() { u.metrics.ObserveUnit(time.Since(start)) }()

	res, err := u.fetcher.Fetch(ctx, page.URL)
	if err != nil {
		return u.fail(ctx, page, err)
	}

	if err := u.store.MarkFetched(ctx, page.ID, res.HTML); err != nil {
		if errors.Is(err, model.ErrPageNotPending) {
			u.logger.Debug("page already finished by another worker", "url", page.URL)
			return Outcome{Status: StatusSkipped}, nil
		}
		return Outcome{}, fmt.Errorf("failed to store page %s: %w", page.URL, err)
	}
	u.metrics.PageFetched()

	outcome := Outcome{Status: StatusFetched}

	base, err := url.Parse(page.URL)
	if err != nil {
		u.logger.Warn("stored page has an unparsable url, not following links", "url", page.URL, "error", err)
		return outcome, nil
	}

	links := childLinks(base, ExtractLinks(res.HTML))
	outcome.Links = len(links)
	u.metrics.LinksFound(len(links))

	for _, link := range links {
		if u.seen(ctx, page.Tag, link) {
			outcome.Duplicates++
			u.metrics.Duplicate(metrics.SourceCache)
			continue
		}

		child := model.NewChild(page, link, linkDistance(base, link))
		_, err := u.store.InsertPage(ctx, child)
		switch {
		case err == nil:
			outcome.Enqueued++
			u.metrics.Enqueued()
		case errors.Is(err, model.ErrDuplicatePage):
			outcome.Duplicates++
			u.metrics.Duplicate(metrics.SourceStore)
		default:
			return outcome, fmt.Errorf("failed to enqueue %s: %w", link, err)
		}

		u.mark(ctx, page.Tag, link)
	}

	u.logger.Info("fetched",
		"url", page.URL,
		"tag", page.Tag,
		"depth", page.Depth,
		"links", outcome.Links,
		"enqueued", outcome.Enqueued)

	return outcome, nil
}

// fail records a fetch failure on page.
func (u *Unit) fail(ctx context.Context, page *model.Page, fetchErr error) (Outcome, error) {
	reason := fetchErr.Error()
	detail := reason
	var fe *fetcher.FetchError
	if errors.As(fetchErr, &fe) {
		reason = string(fe.Kind)
		detail = fe.Detail()
	}

	u.logger.Warn("fetch failed", "url", page.URL, "tag", page.Tag, "error", detail)

	if err := u.store.MarkFailed(ctx, page.ID, reason); err != nil {
		if errors.Is(err, model.ErrPageNotPending) {
			return Outcome{Status: StatusSkipped}, nil
		}
		return Outcome{}, fmt.Errorf("failed to record failure of %s: %w", page.URL, err)
	}
	u.metrics.PageFailed(reason)

	return Outcome{Status: StatusFailed, Reason: reason}, nil
}

// seen consults the dedup cache. Cache errors are logged and treated as a
// miss; the store still rejects duplicates.
func (u *Unit) seen(ctx context.Context, tag, link string) bool {
	if u.cache == nil {
		return false
	}
	ok, err := u.cache.Seen(ctx, tag, link)
	if err != nil {
		u.logger.Warn("dedup cache lookup failed", "url", link, "error", err)
		return false
	}
	return ok
}

func (u *Unit) mark(ctx context.Context, tag, link string) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Mark(ctx, tag, link); err != nil {
		u.logger.Warn("dedup cache update failed", "url", link, "error", err)
	}
}
