package crawler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/ruthless/internal/metrics"
	"github.com/nao1215/ruthless/internal/model"
)

// DefaultPollInterval is how long an idle worker waits before looking at
// the frontier again while other workers are still busy.
const DefaultPollInterval = 500 * time.Millisecond

// Spider runs the crawl loop: pick a pending page, process it, repeat until
// the frontier is empty.
type Spider struct {
	store   Store
	fetcher Fetcher

	// cache is owned by the spider for the duration of its runs.
	cache DedupCache

	// workers is the number of pages processed concurrently.
	workers int

	// pollInterval is the idle wait of a worker that found no work while
	// others are in flight. Unused with a single worker.
	pollInterval time.Duration

	rng     *rand.Rand
	runID   string
	metrics *metrics.Crawler
	logger  *slog.Logger

	// claims holds the ids of pages taken by a worker during this run. Ids
	// are never released: a selection that raced with the page's terminal
	// update must not process it a second time.
	claims sync.Map

	// inFlight counts workers that are selecting or processing a page.
	inFlight atomic.Int64

	fetched    atomic.Int64
	failed     atomic.Int64
	skipped    atomic.Int64
	links      atomic.Int64
	enqueued   atomic.Int64
	duplicates atomic.Int64
}

// Stats summarizes a run.
type Stats struct {
	RunID      string
	Fetched    int64
	Failed     int64
	Skipped    int64
	Links      int64
	Enqueued   int64
	Duplicates int64
	Duration   time.Duration
}

// Processed returns the number of pages that reached a terminal state
// during the run.
func (s Stats) Processed() int64 {
	return s.Fetched + s.Failed
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithWorkers sets the number of concurrent workers. Values below 1 mean 1.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		s.workers = max(n, 1)
	}
}

// WithPollInterval sets the idle poll interval of concurrent workers.
func WithPollInterval(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.pollInterval = d
	}
}

// WithDedupCache replaces the default in-memory dedup cache.
func WithDedupCache(c DedupCache) SpiderOption {
	return func(s *Spider) {
		s.cache = c
	}
}

// WithRand sets the random source used for frontier selection.
func WithRand(rng *rand.Rand) SpiderOption {
	return func(s *Spider) {
		s.rng = rng
	}
}

// WithRunID sets the run id. It defaults to a random UUID.
func WithRunID(id string) SpiderOption {
	return func(s *Spider) {
		s.runID = id
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Crawler) SpiderOption {
	return func(s *Spider) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider over store using f to download pages.
func NewSpider(store Store, f Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		store:        store,
		fetcher:      f,
		workers:      1,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.cache == nil {
		s.cache = NewMemoryCache()
	}

	return s
}

// RunID returns the id of this spider's run.
func (s *Spider) RunID() string {
	return s.runID
}

// Run crawls until the frontier is empty, returning nil in that case.
// A store error stops the run and is returned. Cancelling ctx stops the run
// between pages: a page being processed is always finished and recorded,
// then Run returns ctx.Err().
func (s *Spider) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	logger := s.logger.With("run", s.runID)
	frontier := NewFrontier(s.store, s.rng, s.metrics, logger)
	unit := NewUnit(s.store, s.fetcher, s.cache, s.metrics, logger)

	logger.Info("crawl started", "workers", s.workers)

	var err error
	if s.workers == 1 {
		err = s.work(ctx, frontier, unit)
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for range s.workers {
			g.Go(func() error {
				return s.work(gctx, frontier, unit)
			})
		}
		err = g.Wait()
		// Workers stopped because a sibling failed report the group context
		// error; surface the caller's cancellation instead.
		if err != nil && ctx.Err() != nil {
			err = ctx.Err()
		}
	}

	stats := s.stats(time.Since(start))
	logger.Info("crawl stopped",
		"fetched", stats.Fetched,
		"failed", stats.Failed,
		"enqueued", stats.Enqueued,
		"duration", stats.Duration)

	return stats, err
}

// work is one worker's loop.
func (s *Spider) work(ctx context.Context, frontier *Frontier, unit *Unit) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.inFlight.Add(1)
		page, err := frontier.Next(ctx)
		if err != nil {
			s.inFlight.Add(-1)
			if errors.Is(err, ErrFrontierContention) && s.workers > 1 {
				if err := s.idle(ctx); err != nil {
					return err
				}
				continue
			}
			return err
		}

		if page == nil {
			if s.inFlight.Add(-1) == 0 {
				return nil
			}
			// Another worker may still enqueue children.
			if err := s.idle(ctx); err != nil {
				return err
			}
			continue
		}

		if _, claimed := s.claims.LoadOrStore(page.ID, struct{}{}); claimed {
			s.inFlight.Add(-1)
			if err := s.idle(ctx); err != nil {
				return err
			}
			continue
		}

		err = s.process(ctx, unit, page)
		s.inFlight.Add(-1)
		if err != nil {
			return err
		}
	}
}

// process runs one unit. The unit ignores cancellation of ctx so a started
// page is always recorded; the fetcher applies its own timeout.
func (s *Spider) process(ctx context.Context, unit *Unit, page *model.Page) error {
	outcome, err := unit.Process(context.WithoutCancel(ctx), page)
	s.links.Add(int64(outcome.Links))
	s.enqueued.Add(int64(outcome.Enqueued))
	s.duplicates.Add(int64(outcome.Duplicates))
	if err != nil {
		return err
	}

	switch outcome.Status {
	case StatusFetched:
		s.fetched.Add(1)
	case StatusFailed:
		s.failed.Add(1)
	case StatusSkipped:
		s.skipped.Add(1)
	}
	return nil
}

// idle waits for the poll interval or until ctx is done.
func (s *Spider) idle(ctx context.Context) error {
	t := time.NewTimer(s.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Spider) stats(d time.Duration) Stats {
	return Stats{
		RunID:      s.runID,
		Fetched:    s.fetched.Load(),
		Failed:     s.failed.Load(),
		Skipped:    s.skipped.Load(),
		Links:      s.links.Load(),
		Enqueued:   s.enqueued.Load(),
		Duplicates: s.duplicates.Load(),
		Duration:   d,
	}
}
