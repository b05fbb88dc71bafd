package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/nao1215/ruthless/internal/metrics"
	"github.com/nao1215/ruthless/internal/model"
)

// maxSelectAttempts bounds how often Next re-reads the frontier when the
// page at the chosen offset vanished before it could be read.
const maxSelectAttempts = 5

// ErrFrontierContention is returned by Next when the frontier kept changing
// under it for maxSelectAttempts consecutive selections.
var ErrFrontierContention = errors.New("frontier changed during selection")

// Frontier picks the next pending page: among pages at the smallest pending
// depth, one is chosen uniformly at random.
type Frontier struct {
	store Store

	// mu guards rng, which is not safe for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand

	metrics *metrics.Crawler
	logger  *slog.Logger
}

// NewFrontier creates a Frontier. A nil rng selects a randomly seeded one.
func NewFrontier(store Store, rng *rand.Rand, m *metrics.Crawler, logger *slog.Logger) *Frontier {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Frontier{
		store:   store,
		rng:     rng,
		metrics: m,
		logger:  logger,
	}
}

// Next returns a pending page, or nil when no pending page exists.
// Store errors are returned wrapped and are not retried.
func (f *Frontier) Next(ctx context.Context) (*model.Page, error) {
	for attempt := 1; attempt <= maxSelectAttempts; attempt++ {
		histogram, err := f.store.PendingDepthHistogram(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read frontier: %w", err)
		}
		if len(histogram) == 0 {
			f.metrics.ObserveFrontier(0, 0)
			return nil, nil
		}

		bucket := minDepthBucket(histogram)
		f.metrics.ObserveFrontier(bucket.Depth, pendingTotal(histogram))

		offset := f.offset(bucket.Count)
		page, err := f.store.PendingPageAtOffset(ctx, bucket.Depth, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to select pending page: %w", err)
		}
		if page != nil {
			return page, nil
		}

		f.logger.Debug("frontier changed during selection, retrying",
			"depth", bucket.Depth,
			"offset", offset,
			"attempt", attempt)
	}

	return nil, ErrFrontierContention
}

// offset returns a uniform value in [0, count).
func (f *Frontier) offset(count int64) int64 {
	if count <= 1 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Int64N(count)
}

// minDepthBucket returns the bucket with the smallest depth. The store
// returns buckets sorted, but the scheduler does not rely on it.
func minDepthBucket(histogram []model.DepthCount) model.DepthCount {
	best := histogram[0]
	for _, b := range histogram[1:] {
		if b.Depth < best.Depth {
			best = b
		}
	}
	return best
}

func pendingTotal(histogram []model.DepthCount) int64 {
	var total int64
	for _, b := range histogram {
		total += b.Count
	}
	return total
}
