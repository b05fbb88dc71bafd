package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ruthless"

// Duplicate sources.
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// Crawler holds the crawl metrics.
type Crawler struct {
	PagesFetched     prometheus.Counter
	PagesFailed      *prometheus.CounterVec
	LinksDiscovered  prometheus.Counter
	PagesEnqueued    prometheus.Counter
	Duplicates       *prometheus.CounterVec
	FrontierMinDepth prometheus.Gauge
	FrontierPending  prometheus.Gauge
	UnitDuration     prometheus.Histogram
}

// NewCrawler creates the collectors and registers them on reg.
// It returns an error if any collector is already registered.
func NewCrawler(reg prometheus.Registerer) (*Crawler, error) {
	c := &Crawler{
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages fetched and stored.",
		}),
		PagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_failed_total",
			Help:      "Pages marked failed, by failure kind.",
		}, []string{"kind"}),
		LinksDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_discovered_total",
			Help:      "Unique crawlable links found on fetched pages.",
		}),
		PagesEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_enqueued_total",
			Help:      "New pending pages inserted.",
		}),
		Duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Links skipped as already known, by where the duplicate was detected.",
		}, []string{"source"}),
		FrontierMinDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_min_depth",
			Help:      "Smallest depth among pending pages at the last selection.",
		}),
		FrontierPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_pending",
			Help:      "Pending pages at the last selection.",
		}),
		UnitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Time to fetch, store and expand one page.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	collectors := []prometheus.Collector{
		c.PagesFetched,
		c.PagesFailed,
		c.LinksDiscovered,
		c.PagesEnqueued,
		c.Duplicates,
		c.FrontierMinDepth,
		c.FrontierPending,
		c.UnitDuration,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// PageFetched counts a fetched page.
func (c *Crawler) PageFetched() {
	if c == nil {
		return
	}
	c.PagesFetched.Inc()
}

// PageFailed counts a failed page.
func (c *Crawler) PageFailed(kind string) {
	if c == nil {
		return
	}
	c.PagesFailed.WithLabelValues(kind).Inc()
}

// LinksFound adds n discovered links.
func (c *Crawler) LinksFound(n int) {
	if c == nil {
		return
	}
	c.LinksDiscovered.Add(float64(n))
}

// Enqueued counts an inserted child page.
func (c *Crawler) Enqueued() {
	if c == nil {
		return
	}
	c.PagesEnqueued.Inc()
}

// Duplicate counts a skipped link.
func (c *Crawler) Duplicate(source string) {
	if c == nil {
		return
	}
	c.Duplicates.WithLabelValues(source).Inc()
}

// ObserveFrontier records the frontier shape seen by the scheduler.
func (c *Crawler) ObserveFrontier(minDepth int, pending int64) {
	if c == nil {
		return
	}
	c.FrontierMinDepth.Set(float64(minDepth))
	c.FrontierPending.Set(float64(pending))
}

// ObserveUnit records the duration of one crawl unit.
func (c *Crawler) ObserveUnit(d time.Duration) {
	if c == nil {
		return
	}
	c.UnitDuration.Observe(d.Seconds())
}
