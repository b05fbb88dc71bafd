package model

import "time"

// DepthCount is one bucket of the pending-depth histogram.
type DepthCount struct {
	Depth int   `json:"depth"`
	Count int64 `json:"count"`
}

// TagSummary aggregates crawl progress for one tag.
type TagSummary struct {
	Tag     string `json:"tag"`
	Pending int64  `json:"pending"`
	Fetched int64  `json:"fetched"`
	Failed  int64  `json:"failed"`

	// MinPendingDepth is the depth the scheduler would pick next for this tag.
	// Nil when the tag has no pending pages.
	MinPendingDepth *int `json:"min_pending_depth,omitempty"`
}

// Total returns the number of pages stored for the tag.
func (s TagSummary) Total() int64 {
	return s.Pending + s.Fetched + s.Failed
}

// Done reports whether the tag has no pending pages left.
func (s TagSummary) Done() bool {
	return s.Pending == 0
}

// FrontierReport is a point-in-time view of the crawl store.
type FrontierReport struct {
	GeneratedAt time.Time `json:"generated_at"`

	// Tags is ordered by tag name.
	Tags []TagSummary `json:"tags"`

	// PendingDepths is the global pending histogram, ascending by depth.
	PendingDepths []DepthCount `json:"pending_depths"`
}

// Totals sums the per-tag counters.
func (r *FrontierReport) Totals() TagSummary {
	var total TagSummary
	for _, s := range r.Tags {
		total.Pending += s.Pending
		total.Fetched += s.Fetched
		total.Failed += s.Failed
	}
	if len(r.PendingDepths) > 0 {
		d := r.PendingDepths[0].Depth
		total.MinPendingDepth = &d
	}
	return total
}
