// internal/adaptive/stats.go
package adaptive

import "sync/atomic"

// Snapshot is a point-in-time view of how requests were routed.
type Snapshot struct {
	// StaticCommits counts requests answered by a committed dry run.
	StaticCommits int64

	// RenderRuns counts requests that went through the browser because
	// rendering was predicted or a detection probe was drawn.
	RenderRuns int64

	// Fallbacks counts requests predicted static whose simulation could
	// not be trusted, so the browser ran instead.
	Fallbacks int64

	// Detections counts completed probe comparisons fed back into the
	// predictor.
	Detections int64

	// LinksEnqueued counts URLs actually forwarded to the request queue.
	LinksEnqueued int64

	// RecordsEmitted counts records actually committed to the dataset.
	RecordsEmitted int64
}

// stats tracks routing outcomes. Safe for concurrent use by workers.
type stats struct {
	staticCommits  atomic.Int64
	renderRuns     atomic.Int64
	fallbacks      atomic.Int64
	detections     atomic.Int64
	linksEnqueued  atomic.Int64
	recordsEmitted atomic.Int64
}

func (s *stats) snapshot() Snapshot {
	return Snapshot{
		StaticCommits:  s.staticCommits.Load(),
		RenderRuns:     s.renderRuns.Load(),
		Fallbacks:      s.fallbacks.Load(),
		Detections:     s.detections.Load(),
		LinksEnqueued:  s.linksEnqueued.Load(),
		RecordsEmitted: s.recordsEmitted.Load(),
	}
}
