// internal/engine/stats.go
package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// maxRecentFailures bounds how many failures a run keeps for its summary.
const maxRecentFailures = 10

// Snapshot is a point-in-time view of crawl progress.
type Snapshot struct {
	Started int64
	Handled int64
	Failed  int64
	Elapsed time.Duration
}

// Stats tracks one run's counters. Safe for concurrent use by workers.
type Stats struct {
	started   atomic.Int64
	inflight  atomic.Int64
	handled   atomic.Int64
	failed    atomic.Int64
	startedAt time.Time

	mu     sync.Mutex
	recent []error
}

func newStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) markHandled() {
	s.handled.Add(1)
}

func (s *Stats) markFailed(err error) {
	s.failed.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) >= maxRecentFailures {
		s.recent = s.recent[1:]
	}
	s.recent = append(s.recent, err)
}

// Snapshot returns current counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Started: s.started.Load(),
		Handled: s.handled.Load(),
		Failed:  s.failed.Load(),
		Elapsed: time.Since(s.startedAt),
	}
}

// RecentFailures returns the most recent request failures, oldest first.
func (s *Stats) RecentFailures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.recent))
	copy(out, s.recent)
	return out
}
