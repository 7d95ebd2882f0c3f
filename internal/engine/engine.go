// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wpitallo/crawlee/internal/retry"
	"github.com/wpitallo/crawlee/internal/store"
	"github.com/wpitallo/crawlee/pkg/models"
)

const (
	// DefaultConcurrency is how many requests run at once.
	DefaultConcurrency = 5

	// MaxConcurrency caps the worker count to avoid overwhelming the host.
	MaxConcurrency = 50

	// queuePollInterval is how long the dispatcher waits before re-checking
	// an empty queue while requests are still in flight. In-flight handlers
	// can enqueue new links, so an empty queue is not the end of the crawl.
	queuePollInterval = 100 * time.Millisecond
)

// Processor handles one claimed request end to end. Implementations own
// fetching, extraction and committing results; the engine owns claiming,
// retrying and request state transitions.
type Processor interface {
	Process(ctx context.Context, req *models.Request) error
}

// Frontier is the request source the engine drains. Satisfied by
// store.RequestQueue.
type Frontier interface {
	Next(ctx context.Context) (*models.Request, error)
	MarkHandled(ctx context.Context, id, loadedURL string) error
	MarkFailed(ctx context.Context, id string, requeue bool) error
}

// Options configures a crawl run.
type Options struct {
	// Concurrency is the number of requests processed in parallel.
	Concurrency int

	// MaxRequests stops the run after this many requests have been claimed.
	// Zero means no cap.
	MaxRequests int

	// Retry is the per-request retry policy.
	Retry retry.Config

	// OnRequestDone, when set, is called after each request finishes,
	// whatever the outcome. Called concurrently from worker goroutines.
	OnRequestDone func(Snapshot)
}

// Crawler drains the frontier through a bounded worker pool until it is
// empty and nothing is in flight, a request cap is hit, or the context is
// cancelled.
type Crawler struct {
	frontier Frontier
	proc     Processor
	opts     Options
	stats    *Stats
}

// New returns a Crawler over the given frontier and processor.
func New(frontier Frontier, proc Processor, opts Options) *Crawler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Concurrency > MaxConcurrency {
		opts.Concurrency = MaxConcurrency
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultConfig()
	}

	return &Crawler{
		frontier: frontier,
		proc:     proc,
		opts:     opts,
		stats:    newStats(),
	}
}

// Stats returns the run's live counters.
func (c *Crawler) Stats() *Stats {
	return c.stats
}

// Run processes requests until the frontier stays empty, the request cap is
// reached, or ctx is cancelled. Per-request failures are recorded, not
// returned; the returned error reports only run-level conditions.
func (c *Crawler) Run(ctx context.Context) (Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	log.Info().
		Int("concurrency", c.opts.Concurrency).
		Int("max_requests", c.opts.MaxRequests).
		Msg("Crawl started")

	var runErr error

dispatch:
	for {
		if gctx.Err() != nil {
			runErr = gctx.Err()
			break
		}
		if c.opts.MaxRequests > 0 && c.stats.started.Load() >= int64(c.opts.MaxRequests) {
			log.Debug().Int("max_requests", c.opts.MaxRequests).Msg("Request cap reached")
			break
		}

		req, err := c.frontier.Next(gctx)
		if err != nil {
			if errors.Is(err, store.ErrQueueEmpty) {
				if c.stats.inflight.Load() == 0 {
					break
				}
				// Handlers still running may refill the queue.
				select {
				case <-time.After(queuePollInterval):
					continue
				case <-gctx.Done():
					runErr = gctx.Err()
					break dispatch
				}
			}
			runErr = err
			break
		}

		c.stats.started.Add(1)
		c.stats.inflight.Add(1)
		g.Go(func() error {
			defer c.stats.inflight.Add(-1)
			c.process(gctx, req)
			if c.opts.OnRequestDone != nil {
				c.opts.OnRequestDone(c.stats.Snapshot())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	snap := c.stats.Snapshot()
	log.Info().
		Int64("handled", snap.Handled).
		Int64("failed", snap.Failed).
		Dur("elapsed", snap.Elapsed).
		Msg("Crawl finished")

	return snap, runErr
}

// process runs one request through the retry policy and records the outcome.
// A cancelled context leaves the request in flight in the store; the next
// run's queue reset reclaims it.
func (c *Crawler) process(ctx context.Context, req *models.Request) {
	defer func() {
		if r := recover(); r != nil {
			err := &RequestError{RequestID: req.ID, URL: req.URL, Err: errorFromPanic(r)}
			c.stats.markFailed(err)
			log.Error().Str("request_id", req.ID).Str("url", req.URL).Msgf("Handler panicked: %v", r)
			if markErr := c.frontier.MarkFailed(ctx, req.ID, false); markErr != nil {
				log.Warn().Err(markErr).Str("request_id", req.ID).Msg("Failed to record request failure")
			}
		}
	}()

	start := time.Now()
	log.Debug().Str("request_id", req.ID).Str("url", req.URL).Msg("Processing request")

	err := retry.WithRetry(ctx, c.opts.Retry, func() error {
		return c.proc.Process(ctx, req)
	})

	if err != nil {
		if ctx.Err() != nil {
			// Interrupted, not failed.
			return
		}
		reqErr := &RequestError{RequestID: req.ID, URL: req.URL, Err: err}
		c.stats.markFailed(reqErr)
		log.Warn().Err(err).Str("request_id", req.ID).Str("url", req.URL).Msg("Request failed")
		if markErr := c.frontier.MarkFailed(ctx, req.ID, false); markErr != nil {
			log.Warn().Err(markErr).Str("request_id", req.ID).Msg("Failed to record request failure")
		}
		return
	}

	c.stats.markHandled()
	log.Debug().
		Str("request_id", req.ID).
		Str("url", req.URL).
		Dur("duration", time.Since(start)).
		Msg("Request handled")

	if markErr := c.frontier.MarkHandled(ctx, req.ID, req.LoadedURL); markErr != nil {
		log.Warn().Err(markErr).Str("request_id", req.ID).Msg("Failed to record handled request")
	}
}
