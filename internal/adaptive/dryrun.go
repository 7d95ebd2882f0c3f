// internal/adaptive/dryrun.go
package adaptive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/wpitallo/crawlee/internal/fetch"
	"github.com/wpitallo/crawlee/pkg/models"
)

// DefaultHandlerTimeout bounds one dry-run attempt, fetch included.
const DefaultHandlerTimeout = 30 * time.Second

// Fetcher performs a read-only HTTP fetch. Satisfied by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, urlStr string) (*fetch.Response, error)
}

// DryRunResult is the outcome of one successful simulation: the parsed
// static document and everything the handler tried to do with it.
type DryRunResult struct {
	Document *goquery.Document
	Result   *RunResult
	Response *fetch.Response
}

// DryRunner executes a handler against a statically fetched document with
// every side effect diverted into a RunResult. Nothing a dry run does is
// externally observable beyond the read-only fetch itself.
type DryRunner struct {
	fetcher      Fetcher
	timeout      time.Duration
	linkSelector string
}

// NewDryRunner returns a simulator using the given fetcher. A zero timeout
// falls back to DefaultHandlerTimeout.
func NewDryRunner(fetcher Fetcher, timeout time.Duration, linkSelector string) *DryRunner {
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	return &DryRunner{fetcher: fetcher, timeout: timeout, linkSelector: linkSelector}
}

// Simulate fetches the request URL, parses the body and runs the handler
// with all side effects diverted. Any failure, including timeout, handler
// error or panic, is logged and reported as nil. A nil result means "could
// not simulate", never a fatal condition.
func (d *DryRunner) Simulate(ctx context.Context, req *models.Request, handler Handler) *DryRunResult {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	urlStr := req.ResolvedURL()

	resp, err := d.fetcher.Fetch(runCtx, urlStr)
	if err != nil {
		log.Debug().Err(err).Str("url", urlStr).Msg("Dry run fetch failed")
		return nil
	}
	if !resp.IsHTML() {
		log.Debug().Str("url", urlStr).Str("content_type", resp.ContentType()).Msg("Dry run skipped non-HTML response")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		log.Debug().Err(err).Str("url", urlStr).Msg("Dry run failed to parse document")
		return nil
	}

	if resp.FinalURL != "" {
		req.LoadedURL = resp.FinalURL
	}

	result := NewRunResult()
	c := &Context{
		Ctx:          runCtx,
		Request:      req,
		document:     doc,
		response:     resp,
		recorder:     NewDivertRecorder(result),
		linkSelector: d.linkSelector,
		baseURL:      resp.FinalURL,
	}

	// The handler runs in its own goroutine so a handler that ignores its
	// context cannot wedge the orchestrator past the timeout. On expiry the
	// goroutine is abandoned together with its result.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panicked: %v", r)
			}
		}()
		done <- handler(c)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().Err(err).Str("url", urlStr).Msg("Dry run handler failed")
			return nil
		}
	case <-runCtx.Done():
		log.Debug().Str("url", urlStr).Dur("timeout", d.timeout).Msg("Dry run timed out")
		return nil
	}

	log.Debug().
		Str("url", urlStr).
		Int("records", len(result.Records())).
		Int("links", len(result.Links())).
		Msg("Dry run complete")

	return &DryRunResult{Document: doc, Result: result, Response: resp}
}
