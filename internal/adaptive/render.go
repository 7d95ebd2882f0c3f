// internal/adaptive/render.go
package adaptive

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/wpitallo/crawlee/internal/browser"
	"github.com/wpitallo/crawlee/internal/retry"
	"github.com/wpitallo/crawlee/pkg/models"
)

// PoolProvider returns the browser pool, starting it if needed. Keeping pool
// startup behind a provider means no browser launches until the first
// request actually needs rendering.
type PoolProvider func() (*browser.Pool, error)

// RenderResult is the outcome of one real rendered execution: the fully
// rendered document, the side effects the handler performed (they also
// happened for real) and the DOM mutation count observed while the page was
// live.
type RenderResult struct {
	Document  *goquery.Document
	Result    *RunResult
	Mutations int64
}

// RenderExecutor runs the real rendering path. The handler's side effects
// are committed through the real sinks and captured at the same time, and
// every page gets a mutation probe installed after navigation.
type RenderExecutor struct {
	provider     PoolProvider
	data         DataSink
	links        LinkSink
	linkSelector string
	hookOnce     sync.Once
}

// NewRenderExecutor returns an executor drawing pages from the provider's
// pool and committing side effects to the given sinks.
func NewRenderExecutor(provider PoolProvider, data DataSink, links LinkSink, linkSelector string) *RenderExecutor {
	return &RenderExecutor{
		provider:     provider,
		data:         data,
		links:        links,
		linkSelector: linkSelector,
	}
}

func (e *RenderExecutor) pool() (*browser.Pool, error) {
	pool, err := e.provider()
	if err != nil {
		return nil, err
	}
	// The mutation probe must be registered before the pool opens its first
	// page; Once also publishes the hook to concurrent callers.
	e.hookOnce.Do(func() {
		pool.RegisterPostNavigationHook(browser.InstallMutationProbe)
	})
	return pool, nil
}

// Render opens the request URL in a real browser, runs the handler against
// the rendered document and returns the captured outcome. Errors are not
// softened here: a failing render is a failing request.
func (e *RenderExecutor) Render(ctx context.Context, req *models.Request, handler Handler) (*RenderResult, error) {
	pool, err := e.pool()
	if err != nil {
		return nil, fmt.Errorf("failed to start browser pool: %w", err)
	}

	urlStr := req.ResolvedURL()

	pg, err := pool.Open(ctx, urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", urlStr, err)
	}
	defer pg.Close()

	if code := pg.StatusCode(); code >= http.StatusBadRequest {
		return nil, retry.NewHTTPError(code, http.StatusText(code), urlStr)
	}

	if loaded := pg.FinalURL(); loaded != "" {
		req.LoadedURL = loaded
	}

	markup, err := pg.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered document: %w", err)
	}

	result := NewRunResult()
	c := &Context{
		Ctx:          ctx,
		Request:      req,
		document:     doc,
		page:         pg,
		recorder:     NewTapRecorder(result, e.data, e.links),
		linkSelector: e.linkSelector,
		baseURL:      pg.FinalURL(),
	}

	if err := handler(c); err != nil {
		return nil, err
	}

	// The handler may have driven further client-side work, so the document
	// handed back for comparison is re-read after it finishes.
	finalMarkup, err := pg.HTML()
	if err != nil {
		return nil, err
	}
	renderedDoc, err := goquery.NewDocumentFromReader(strings.NewReader(finalMarkup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered document: %w", err)
	}

	log.Debug().
		Str("url", urlStr).
		Int("records", len(result.Records())).
		Int("links", len(result.Links())).
		Int64("mutations", pg.Mutations()).
		Msg("Render complete")

	return &RenderResult{
		Document:  renderedDoc,
		Result:    result,
		Mutations: pg.Mutations(),
	}, nil
}
