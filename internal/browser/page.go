// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Page is one rendered page session: a dedicated tab on a pooled browser
// context, alive from Open until Close. All operations run against the
// session's own context, which carries the pool's per-page deadline.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	pool   *Pool
	bctx   *browserContext

	url       string
	finalURL  string
	status    atomic.Int64
	mutations atomic.Int64

	closeOnce sync.Once
}

// URL returns the originally requested URL.
func (pg *Page) URL() string {
	return pg.url
}

// FinalURL returns the page's post-redirect location, or the requested URL if
// navigation never reported one.
func (pg *Page) FinalURL() string {
	if pg.finalURL != "" {
		return pg.finalURL
	}
	return pg.url
}

// StatusCode returns the HTTP status of the document response, 0 if unknown.
func (pg *Page) StatusCode() int {
	return int(pg.status.Load())
}

// Mutations returns the number of DOM mutations counted by the injected
// probe so far. Zero when the probe was never installed or never fired.
func (pg *Page) Mutations() int64 {
	return pg.mutations.Load()
}

// HTML returns the page's current outer markup, reflecting everything
// client-side scripts have done to the DOM so far.
func (pg *Page) HTML() (string, error) {
	var html string
	if err := chromedp.Run(pg.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read rendered markup: %w", err)
	}
	return html, nil
}

// Evaluate runs a JavaScript expression in the page, unmarshaling the result
// into res when res is non-nil.
func (pg *Page) Evaluate(expression string, res interface{}) error {
	if err := chromedp.Run(pg.ctx, chromedp.Evaluate(expression, res)); err != nil {
		return fmt.Errorf("failed to evaluate expression: %w", err)
	}
	return nil
}

// AddBinding exposes a page-side function with the given name; each call from
// page JavaScript invokes fn with the call's string payload. The channel back
// from the page is how injected probes report into the crawler.
func (pg *Page) AddBinding(name string, fn func(payload string)) error {
	chromedp.ListenTarget(pg.ctx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == name {
			fn(e.Payload)
		}
	})

	err := chromedp.Run(pg.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.AddBinding(name).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to add binding %s: %w", name, err)
	}
	return nil
}

// Close tears down the tab and returns its browser context to the pool.
func (pg *Page) Close() {
	pg.closeOnce.Do(func() {
		pg.cancel()
		pg.pool.release(pg.bctx)
	})
}
