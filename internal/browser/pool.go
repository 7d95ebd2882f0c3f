// internal/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/wpitallo/crawlee/internal/auth"
	"github.com/wpitallo/crawlee/internal/config"
	"github.com/wpitallo/crawlee/internal/ratelimit"
)

const (
	// DefaultPageTimeout bounds one rendered page session, acquire included.
	DefaultPageTimeout = 60 * time.Second

	// settleDelay gives the page a beat after navigation so that immediate
	// client-side work lands before the caller starts reading.
	settleDelay = 300 * time.Millisecond
)

// PageHook runs against a freshly navigated page, before it is handed to the
// caller. Hooks that fail are logged and skipped, not fatal.
type PageHook func(ctx context.Context, pg *Page) error

// Options configures a browser pool.
type Options struct {
	Size        int
	Headless    bool
	ChromePath  string
	UserAgent   string
	Proxy       string
	SessionName string
	PageTimeout time.Duration
	Limiter     ratelimit.RateLimiter
}

// Pool manages a fixed set of warm browser contexts. Open claims one, drives
// a navigation on a fresh tab and returns the live Page; closing the page
// returns the context for reuse.
type Pool struct {
	contexts    chan *browserContext
	allocCtx    context.Context
	allocCancel context.CancelFunc
	hooks       []PageHook
	cookies     []auth.Cookie
	limiter     ratelimit.RateLimiter
	pageTimeout time.Duration
	mu          sync.Mutex
	closed      bool
}

type browserContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool launches opts.Size browser contexts and warms them up. When
// opts.SessionName is set, its stored cookies are installed on every page
// before navigation.
func NewPool(opts Options) (*Pool, error) {
	size := opts.Size
	if size <= 0 {
		size = 1
	}
	pageTimeout := opts.PageTimeout
	if pageTimeout <= 0 {
		pageTimeout = DefaultPageTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	} else if path := FindChrome(); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	pool := &Pool{
		contexts:    make(chan *browserContext, size),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		limiter:     opts.Limiter,
		pageTimeout: pageTimeout,
	}

	if opts.SessionName != "" {
		session, err := auth.LoadSession(opts.SessionName)
		if err != nil {
			allocCancel()
			return nil, fmt.Errorf("failed to load session %s: %w", opts.SessionName, err)
		}
		pool.cookies = session.Cookies
		log.Debug().Str("session", opts.SessionName).Int("cookies", len(pool.cookies)).Msg("Loaded session cookies for browser pool")
	}

	for i := 0; i < size; i++ {
		ctx, cancel := chromedp.NewContext(allocCtx)

		// Warm up the context so the first real navigation is not paying
		// browser startup cost.
		if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
			cancel()
			pool.Close()
			return nil, fmt.Errorf("failed to start browser context %d: %w", i, err)
		}

		pool.contexts <- &browserContext{ctx: ctx, cancel: cancel}
	}

	log.Debug().Int("size", size).Bool("headless", opts.Headless).Msg("Browser pool ready")
	return pool, nil
}

// RegisterPostNavigationHook adds a hook that runs on every page after
// navigation settles. Register hooks before the first Open call.
func (p *Pool) RegisterPostNavigationHook(hook PageHook) {
	p.hooks = append(p.hooks, hook)
}

// Open claims a browser context, opens a tab and navigates it to the given
// URL. The returned Page stays live until its Close; the caller's ctx
// cancels the session early.
func (p *Pool) Open(ctx context.Context, urlStr string) (*Page, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, urlStr); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	bctx, err := p.acquire(p.pageTimeout)
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(bctx.ctx)
	pageCtx, pageCancel := context.WithTimeout(tabCtx, p.pageTimeout)
	cancel := func() {
		pageCancel()
		tabCancel()
	}

	pg := &Page{
		ctx:    pageCtx,
		cancel: cancel,
		pool:   p,
		bctx:   bctx,
		url:    urlStr,
	}

	// Tie the session to the caller's context without leaking the watcher.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-pageCtx.Done():
		}
	}()

	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			pg.status.CompareAndSwap(0, resp.Response.Status)
		}
	})

	var loadedURL string
	tasks := []chromedp.Action{network.Enable()}
	if len(p.cookies) > 0 {
		tasks = append(tasks, p.setCookiesAction(urlStr))
	}
	tasks = append(tasks,
		chromedp.Navigate(urlStr),
		chromedp.ActionFunc(func(context.Context) error {
			time.Sleep(settleDelay)
			return nil
		}),
		chromedp.Location(&loadedURL),
	)

	log.Debug().Str("url", urlStr).Msg("Opening page in browser")
	if err := chromedp.Run(pageCtx, tasks...); err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to open %s: %w", urlStr, err)
	}
	pg.finalURL = loadedURL

	for _, hook := range p.hooks {
		if err := hook(pageCtx, pg); err != nil {
			log.Warn().Err(err).Str("url", urlStr).Msg("Post-navigation hook failed")
		}
	}

	return pg, nil
}

func (p *Pool) setCookiesAction(urlStr string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range p.cookies {
			param := network.SetCookie(c.Name, c.Value).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Domain != "" {
				param = param.WithDomain(c.Domain)
			} else {
				param = param.WithURL(urlStr)
			}
			if c.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				param = param.WithExpires(&exp)
			}
			if err := param.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func (p *Pool) acquire(timeout time.Duration) (*browserContext, error) {
	select {
	case bctx, ok := <-p.contexts:
		if !ok {
			return nil, fmt.Errorf("browser pool is closed")
		}
		return bctx, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for available browser context")
	}
}

func (p *Pool) release(bctx *browserContext) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		bctx.cancel()
		return
	}
	p.mu.Unlock()

	// Park the context on a blank page so the next page starts clean.
	if err := chromedp.Run(bctx.ctx, chromedp.Navigate("about:blank")); err != nil {
		log.Warn().Err(err).Msg("Failed to reset browser context, recycling")
		bctx.cancel()
		ctx, cancel := chromedp.NewContext(p.allocCtx)
		bctx = &browserContext{ctx: ctx, cancel: cancel}
	}

	select {
	case p.contexts <- bctx:
	default:
		bctx.cancel()
	}
}

// Close shuts down every browser context and the allocator. Pages still open
// are cancelled through the allocator teardown.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.contexts)
	for bctx := range p.contexts {
		bctx.cancel()
	}
	p.allocCancel()
	log.Debug().Msg("Browser pool closed")
}
