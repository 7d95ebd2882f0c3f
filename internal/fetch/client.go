// internal/fetch/client.go
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wpitallo/crawlee/internal/auth"
	"github.com/wpitallo/crawlee/internal/ratelimit"
	"github.com/wpitallo/crawlee/internal/retry"
)

// DefaultMaxBodySize caps how much of a response body is read (10 MB).
const DefaultMaxBodySize = 10 << 20

// Options configures a Client.
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	Headers     map[string]string
	Proxy       string
	SessionName string
	MaxBodySize int64
	Limiter     ratelimit.RateLimiter
}

// Client performs plain read-only HTTP fetches. It is the cheap half of the
// crawler: no scripts run, the body is returned exactly as the server sent it.
type Client struct {
	client      *http.Client
	limiter     ratelimit.RateLimiter
	userAgent   string
	headers     map[string]string
	maxBodySize int64
}

// Response is the outcome of one fetch.
type Response struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	FetchedAt  time.Time
	Duration   time.Duration
}

// ContentType returns the response's media type without parameters.
func (r *Response) ContentType() string {
	ct := r.Headers.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}

// IsHTML reports whether the response body is an HTML document.
func (r *Response) IsHTML() bool {
	ct := r.ContentType()
	return ct == "" || ct == "text/html" || ct == "application/xhtml+xml"
}

// New creates a fetch client with connection reuse and optional proxy. When a
// session name is given, its saved cookies and headers are sent with every
// request; a missing session is logged and ignored.
func New(opts Options) (*Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  false,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	headers := make(map[string]string, len(opts.Headers))
	for key, value := range opts.Headers {
		headers[key] = value
	}

	if opts.SessionName != "" {
		session, err := auth.LoadSession(opts.SessionName)
		if err != nil {
			log.Warn().Err(err).Str("session", opts.SessionName).Msg("Failed to load session")
		} else {
			jar, err := cookiejar.New(nil)
			if err == nil {
				sessionURL, err := url.Parse(session.URL)
				if err == nil {
					jar.SetCookies(sessionURL, session.HTTPCookies())
					client.Jar = jar
					log.Debug().Int("cookies", len(session.Cookies)).Msg("Session cookies injected")
				}
			}
			for key, value := range session.Headers {
				headers[key] = value
			}
		}
	}

	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	return &Client{
		client:      client,
		limiter:     opts.Limiter,
		userAgent:   opts.UserAgent,
		headers:     headers,
		maxBodySize: maxBody,
	}, nil
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// Fetch performs a GET against the given URL. Redirects are followed and the
// final URL is reported. Responses with status >= 400 return an HTTPError so
// the retry layer can classify them.
func (c *Client) Fetch(ctx context.Context, urlStr string) (*Response, error) {
	start := time.Now()

	log.Debug().
		Str("url", urlStr).
		Msg("Starting fetch")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, urlStr); err != nil {
			return nil, fmt.Errorf("failed to acquire rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Drain a little so the connection can be reused.
		io.CopyN(io.Discard, resp.Body, 4096)
		return nil, retry.NewHTTPError(resp.StatusCode, resp.Status, urlStr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	finalURL := urlStr
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	duration := time.Since(start)

	log.Debug().
		Str("url", urlStr).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", duration).
		Msg("Fetch completed")

	return &Response{
		URL:        urlStr,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		FetchedAt:  time.Now(),
		Duration:   duration,
	}, nil
}
