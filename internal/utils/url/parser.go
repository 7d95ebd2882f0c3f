package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL reports whether a string is a crawlable absolute URL. Only http
// and https targets qualify; anything else is rejected before it can reach
// the request queue.
func ValidateURL(urlStr string) error {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch parsed.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("invalid URL scheme: must be http or https, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL. Absolute
// hrefs pass through re-serialized; inputs that do not parse come back
// unchanged, callers validate separately.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return href
	}
	return baseURL.ResolveReference(u).String()
}
