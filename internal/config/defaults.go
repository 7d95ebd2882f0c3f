package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel  = "info"
	DefaultJSONLog   = false
	DefaultUserAgent = "Crawlee/1.0 (https://github.com/wpitallo/crawlee)"

	DefaultConcurrency    = 5
	DefaultMaxConcurrency = 50
	DefaultLinkSelector   = "a[href]"

	DefaultHTTPTimeout    = 30 * time.Second
	DefaultHandlerTimeout = 30 * time.Second
	DefaultPageTimeout    = 60 * time.Second

	// DefaultDetectionRatio is the steady-state share of requests to hosts
	// with settled history that still get a rendering-type probe.
	DefaultDetectionRatio = 0.1
	// DefaultChangeRatioThreshold is the content divergence fraction above
	// which a rendered page is considered client-only.
	DefaultChangeRatioThreshold = 0.1
	// DefaultMutationThreshold is the DOM mutation count above which a page
	// is considered client-only.
	DefaultMutationThreshold = 20

	DefaultBrowserPoolSize    = 3
	DefaultMaxBrowserPoolSize = 10
	DefaultBrowserHeadless    = true

	DefaultRateLimitRPS   = 5.0
	DefaultRateLimitBurst = 10

	DefaultStorageDir = "storage"
	// DatabaseFile is the SQLite file name inside the storage directory.
	DatabaseFile = "crawlee.db"
)
