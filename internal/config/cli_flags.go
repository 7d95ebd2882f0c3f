package config

import "github.com/spf13/cobra"

// RegisterFlags registers the shared CLI flags on the root command. Crawl
// behavior flags live here so Load can read them from any subcommand.
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	flags := cmd.PersistentFlags()

	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.BoolP("quiet", "q", false, "Suppress all output except errors")
	flags.Bool("json-logs", false, "Emit logs as raw JSON instead of console output")

	flags.IntP("concurrency", "c", DefaultConcurrency, "Number of requests processed in parallel")
	flags.Int("max-requests", 0, "Stop after this many requests (0 = unlimited)")
	flags.String("link-selector", DefaultLinkSelector, "CSS selector used to discover links")
	flags.StringP("selector", "s", "", "CSS selector to extract as the record content (e.g., .price, #content)")

	flags.String("timeout", DefaultHTTPTimeout.String(), "HTTP request timeout")
	flags.String("user-agent", "", "Custom user agent string")
	flags.StringSlice("header", nil, "Extra request header (\"Key: Value\", repeatable)")
	flags.String("proxy", "", "HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	flags.String("session", "", "Named session whose cookies and headers are sent with requests")

	flags.Float64("detect-ratio", DefaultDetectionRatio, "Share of settled-host requests that still probe rendering type (0..1)")

	flags.Int("pool-size", DefaultBrowserPoolSize, "Browser contexts kept warm for rendering")
	flags.Bool("headless", DefaultBrowserHeadless, "Run the browser headless")
	flags.String("chrome-path", "", "Path to the Chrome/Chromium binary (auto-detected when empty)")

	flags.Float64("rate", DefaultRateLimitRPS, "Per-domain request rate limit (requests/second)")
	flags.Int("burst", DefaultRateLimitBurst, "Per-domain rate limit burst")

	flags.String("storage-dir", DefaultStorageDir, "Directory for the request queue and dataset database")
}
