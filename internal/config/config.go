package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wpitallo/crawlee/internal/utils/headers"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Crawl
	Concurrency     int
	MaxRequests     int
	LinkSelector    string
	ContentSelector string

	// HTTP/Fetching
	HTTPTimeout time.Duration
	UserAgent   string
	Headers     map[string]string
	Proxy       string
	SessionName string

	// Rendering decision
	DetectionRatio       float64
	ChangeRatioThreshold float64
	MutationThreshold    int64
	HandlerTimeout       time.Duration

	// Browser Pool
	BrowserPoolSize int
	BrowserHeadless bool
	ChromePath      string
	PageTimeout     time.Duration

	// Rate Limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Storage
	StorageDir string
}

// DatabasePath returns the SQLite file backing the request queue and dataset.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StorageDir, DatabaseFile)
}

// Load builds a Config by combining defaults, environment variables, and CLI
// flags, in that order of precedence. Caller should pass the command whose
// flags have been parsed; a nil cmd yields defaults plus environment.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:             DefaultLogLevel,
		JSONLog:              DefaultJSONLog,
		Concurrency:          DefaultConcurrency,
		LinkSelector:         DefaultLinkSelector,
		HTTPTimeout:          DefaultHTTPTimeout,
		UserAgent:            DefaultUserAgent,
		DetectionRatio:       DefaultDetectionRatio,
		ChangeRatioThreshold: DefaultChangeRatioThreshold,
		MutationThreshold:    DefaultMutationThreshold,
		HandlerTimeout:       DefaultHandlerTimeout,
		BrowserPoolSize:      DefaultBrowserPoolSize,
		BrowserHeadless:      DefaultBrowserHeadless,
		PageTimeout:          DefaultPageTimeout,
		RateLimitRPS:         DefaultRateLimitRPS,
		RateLimitBurst:       DefaultRateLimitBurst,
		StorageDir:           DefaultStorageDir,
	}

	applyEnv(cfg)

	if cmd != nil {
		applyFlags(cfg, cmd)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides cfg from CRAWLEE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CRAWLEE_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("CRAWLEE_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRAWLEE_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("CRAWLEE_STORAGE_DIR"); v != "" {
		cfg.StorageDir = v
	}
	if v := os.Getenv("CRAWLEE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CRAWLEE_DETECTION_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DetectionRatio = f
		}
	}
}

// applyFlags overrides cfg from flags the user actually set.
func applyFlags(cfg *Config, cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("verbose") {
		cfg.LogLevel = "debug"
	}
	if flags.Changed("quiet") {
		cfg.LogLevel = "error"
	}
	if flags.Changed("json-logs") {
		cfg.JSONLog, _ = flags.GetBool("json-logs")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("max-requests") {
		cfg.MaxRequests, _ = flags.GetInt("max-requests")
	}
	if flags.Changed("link-selector") {
		cfg.LinkSelector, _ = flags.GetString("link-selector")
	}
	if flags.Changed("selector") {
		cfg.ContentSelector, _ = flags.GetString("selector")
	}
	if flags.Changed("timeout") {
		if s, _ := flags.GetString("timeout"); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				cfg.HTTPTimeout = d
			}
		}
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent, _ = flags.GetString("user-agent")
	}
	if flags.Changed("header") {
		pairs, _ := flags.GetStringSlice("header")
		cfg.Headers = headers.ParseHeaders(pairs)
	}
	if flags.Changed("proxy") {
		cfg.Proxy, _ = flags.GetString("proxy")
	}
	if flags.Changed("session") {
		cfg.SessionName, _ = flags.GetString("session")
	}
	if flags.Changed("detect-ratio") {
		cfg.DetectionRatio, _ = flags.GetFloat64("detect-ratio")
	}
	if flags.Changed("pool-size") {
		cfg.BrowserPoolSize, _ = flags.GetInt("pool-size")
	}
	if flags.Changed("headless") {
		cfg.BrowserHeadless, _ = flags.GetBool("headless")
	}
	if flags.Changed("chrome-path") {
		cfg.ChromePath, _ = flags.GetString("chrome-path")
	}
	if flags.Changed("rate") {
		cfg.RateLimitRPS, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("burst") {
		cfg.RateLimitBurst, _ = flags.GetInt("burst")
	}
	if flags.Changed("storage-dir") {
		cfg.StorageDir, _ = flags.GetString("storage-dir")
	}
}
