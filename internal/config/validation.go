package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.HandlerTimeout <= 0 {
		return fmt.Errorf("handler timeout must be > 0")
	}
	if c.Concurrency <= 0 || c.Concurrency > DefaultMaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d", DefaultMaxConcurrency)
	}
	if c.MaxRequests < 0 {
		return fmt.Errorf("max requests cannot be negative")
	}
	if c.DetectionRatio < 0 || c.DetectionRatio > 1 {
		return fmt.Errorf("detection ratio must be between 0 and 1")
	}
	if c.ChangeRatioThreshold < 0 || c.ChangeRatioThreshold > 1 {
		return fmt.Errorf("change ratio threshold must be between 0 and 1")
	}
	if c.MutationThreshold < 0 {
		return fmt.Errorf("mutation threshold cannot be negative")
	}
	if c.BrowserPoolSize <= 0 || c.BrowserPoolSize > DefaultMaxBrowserPoolSize {
		return fmt.Errorf("browser pool size must be between 1 and %d", DefaultMaxBrowserPoolSize)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be > 0 requests/second")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be > 0")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage directory cannot be empty")
	}
	return nil
}
