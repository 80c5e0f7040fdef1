package config

import "fmt"

func validate(c *Config) error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be > 0")
	}
	switch c.Backend {
	case BackendChromedp, BackendRod, BackendPlaywright, BackendStatic:
	default:
		return fmt.Errorf("unknown backend %q (must be chromedp, rod, playwright, or static)", c.Backend)
	}
	switch c.Readiness {
	case ReadinessPoll, ReadinessFixed:
	default:
		return fmt.Errorf("unknown readiness strategy %q (must be poll or fixed)", c.Readiness)
	}
	if c.ReadyDelay < 0 {
		return fmt.Errorf("ready delay must be >= 0")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be >= 1")
	}
	if c.DownloadConcurrency < 1 || c.DownloadConcurrency > MaxDownloadConcurrency {
		return fmt.Errorf("download concurrency must be between 1 and %d", MaxDownloadConcurrency)
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	return nil
}
