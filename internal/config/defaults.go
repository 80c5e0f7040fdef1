package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel            = "info"
	DefaultJSONLog             = false
	DefaultUserAgent           = "Scrapekit/1.0 (https://github.com/law-makers/scrapekit)"
	DefaultBackend             = BackendChromedp
	DefaultHeadless            = true
	DefaultTimeout             = 30 * time.Second
	DefaultWaitTimeout         = 10 * time.Second
	DefaultReadiness           = ReadinessPoll
	DefaultReadyDelay          = 5 * time.Second
	DefaultPollInterval        = 250 * time.Millisecond
	DefaultPollAttempts        = 8
	DefaultRetryAttempts       = 2
	DefaultRateLimitRPS        = 2.0
	DefaultRateLimitBurst      = 4
	DefaultCacheMaxSizeBytes   = 32 * 1024 * 1024 // 32MB
	DefaultCacheTTL            = 2 * time.Minute
	DefaultDownloadDir         = "./downloads"
	DefaultDownloadConcurrency = 3
	MaxDownloadConcurrency     = 16
	DefaultDownloadTimeout     = 30 * time.Minute
	DefaultIDMPath             = `C:\Program Files (x86)\Internet Download Manager\IDMan.exe`
)

// Backend names
const (
	BackendChromedp   = "chromedp"
	BackendRod        = "rod"
	BackendPlaywright = "playwright"
	BackendStatic     = "static"
)

// Readiness strategies
const (
	ReadinessPoll  = "poll"
	ReadinessFixed = "fixed"
)
