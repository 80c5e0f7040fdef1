package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`

	// Backend
	Backend     string        `yaml:"backend"`
	Headless    bool          `yaml:"headless"`
	Stealth     bool          `yaml:"stealth"`
	ChromePath  string        `yaml:"chrome_path"`
	UserAgent   string        `yaml:"user_agent"`
	Proxy       string        `yaml:"proxy"`
	SessionName string        `yaml:"session"`
	Timeout     time.Duration `yaml:"timeout"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// Readiness and retries
	Readiness     string        `yaml:"readiness"`
	ReadyDelay    time.Duration `yaml:"ready_delay"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	PollAttempts  int           `yaml:"poll_attempts"`
	RetryAttempts int           `yaml:"retry_attempts"`

	// Static backend
	RateLimitRPS      float64       `yaml:"rate_limit_rps"`
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
	CacheMaxSizeBytes int64         `yaml:"cache_max_size_bytes"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`

	// Download manager
	DownloadDir         string        `yaml:"download_dir"`
	DownloadConcurrency int           `yaml:"download_concurrency"`
	DownloadTimeout     time.Duration `yaml:"download_timeout"`
	IDMCLI              bool          `yaml:"idm_cli"`
	IDMPath             string        `yaml:"idm_path"`
	IDMStartQueue       bool          `yaml:"idm_start_queue"`
}

// Default returns a Config populated with the package defaults.
func Default() *Config {
	return &Config{
		LogLevel:            DefaultLogLevel,
		JSONLog:             DefaultJSONLog,
		Backend:             DefaultBackend,
		Headless:            DefaultHeadless,
		UserAgent:           DefaultUserAgent,
		Timeout:             DefaultTimeout,
		WaitTimeout:         DefaultWaitTimeout,
		Readiness:           DefaultReadiness,
		ReadyDelay:          DefaultReadyDelay,
		PollInterval:        DefaultPollInterval,
		PollAttempts:        DefaultPollAttempts,
		RetryAttempts:       DefaultRetryAttempts,
		RateLimitRPS:        DefaultRateLimitRPS,
		RateLimitBurst:      DefaultRateLimitBurst,
		CacheMaxSizeBytes:   DefaultCacheMaxSizeBytes,
		CacheTTL:            DefaultCacheTTL,
		DownloadDir:         DefaultDownloadDir,
		DownloadConcurrency: DefaultDownloadConcurrency,
		DownloadTimeout:     DefaultDownloadTimeout,
		IDMPath:             DefaultIDMPath,
	}
}

// Load builds a Config by combining defaults, an optional YAML file, environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			if err := loadFile(cfg, f.Value.String()); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(cfg)

	if cmd != nil {
		if err := applyFlags(cfg, cmd); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML document at path onto cfg. Unknown keys are rejected.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SCRAPEKIT_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("SCRAPEKIT_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("SCRAPEKIT_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SCRAPEKIT_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("SCRAPEKIT_IDM_PATH"); v != "" {
		cfg.IDMPath = v
	}
	if v := os.Getenv("SCRAPEKIT_IDM_CLI"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.IDMCLI = b
		}
	}
}

func applyFlags(cfg *Config, cmd *cobra.Command) error {
	str := func(name string) string {
		if f := cmd.Flags().Lookup(name); f != nil {
			return f.Value.String()
		}
		return ""
	}
	dur := func(name string, dst *time.Duration) error {
		if s := str(name); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("invalid --%s: %w", name, err)
			}
			*dst = d
		}
		return nil
	}

	if s := str("backend"); s != "" {
		cfg.Backend = s
	}
	if s := str("user-agent"); s != "" {
		cfg.UserAgent = s
	}
	if s := str("proxy"); s != "" {
		cfg.Proxy = s
	}
	if s := str("session"); s != "" {
		cfg.SessionName = s
	}
	if s := str("readiness"); s != "" {
		cfg.Readiness = s
	}
	if err := dur("timeout", &cfg.Timeout); err != nil {
		return err
	}
	if err := dur("ready-delay", &cfg.ReadyDelay); err != nil {
		return err
	}
	if s := str("retries"); s != "" && s != "0" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid --retries: %w", err)
		}
		cfg.RetryAttempts = n
	}
	if str("headful") == "true" {
		cfg.Headless = false
	}
	if str("json") == "true" {
		cfg.JSONLog = true
	}
	if str("verbose") == "true" {
		cfg.LogLevel = "debug"
	}
	return nil
}
