// Package config provides configuration loading and validation for the CLI
// and the execution host.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ProxyConfig holds the routed-path proxy settings for stealth launches.
// All fields may also come from PROXY_SERVER / PROXY_USERNAME / PROXY_PASSWORD.
type ProxyConfig struct {
	Server   string `json:"server,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Configured reports whether a proxy server is set at all.
func (p ProxyConfig) Configured() bool { return p.Server != "" }

// Config represents the orchestrator configuration that can be loaded from a
// JSON file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Stores
	DatabaseURL   string `json:"database_url,omitempty"`   // PostgreSQL connection URL
	RedisAddr     string `json:"redis_addr,omitempty"`     // Redis address for the durable queue
	RedisPassword string `json:"redis_password,omitempty"` // Redis password
	RedisDB       int    `json:"redis_db,omitempty"`       // Redis database index

	// Browser
	Headless      bool        `json:"headless"`                 // Headless browser (default true)
	Proxy         ProxyConfig `json:"proxy,omitempty"`          // Stealth-path proxy
	GeoIP         bool        `json:"geoip,omitempty"`          // Geo-consistent fingerprint (requires proxy)
	ScreenshotDir string      `json:"screenshot_dir,omitempty"` // Where terminal-state screenshots are written

	// Generation
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key for the document generator
	ArtifactDir string `json:"artifact_dir,omitempty"` // Where generated documents are written

	// Policy knobs. The reuse window and confidence thresholds are business
	// heuristics, kept configurable rather than hard-coded.
	ReuseWindowDays     int `json:"reuse_window_days,omitempty"`    // Same-employer artifact reuse window
	AcceptConfidence    int `json:"accept_confidence,omitempty"`    // Minimum confidence to accept (0-100)
	UncertainConfidence int `json:"uncertain_confidence,omitempty"` // Minimum confidence to escalate instead of fail
	MaxSubmitAttempts   int `json:"max_submit_attempts,omitempty"`  // Submission attempt budget per cycle

	// Timeouts and delays, all bounded per the concurrency model.
	NavigationTimeoutSec int `json:"navigation_timeout_sec,omitempty"` // Primary navigation timeout
	LoadSettleTimeoutSec int `json:"load_settle_timeout_sec,omitempty"`
	SettleDelayMs        int `json:"settle_delay_ms,omitempty"`    // Inter-state settle delay
	VerifyIntervalSec    int `json:"verify_interval_sec,omitempty"`
	VerifyCeilingSec     int `json:"verify_ceiling_sec,omitempty"` // Mailbox polling wall-clock ceiling

	// Execution host
	PoolSize int    `json:"pool_size,omitempty"` // Worker-pool concurrency cap
	QueueKey string `json:"queue_key,omitempty"` // Redis list key for queued requests

	// Output
	LogLevel  string `json:"log_level,omitempty"`  // debug, info, warn, error
	LogFormat string `json:"log_format,omitempty"` // json or console
	Verbose   bool   `json:"verbose,omitempty"`    // Print formatted record summaries
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Pre-seed the bools whose default is true; fields absent from the file
	// keep the seed, fields present overwrite it.
	cfg := Config{Headless: true}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv fills store credentials and proxy settings from the environment
// when the config file left them empty.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisAddr == "" {
		c.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Proxy.Server == "" {
		c.Proxy.Server = os.Getenv("PROXY_SERVER")
	}
	if c.Proxy.Username == "" {
		c.Proxy.Username = os.Getenv("PROXY_USERNAME")
	}
	if c.Proxy.Password == "" {
		c.Proxy.Password = os.Getenv("PROXY_PASSWORD")
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.AcceptConfidence < 0 || c.AcceptConfidence > 100 {
		return fmt.Errorf("config error: 'accept_confidence' must be in 0-100")
	}
	if c.UncertainConfidence < 0 || c.UncertainConfidence > 100 {
		return fmt.Errorf("config error: 'uncertain_confidence' must be in 0-100")
	}
	if c.UncertainConfidence > c.AcceptConfidence && c.AcceptConfidence != 0 {
		return fmt.Errorf("config error: 'uncertain_confidence' must not exceed 'accept_confidence'")
	}
	if c.MaxSubmitAttempts < 0 {
		return fmt.Errorf("config error: 'max_submit_attempts' must be non-negative")
	}
	if c.ReuseWindowDays < 0 {
		return fmt.Errorf("config error: 'reuse_window_days' must be non-negative")
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("config error: 'pool_size' must be non-negative")
	}
	if c.GeoIP && !c.Proxy.Configured() {
		return fmt.Errorf("config error: 'geoip' requires a proxy server")
	}
	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from
// defaults. Zero means unset for the numeric policy knobs; bools are not
// merged (CLI flags always win for bools).
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.QueueKey == "" {
		result.QueueKey = defaults.QueueKey
	}
	if result.ScreenshotDir == "" {
		result.ScreenshotDir = defaults.ScreenshotDir
	}
	if result.ArtifactDir == "" {
		result.ArtifactDir = defaults.ArtifactDir
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	if result.ReuseWindowDays == 0 {
		result.ReuseWindowDays = defaults.ReuseWindowDays
	}
	if result.AcceptConfidence == 0 {
		result.AcceptConfidence = defaults.AcceptConfidence
	}
	if result.UncertainConfidence == 0 {
		result.UncertainConfidence = defaults.UncertainConfidence
	}
	if result.MaxSubmitAttempts == 0 {
		result.MaxSubmitAttempts = defaults.MaxSubmitAttempts
	}
	if result.NavigationTimeoutSec == 0 {
		result.NavigationTimeoutSec = defaults.NavigationTimeoutSec
	}
	if result.LoadSettleTimeoutSec == 0 {
		result.LoadSettleTimeoutSec = defaults.LoadSettleTimeoutSec
	}
	if result.SettleDelayMs == 0 {
		result.SettleDelayMs = defaults.SettleDelayMs
	}
	if result.VerifyIntervalSec == 0 {
		result.VerifyIntervalSec = defaults.VerifyIntervalSec
	}
	if result.VerifyCeilingSec == 0 {
		result.VerifyCeilingSec = defaults.VerifyCeilingSec
	}
	if result.PoolSize == 0 {
		result.PoolSize = defaults.PoolSize
	}

	return result
}

// Defaults returns the baseline configuration. The 7-day reuse window and the
// 50/25 confidence thresholds mirror the product defaults.
func Defaults() Config {
	return Config{
		Headless:             true,
		ReuseWindowDays:      7,
		AcceptConfidence:     50,
		UncertainConfidence:  25,
		MaxSubmitAttempts:    2,
		NavigationTimeoutSec: 60,
		LoadSettleTimeoutSec: 10,
		SettleDelayMs:        1500,
		VerifyIntervalSec:    10,
		VerifyCeilingSec:     120,
		PoolSize:             3,
		QueueKey:             "autoapply:applications",
		RedisAddr:            "localhost:6379",
		ScreenshotDir:        os.TempDir(),
		ArtifactDir:          os.TempDir(),
		LogLevel:             "info",
		LogFormat:            "console",
	}
}

// NavigationTimeout returns the primary navigation timeout as a duration.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeoutSec) * time.Second
}

// LoadSettleTimeout returns the secondary load-settle timeout as a duration.
func (c *Config) LoadSettleTimeout() time.Duration {
	return time.Duration(c.LoadSettleTimeoutSec) * time.Second
}

// SettleDelay returns the inter-state settle delay as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// VerifyInterval returns the mailbox polling interval as a duration.
func (c *Config) VerifyInterval() time.Duration {
	return time.Duration(c.VerifyIntervalSec) * time.Second
}

// VerifyCeiling returns the mailbox polling ceiling as a duration.
func (c *Config) VerifyCeiling() time.Duration {
	return time.Duration(c.VerifyCeilingSec) * time.Second
}

// ReuseWindow returns the same-employer artifact reuse window as a duration.
func (c *Config) ReuseWindow() time.Duration {
	return time.Duration(c.ReuseWindowDays) * 24 * time.Hour
}
