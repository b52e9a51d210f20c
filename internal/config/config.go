// Package config loads client configuration from environment variables and
// an optional YAML profile overlay, type-safely.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BackoffKind selects the retry delay curve.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// JitterKind selects how retry delay is randomized.
type JitterKind string

const (
	JitterNone  JitterKind = "none"
	JitterFull  JitterKind = "full"
	JitterEqual JitterKind = "equal"
)

// CacheStrategy selects the cache response-freshness policy.
type CacheStrategy string

const (
	CacheNone   CacheStrategy = "no-store"
	CacheTTL    CacheStrategy = "ttl"
	CacheSWR    CacheStrategy = "stale-while-revalidate"
)

// TimeoutConfig breaks the single request budget into named phases.
type TimeoutConfig struct {
	Request       time.Duration `yaml:"request"`
	Connect       time.Duration `yaml:"connect"`
	ResponseStart time.Duration `yaml:"response_start"`
	BetweenBytes  time.Duration `yaml:"between_bytes"`
}

// RetryConfig controls the retry engine per request attempt.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     BackoffKind   `yaml:"backoff"`
	Delay       time.Duration `yaml:"delay"`
	Factor      float64       `yaml:"factor"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      JitterKind    `yaml:"jitter"`
	StatusCodes []int         `yaml:"status_codes"`
	Methods     []string      `yaml:"methods"`
}

// ConcurrencyConfig bounds how many requests the scheduler admits at once.
type ConcurrencyConfig struct {
	Max                int           `yaml:"max"`
	PerDomainMax       int           `yaml:"per_domain_max"`
	RequestsPerInterval int          `yaml:"requests_per_interval"`
	Interval           time.Duration `yaml:"interval"`
	AgentConnections   int           `yaml:"agent_connections"` // 0 means "auto"
	PerDomainPooling   bool          `yaml:"per_domain_pooling"`
}

// CacheConfig controls the response cache middleware.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Strategy CacheStrategy `yaml:"strategy"`
	TTL      time.Duration `yaml:"ttl"`
	SWR      time.Duration `yaml:"swr"`
	Store    string        `yaml:"store"` // "memory" or "redis"
	RedisURL string        `yaml:"redis_url"`
}

// CookieConfig controls the cookie jar middleware.
type CookieConfig struct {
	Enabled       bool `yaml:"enabled"`
	IgnoreInvalid bool `yaml:"ignore_invalid"`
}

// Config is the top-level client configuration, assembled from environment
// variables via New and optionally overridden by a YAML profile via
// LoadFromFile.
type Config struct {
	BaseURL string            `yaml:"base_url"`
	Headers map[string]string `yaml:"headers"`

	Timeout TimeoutConfig `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`

	FollowRedirects bool `yaml:"follow_redirects"`
	MaxRedirects    int  `yaml:"max_redirects"`

	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Cache       CacheConfig       `yaml:"cache"`
	Cookies     CookieConfig      `yaml:"cookies"`

	ThrowOnHTTPError bool `yaml:"throw_on_http_error"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// New builds a Config from environment variables, applying defaults for
// anything unset.
func New() (*Config, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = EnvOrDefault("RECKER_BASE_URL", cfg.BaseURL)

	cfg.Timeout.Request = EnvDurationOrDefault("RECKER_TIMEOUT_REQUEST", cfg.Timeout.Request)
	cfg.Timeout.Connect = EnvDurationOrDefault("RECKER_TIMEOUT_CONNECT", cfg.Timeout.Connect)
	cfg.Timeout.ResponseStart = EnvDurationOrDefault("RECKER_TIMEOUT_RESPONSE_START", cfg.Timeout.ResponseStart)
	cfg.Timeout.BetweenBytes = EnvDurationOrDefault("RECKER_TIMEOUT_BETWEEN_BYTES", cfg.Timeout.BetweenBytes)

	cfg.Retry.MaxAttempts = EnvIntOrDefault("RECKER_RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
	cfg.Retry.Backoff = BackoffKind(EnvOrDefault("RECKER_RETRY_BACKOFF", string(cfg.Retry.Backoff)))
	cfg.Retry.Delay = EnvDurationOrDefault("RECKER_RETRY_DELAY", cfg.Retry.Delay)
	cfg.Retry.MaxDelay = EnvDurationOrDefault("RECKER_RETRY_MAX_DELAY", cfg.Retry.MaxDelay)
	cfg.Retry.Jitter = JitterKind(EnvOrDefault("RECKER_RETRY_JITTER", string(cfg.Retry.Jitter)))
	cfg.Retry.StatusCodes = statusCodesFromEnv("RECKER_RETRY_STATUS_CODES", cfg.Retry.StatusCodes)
	cfg.Retry.Methods = EnvStringSliceOrDefault("RECKER_RETRY_METHODS", cfg.Retry.Methods)

	cfg.FollowRedirects = EnvBoolOrDefault("RECKER_FOLLOW_REDIRECTS", cfg.FollowRedirects)
	cfg.MaxRedirects = EnvIntOrDefault("RECKER_MAX_REDIRECTS", cfg.MaxRedirects)

	cfg.Concurrency.Max = EnvIntOrDefault("RECKER_CONCURRENCY_MAX", cfg.Concurrency.Max)
	cfg.Concurrency.PerDomainMax = EnvIntOrDefault("RECKER_CONCURRENCY_PER_DOMAIN_MAX", cfg.Concurrency.PerDomainMax)
	cfg.Concurrency.RequestsPerInterval = EnvIntOrDefault("RECKER_CONCURRENCY_REQUESTS_PER_INTERVAL", cfg.Concurrency.RequestsPerInterval)
	cfg.Concurrency.Interval = EnvDurationOrDefault("RECKER_CONCURRENCY_INTERVAL", cfg.Concurrency.Interval)

	cfg.Cache.Enabled = EnvBoolOrDefault("RECKER_CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.Strategy = CacheStrategy(EnvOrDefault("RECKER_CACHE_STRATEGY", string(cfg.Cache.Strategy)))
	cfg.Cache.TTL = EnvDurationOrDefault("RECKER_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.Store = EnvOrDefault("RECKER_CACHE_STORE", cfg.Cache.Store)
	cfg.Cache.RedisURL = EnvOrDefault("RECKER_CACHE_REDIS_URL", cfg.Cache.RedisURL)

	cfg.Cookies.Enabled = EnvBoolOrDefault("RECKER_COOKIES_ENABLED", cfg.Cookies.Enabled)

	cfg.ThrowOnHTTPError = EnvBoolOrDefault("RECKER_THROW_ON_HTTP_ERROR", cfg.ThrowOnHTTPError)

	cfg.LogLevel = EnvOrDefault("RECKER_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = EnvOrDefault("RECKER_LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = EnvOrDefault("RECKER_LOG_FILE", cfg.LogFile)

	if cfg.Retry.MaxAttempts < 0 {
		return nil, fmt.Errorf("config: retry max attempts must be >= 0, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Timeout.Request < 0 {
		return nil, fmt.Errorf("config: request timeout must be >= 0, got %s", cfg.Timeout.Request)
	}

	return cfg, nil
}

// DefaultConfig returns a Config populated with recker's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Headers: map[string]string{},
		Timeout: TimeoutConfig{
			Request:       30 * time.Second,
			Connect:       10 * time.Second,
			ResponseStart: 15 * time.Second,
			BetweenBytes:  10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff:     BackoffExponential,
			Delay:       200 * time.Millisecond,
			Factor:      2.0,
			MaxDelay:    10 * time.Second,
			Jitter:      JitterFull,
			StatusCodes: []int{408, 425, 429, 500, 502, 503, 504},
			Methods:     []string{"GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE"},
		},
		FollowRedirects: true,
		MaxRedirects:    5,
		Concurrency: ConcurrencyConfig{
			Max:                 64,
			PerDomainMax:        6,
			RequestsPerInterval: 0,
			Interval:            time.Second,
			AgentConnections:    0,
			PerDomainPooling:    true,
		},
		Cache: CacheConfig{
			Enabled:  false,
			Strategy: CacheNone,
			Store:    "memory",
		},
		Cookies: CookieConfig{
			Enabled:       true,
			IgnoreInvalid: true,
		},
		ThrowOnHTTPError: true,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadFromFile reads a YAML profile and overlays it on DefaultConfig.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// statusCodesFromEnv and methodsFromEnv let RECKER_RETRY_STATUS_CODES /
// RECKER_RETRY_METHODS override the default retry predicate lists via a
// comma-separated environment value, reusing EnvStringSliceOrDefault.
func statusCodesFromEnv(key string, fallback []int) []int {
	raw := EnvStringSliceOrDefault(key, nil)
	if raw == nil {
		return fallback
	}
	out := make([]int, 0, len(raw))
	for _, s := range raw {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			out = append(out, n)
		}
	}
	return out
}
