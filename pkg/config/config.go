// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// APIBaseURL is the backend seen from this server. PublicAPIBaseURL is
	// the browser-facing name and is used when APIBaseURL is unset.
	APIBaseURL       string `env:"API_BASE_URL"`
	PublicAPIBaseURL string `env:"PUBLIC_API_BASE_URL"`

	// Environment set to "production" makes cookies Secure and SameSite=Strict.
	Environment string `env:"APP_ENV" envDefault:"development"`

	// PublicOrigin overrides the origin used in rewritten proxy URLs.
	PublicOrigin string `env:"PUBLIC_ORIGIN"`

	RedisURL string `env:"REDIS_URL"`

	Proxy ProxyConfig
	Cache CacheConfig
	Log   LogConfig
}

// ProxyConfig configures the resource rewriting proxy.
type ProxyConfig struct {
	Ruleset               string   `env:"RULESET"`
	AllowedDomains        []string `env:"ALLOWED_DOMAINS" envSeparator:","`
	AllowedDomainsRuleset bool     `env:"ALLOWED_DOMAINS_RULESET"`
	TimeoutSeconds        int      `env:"HTTP_TIMEOUT" envDefault:"15"`
	Rewriter              string   `env:"PROXY_REWRITER" envDefault:"regex"`
	UserAgent             string   `env:"USER_AGENT"`
	LogURLs               bool     `env:"LOG_URLS"`
	// RateLimit is requests per minute per client; 0 disables it.
	RateLimit int `env:"PROXY_RATE_LIMIT" envDefault:"0"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	Size      int           `env:"CACHE_SIZE" envDefault:"4096"`
	StaleTime time.Duration `env:"CACHE_STALE_TIME" envDefault:"30s"`
	// PruneSchedule is a cron spec for dropping stale entries.
	PruneSchedule string `env:"CACHE_PRUNE_SCHEDULE" envDefault:"@every 1m"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	switch strings.ToLower(c.Proxy.Rewriter) {
	case "regex", "dom":
	default:
		errs = append(errs, fmt.Errorf("unknown PROXY_REWRITER %q, want regex or dom", c.Proxy.Rewriter))
	}
	if c.Proxy.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("negative HTTP_TIMEOUT %d", c.Proxy.TimeoutSeconds))
	}
	if c.Proxy.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("negative PROXY_RATE_LIMIT %d", c.Proxy.RateLimit))
	}
	if c.Cache.StaleTime < 0 {
		errs = append(errs, fmt.Errorf("negative CACHE_STALE_TIME %s", c.Cache.StaleTime))
	}
	return errors.Join(errs...)
}

// APIURL returns the backend base URL, preferring the server-side name.
func (c *Config) APIURL() string {
	if c.APIBaseURL != "" {
		return c.APIBaseURL
	}
	return c.PublicAPIBaseURL
}

// IsProduction reports whether cookies must be strict.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ProxyTimeout returns the upstream timeout.
func (c *Config) ProxyTimeout() time.Duration {
	return time.Duration(c.Proxy.TimeoutSeconds) * time.Second
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
