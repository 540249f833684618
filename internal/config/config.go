// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Scraper        ScraperConfig        `mapstructure:"scraper"`
	Keywords       KeywordsConfig       `mapstructure:"keywords"`
	MetricsService MetricsServiceConfig `mapstructure:"metrics_service"`
	AI             AIConfig             `mapstructure:"ai"`
	RateLimit      RateLimitConfig      `mapstructure:"ratelimit"`
	Jobs           JobsConfig           `mapstructure:"jobs"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior. TrustProxy enables reading the
// client IP from X-Forwarded-For; without it the rate limiter keys on the
// direct peer address.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	TrustProxy  bool     `mapstructure:"trust_proxy"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ScraperConfig governs the crawl stage.
type ScraperConfig struct {
	MaxPages    int     `mapstructure:"max_pages"`
	TimeoutMs   int     `mapstructure:"timeout_ms"`
	UserAgent   string  `mapstructure:"user_agent"`
	Attempts    int     `mapstructure:"attempts"`
	DomainQPS   float64 `mapstructure:"domain_qps"`
	MaxParallel int     `mapstructure:"max_parallel_tabs"`
}

// KeywordsConfig bounds the metrics stage output.
type KeywordsConfig struct {
	Max             int `mapstructure:"max"`
	MinSearchVolume int `mapstructure:"min_search_volume"`
}

// MetricsServiceConfig points at the keyword-metrics sidecar.
type MetricsServiceConfig struct {
	URL       string `mapstructure:"url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// AIConfig configures the generative-AI collaborator. An empty BaseURL
// disables AI enhancement entirely.
type AIConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// RateLimitConfig bounds job creation per source IP.
type RateLimitConfig struct {
	WindowMinutes int `mapstructure:"window_minutes"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// JobsConfig controls retention of finished jobs.
type JobsConfig struct {
	TTLHours     int `mapstructure:"ttl_hours"`
	SweepMinutes int `mapstructure:"sweep_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("scraper.max_pages", 20)
	v.SetDefault("scraper.timeout_ms", 30000)
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("scraper.attempts", 2)
	v.SetDefault("scraper.domain_qps", 2.0)
	v.SetDefault("scraper.max_parallel_tabs", 2)
	v.SetDefault("keywords.max", 500)
	v.SetDefault("keywords.min_search_volume", 10)
	v.SetDefault("metrics_service.url", "http://localhost:5001")
	v.SetDefault("metrics_service.timeout_ms", 120000)
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.timeout_ms", 90000)
	v.SetDefault("ratelimit.window_minutes", 60)
	v.SetDefault("ratelimit.max_requests", 10)
	v.SetDefault("jobs.ttl_hours", 24)
	v.SetDefault("jobs.sweep_minutes", 60)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.MaxPages <= 0 || c.Scraper.MaxPages > 100 {
		return fmt.Errorf("scraper.max_pages must be in [1,100]")
	}
	if c.Scraper.TimeoutMs <= 0 {
		return fmt.Errorf("scraper.timeout_ms must be > 0")
	}
	if c.Keywords.Max <= 0 {
		return fmt.Errorf("keywords.max must be > 0")
	}
	if c.MetricsService.URL == "" {
		return fmt.Errorf("metrics_service.url must be set")
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.WindowMinutes <= 0 {
		return fmt.Errorf("ratelimit window and max_requests must be > 0")
	}
	if c.Jobs.TTLHours <= 0 {
		return fmt.Errorf("jobs.ttl_hours must be > 0")
	}
	return nil
}

// ScraperTimeout returns the per-navigation scrape timeout.
func (c Config) ScraperTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutMs) * time.Millisecond
}

// MetricsTimeout returns the metrics sidecar request timeout.
func (c Config) MetricsTimeout() time.Duration {
	return time.Duration(c.MetricsService.TimeoutMs) * time.Millisecond
}

// AITimeout returns the per-request AI timeout.
func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutMs) * time.Millisecond
}

// JobTTL returns the retention window for finished jobs.
func (c Config) JobTTL() time.Duration {
	return time.Duration(c.Jobs.TTLHours) * time.Hour
}

// SweepInterval returns how often the job store prunes expired jobs.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Jobs.SweepMinutes) * time.Minute
}

// RateLimitWindow returns the sliding window for per-IP job admission.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMinutes) * time.Minute
}
