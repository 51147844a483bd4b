// Package config loads memocloud settings from defaults, an optional config
// file, MEMOCLOUD_* environment variables and bound command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/michaekong/memocloud/pkg/logging"
)

// EnvPrefix prefixes every environment override, e.g. MEMOCLOUD_API_BASE_URL.
const EnvPrefix = "MEMOCLOUD"

// Config holds all memocloud settings.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Corpus  CorpusConfig  `mapstructure:"corpus"`
	Search  SearchConfig  `mapstructure:"search"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
}

// APIConfig describes the remote repository API.
type APIConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	MediaURL        string        `mapstructure:"media_url"`
	University      string        `mapstructure:"university"`
	HomeInstitution string        `mapstructure:"home_institution"`
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second, 0 disables pacing
	Burst           int           `mapstructure:"burst"`
}

// RetryConfig controls retries of idempotent requests.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// CorpusConfig controls the session corpus build.
type CorpusConfig struct {
	Ordering string `mapstructure:"ordering"`
	MaxPages int    `mapstructure:"max_pages"`
}

// SearchConfig controls interactive search.
type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// RedisConfig configures the optional shared cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// SessionConfig locates the persisted session. An empty Dir means ~/.memocloud.
type SessionConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig configures the process logger (see package logging).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultUserAgent identifies the client to the API.
const DefaultUserAgent = "memocloud/1.0 (+https://github.com/michaekong/memocloud)"

// New returns a viper instance with every default set and environment
// overrides enabled. Callers may bind flags to it before calling Read.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("api.base_url", "https://mcb.reimca-app.com/api")
	v.SetDefault("api.media_url", "https://mcb.reimca-app.com")
	v.SetDefault("api.university", "ecole-des-travaux")
	v.SetDefault("api.home_institution", "ecole des travaux")
	v.SetDefault("api.user_agent", DefaultUserAgent)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", time.Second)
	v.SetDefault("corpus.ordering", "-created_at")
	v.SetDefault("corpus.max_pages", 500)
	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("session.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("server.addr", ":8080")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration from path (or the default search locations when
// path is empty), environment variables and defaults.
func Load(path string) (*Config, error) {
	return Read(New(), path)
}

// Read loads configuration into v and decodes it. An explicit path must
// exist; without one, a missing memocloud.{yaml,toml,json} is not an error.
func Read(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("memocloud")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.memocloud")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL (got %q)", c.API.BaseURL)
	}
	if strings.TrimSpace(c.API.University) == "" {
		return fmt.Errorf("api.university is required")
	}
	if strings.TrimSpace(c.API.UserAgent) == "" {
		return fmt.Errorf("api.user_agent is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0 (got %s)", c.API.Timeout)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be >= 0 (got %g)", c.API.RateLimit)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be >= 0 (got %d)", c.Retry.MaxAttempts)
	}
	if c.Corpus.MaxPages <= 0 {
		return fmt.Errorf("corpus.max_pages must be > 0 (got %d)", c.Corpus.MaxPages)
	}
	if c.Search.Debounce <= 0 {
		return fmt.Errorf("search.debounce must be > 0 (got %s)", c.Search.Debounce)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
