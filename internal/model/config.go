package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// SMTPConfig holds outbound email transport settings. The password is
// not stored here; it comes from the system keyring.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	From     string `mapstructure:"from" yaml:"from"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// RedisConfig selects the shared-store backings for the rate limiter
// and cache in multi-instance deployments. When Addr is empty both stay
// process-local.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// RateLimitConfig bounds how often a user may trigger external
// publication searches.
type RateLimitConfig struct {
	Limit     int `mapstructure:"limit" yaml:"limit"`
	WindowSec int `mapstructure:"window_sec" yaml:"window_sec"`
}

// Window returns the configured sliding window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSec) * time.Second
}

// CacheConfig holds per-category TTLs in seconds.
type CacheConfig struct {
	DefaultTTLSec int            `mapstructure:"default_ttl_sec" yaml:"default_ttl_sec"`
	CategoryTTLs  map[string]int `mapstructure:"category_ttls" yaml:"category_ttls"`
}

// JobConfig controls the periodic alert pass.
type JobConfig struct {
	IntervalSec        int `mapstructure:"interval_sec" yaml:"interval_sec"`
	Workers            int `mapstructure:"workers" yaml:"workers"`
	DispatchTimeoutSec int `mapstructure:"dispatch_timeout_sec" yaml:"dispatch_timeout_sec"`
}

// PublicationsConfig points at the external legal-publication search
// service.
type PublicationsConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// AppConfig is the top-level configuration for the alert daemon.
type AppConfig struct {
	DBPath       string             `mapstructure:"db_path" yaml:"db_path"`
	ListenAddr   string             `mapstructure:"listen_addr" yaml:"listen_addr"`
	SMTP         SMTPConfig         `mapstructure:"smtp" yaml:"smtp"`
	Redis        RedisConfig        `mapstructure:"redis" yaml:"redis"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit" yaml:"rate_limit"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Job          JobConfig          `mapstructure:"job" yaml:"job"`
	Publications PublicationsConfig `mapstructure:"publications" yaml:"publications"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/deadline-alerts/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "deadline-alerts", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DBPath:     "deadline-alerts.db",
		ListenAddr: ":8080",
		SMTP:       SMTPConfig{Port: "587", TLS: false},
		RateLimit:  RateLimitConfig{Limit: 5, WindowSec: 3600},
		Cache: CacheConfig{
			DefaultTTLSec: 60,
			CategoryTTLs: map[string]int{
				"dashboard": 120,
			},
		},
		Job: JobConfig{
			IntervalSec:      3600,
			Workers:          8,
			DispatchTimeoutSec: 30,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("db_path", "deadline-alerts.db")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("rate_limit.limit", 5)
	v.SetDefault("rate_limit.window_sec", 3600)
	v.SetDefault("cache.default_ttl_sec", 60)
	v.SetDefault("job.interval_sec", 3600)
	v.SetDefault("job.workers", 8)
	v.SetDefault("job.dispatch_timeout_sec", 30)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Job.Workers <= 0 {
		cfg.Job.Workers = 8
	}
	if cfg.Cache.DefaultTTLSec <= 0 {
		cfg.Cache.DefaultTTLSec = 60
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("db_path", cfg.DBPath)
	v.Set("listen_addr", cfg.ListenAddr)
	v.Set("smtp", cfg.SMTP)
	v.Set("redis", cfg.Redis)
	v.Set("rate_limit", cfg.RateLimit)
	v.Set("cache", cfg.Cache)
	v.Set("job", cfg.Job)
	v.Set("publications", cfg.Publications)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
