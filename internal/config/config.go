// Package config loads process configuration for the uniqm CLI.
//
// Loading order, later steps overriding earlier ones:
//  1. built-in defaults
//  2. a .env file (secrets such as UNIQM_REDIS_PASSWORD)
//  3. a YAML file
//  4. UNIQM_* environment variables
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	Redis   RedisConfig   `yaml:"redis"`
	Prefix  string        `yaml:"prefix"`
	Pool    PoolConfig    `yaml:"pool"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PoolConfig mirrors the worker pool knobs. Zero durations mean "library
// default"; negative TTLs mean no expiry.
type PoolConfig struct {
	Capacity      int           `yaml:"capacity"`
	FinishedAge   time.Duration `yaml:"finished_age"`
	FailedAge     time.Duration `yaml:"failed_age"`
	NoCallbackAge time.Duration `yaml:"no_callback_age"`
	InProgressAge time.Duration `yaml:"in_progress_age"`
	Period        time.Duration `yaml:"period"`
	MinJitter     time.Duration `yaml:"min_jitter"`
	MaxJitter     time.Duration `yaml:"max_jitter"`
	AtomicClaim   bool          `yaml:"atomic_claim"`
	ClaimLockTTL  time.Duration `yaml:"claim_lock_ttl"`
	SpawnerID     string        `yaml:"spawner_id"`
}

type MetricsConfig struct {
	// Addr of the /metrics listener; empty disables it.
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Redis:   RedisConfig{Addr: "127.0.0.1:6379"},
		Prefix:  "uniqm",
		Pool:    PoolConfig{Capacity: 5},
		Metrics: MetricsConfig{Namespace: "uniqm"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. An empty envFile tries ./.env and ignores
// its absence; an explicit envFile must exist. An empty path skips YAML.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := FromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pool cannot run with.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return errors.New("config: redis.addr is required")
	}
	if c.Pool.Capacity < 0 {
		return fmt.Errorf("config: pool.capacity must be >= 0, got %d", c.Pool.Capacity)
	}
	if c.Pool.Period < 0 {
		return fmt.Errorf("config: pool.period must be >= 0, got %s", c.Pool.Period)
	}
	if c.Pool.MaxJitter > 0 && c.Pool.MinJitter > c.Pool.MaxJitter {
		return fmt.Errorf("config: pool.min_jitter %s exceeds pool.max_jitter %s", c.Pool.MinJitter, c.Pool.MaxJitter)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// RedisOptions converts the redis section into client options.
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Username: c.Redis.Username,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// String returns a summary with the password hidden.
func (c *Config) String() string {
	pw := ""
	if c.Redis.Password != "" {
		pw = "***"
	}
	return fmt.Sprintf("Config{Redis: %s/%d password=%q, Prefix: %s, Capacity: %d}",
		c.Redis.Addr, c.Redis.DB, pw, c.Prefix, c.Pool.Capacity)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return l, nil
}
