package paysim

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the simulator's runtime configuration. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// FaultRate is the probability in [0, 1] that a transfer fails.
	FaultRate float64 `yaml:"fault_rate"`
	// ExtraLatencyMs is a fixed delay added to every simulated transfer.
	ExtraLatencyMs int `yaml:"extra_latency_ms"`
	// JitterMs bounds the uniform random jitter added per transfer.
	JitterMs int `yaml:"latency_jitter_ms"`
	// TimeoutMs is the upstream timeout waited out by TIMEOUT_UPSTREAM
	// failures, capped at 1000ms.
	TimeoutMs int `yaml:"timeout_ms"`
	// RandomSeed fixes the randomness source when HasSeed is true.
	RandomSeed int64 `yaml:"random_seed"`
	HasSeed    bool  `yaml:"-"`
	// MaxCacheSize bounds the idempotency cache entry count.
	MaxCacheSize int `yaml:"max_cache_size"`
	// CacheTTLSeconds is the idempotency cache entry lifetime.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	// Port is the HTTP listen port.
	Port int `yaml:"port"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		FaultRate:       0.02,
		ExtraLatencyMs:  0,
		JitterMs:        50,
		TimeoutMs:       800,
		MaxCacheSize:    100000,
		CacheTTLSeconds: 600,
		Port:            8080,
	}
}

// FromEnv builds a Config from the environment, falling back to defaults
// for unset variables. Malformed values are reported, not silently
// defaulted.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays set environment variables onto c.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("FAULT_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FAULT_RATE: %w", err)
		}
		c.FaultRate = rate
	}
	var err error
	if c.ExtraLatencyMs, err = envInt("EXTRA_LATENCY_MS", c.ExtraLatencyMs); err != nil {
		return err
	}
	if c.JitterMs, err = envInt("LATENCY_JITTER_MS", c.JitterMs); err != nil {
		return err
	}
	if c.TimeoutMs, err = envInt("TIMEOUT_MS", c.TimeoutMs); err != nil {
		return err
	}
	if c.MaxCacheSize, err = envInt("MAX_CACHE_SIZE", c.MaxCacheSize); err != nil {
		return err
	}
	if c.CacheTTLSeconds, err = envInt("CACHE_TTL_SECONDS", c.CacheTTLSeconds); err != nil {
		return err
	}
	if c.Port, err = envInt("PORT", c.Port); err != nil {
		return err
	}
	if v := os.Getenv("RANDOM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("RANDOM_SEED: %w", err)
		}
		c.RandomSeed = seed
		c.HasSeed = true
	}
	return nil
}

// LoadFile overlays a YAML config file onto cfg. Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if c.RandomSeed != 0 {
		c.HasSeed = true
	}
	return c.Validate()
}

// Validate checks configured ranges.
func (c Config) Validate() error {
	if c.FaultRate < 0 || c.FaultRate > 1 {
		return fmt.Errorf("fault rate must be in [0, 1], got %v", c.FaultRate)
	}
	if c.ExtraLatencyMs < 0 || c.JitterMs < 0 || c.TimeoutMs < 0 {
		return fmt.Errorf("latency values must be non-negative")
	}
	if c.MaxCacheSize <= 0 {
		return fmt.Errorf("max cache size must be positive, got %d", c.MaxCacheSize)
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %d", c.CacheTTLSeconds)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0, 65535], got %d", c.Port)
	}
	return nil
}

func envInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}
