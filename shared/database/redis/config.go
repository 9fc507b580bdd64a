package redis

import (
	"fmt"
	"time"
)

// Config represents Redis configuration for the lookup cache
type Config struct {
	Address      string        `yaml:"address" json:"address"`
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	KeyPrefix     string            `yaml:"key_prefix" json:"key_prefix"`
	Serialization string            `yaml:"serialization" json:"serialization"`
	Compression   CompressionConfig `yaml:"compression" json:"compression"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
}

// CompressionConfig defines compression settings
type CompressionConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Algorithm string `yaml:"algorithm" json:"algorithm"` // gzip, lz4
	Threshold int    `yaml:"threshold" json:"threshold"` // minimum size to compress
	Level     int    `yaml:"level" json:"level"`
}

// CircuitBreakerConfig defines circuit breaker settings
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" json:"max_requests"`
	Interval         time.Duration `yaml:"interval" json:"interval"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold" json:"failure_threshold"`
}

// DefaultConfig returns the cache defaults
func DefaultConfig() *Config {
	return &Config{
		Address:       "localhost:6379",
		MaxRetries:    3,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   time.Second,
		WriteTimeout:  time.Second,
		PoolSize:      10,
		IdleTimeout:   5 * time.Minute,
		KeyPrefix:     "bulkshare",
		Serialization: "msgpack",
		Compression: CompressionConfig{
			Enabled:   true,
			Algorithm: "lz4",
			Threshold: 256,
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      3,
			Interval:         30 * time.Second,
			Timeout:          15 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("redis address is required")
	}
	switch c.Serialization {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("unsupported serialization %q", c.Serialization)
	}
	return nil
}
