package mongodb

import (
	"fmt"
	"time"
)

// Collection names used by the settlement service
const (
	CollectionSettlements   = "settlements"
	CollectionListings      = "listings"
	CollectionOrderListings = "order_listings"
)

// Config represents MongoDB configuration
type Config struct {
	URI                    string        `yaml:"uri" json:"uri"`
	Database               string        `yaml:"database" json:"database"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" json:"server_selection_timeout"`
	SocketTimeout          time.Duration `yaml:"socket_timeout" json:"socket_timeout"`
	OperationTimeout       time.Duration `yaml:"operation_timeout" json:"operation_timeout"`

	MaxPoolSize     uint64        `yaml:"max_pool_size" json:"max_pool_size"`
	MinPoolSize     uint64        `yaml:"min_pool_size" json:"min_pool_size"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" json:"max_conn_idle_time"`

	ReplicaSet     string             `yaml:"replica_set" json:"replica_set"`
	ReadPreference string             `yaml:"read_preference" json:"read_preference"`
	ReadConcern    string             `yaml:"read_concern" json:"read_concern"`
	WriteConcern   WriteConcernConfig `yaml:"write_concern" json:"write_concern"`

	Authentication AuthConfig `yaml:"authentication" json:"authentication"`

	Collections []CollectionConfig `yaml:"collections" json:"collections"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
}

// WriteConcernConfig defines write concern settings
type WriteConcernConfig struct {
	Majority bool          `yaml:"majority" json:"majority"`
	W        int           `yaml:"w" json:"w"`
	WTimeout time.Duration `yaml:"wtimeout" json:"wtimeout"`
	Journal  bool          `yaml:"journal" json:"journal"`
}

// AuthConfig defines authentication settings
type AuthConfig struct {
	Mechanism string `yaml:"mechanism" json:"mechanism"`
	Source    string `yaml:"source" json:"source"`
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"password"`
}

// CollectionConfig declares a collection and its secondary indexes
type CollectionConfig struct {
	Name    string        `yaml:"name" json:"name"`
	Indexes []IndexConfig `yaml:"indexes" json:"indexes"`
}

// IndexConfig defines an index
type IndexConfig struct {
	Name   string   `yaml:"name" json:"name"`
	Fields []string `yaml:"fields" json:"fields"`
	Unique bool     `yaml:"unique" json:"unique"`
}

// CircuitBreakerConfig defines circuit breaker settings
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" json:"max_requests"`
	Interval         time.Duration `yaml:"interval" json:"interval"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold" json:"failure_threshold"`
}

// DefaultConfig returns the settlement service defaults
func DefaultConfig() *Config {
	return &Config{
		URI:                    "mongodb://localhost:27017",
		Database:               "bulkshare",
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 10 * time.Second,
		SocketTimeout:          30 * time.Second,
		OperationTimeout:       5 * time.Second,
		MaxPoolSize:            100,
		MinPoolSize:            5,
		MaxConnIdleTime:        30 * time.Minute,
		ReadPreference:         "primary",
		ReadConcern:            "majority",
		WriteConcern: WriteConcernConfig{
			Majority: true,
			WTimeout: 10 * time.Second,
			Journal:  true,
		},
		Collections: []CollectionConfig{
			{
				Name: CollectionSettlements,
				Indexes: []IndexConfig{
					{Name: "order_id_idx", Fields: []string{"order_id"}, Unique: true},
				},
			},
			{
				Name: CollectionListings,
				Indexes: []IndexConfig{
					{Name: "host_status_idx", Fields: []string{"host_id", "status"}},
				},
			},
			{Name: CollectionOrderListings},
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("mongodb uri is required")
	}
	if c.Database == "" {
		return fmt.Errorf("mongodb database is required")
	}
	if c.MinPoolSize > c.MaxPoolSize {
		return fmt.Errorf("min pool size %d exceeds max pool size %d", c.MinPoolSize, c.MaxPoolSize)
	}
	if c.CircuitBreaker.FailureThreshold == 0 {
		return fmt.Errorf("circuit breaker failure threshold must be positive")
	}
	return nil
}
