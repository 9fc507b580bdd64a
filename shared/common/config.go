package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers understood by the settlement service
const (
	StorageDriverMemory     = "memory"
	StorageDriverMongoDB    = "mongodb"
	StorageDriverPostgreSQL = "postgresql"
)

// Config represents application configuration
type Config struct {
	Service      ServiceConfig      `mapstructure:"service"`
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Cache        CacheConfig        `mapstructure:"cache"`
	MessageQueue MessageQueueConfig `mapstructure:"messagequeue"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
}

// ServiceConfig contains service-specific configuration
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects and configures the document store
type StorageConfig struct {
	Driver     string           `mapstructure:"driver"`
	PostgreSQL PostgreSQLConfig `mapstructure:"postgresql"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
}

// PostgreSQLConfig contains PostgreSQL configuration
type PostgreSQLConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the lib/pq connection string
func (c PostgreSQLConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode)
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	MinPoolSize    uint64        `mapstructure:"min_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// CacheConfig contains cache configuration
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	Database    int           `mapstructure:"database"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	LookupTTL   time.Duration `mapstructure:"lookup_ttl"`
}

// MessageQueueConfig contains message queue configuration
type MessageQueueConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	ClientID     string        `mapstructure:"client_id"`
	Topic        string        `mapstructure:"topic"`
	RequiredAcks int           `mapstructure:"required_acks"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// RateLimitConfig contains rate limiting configuration for transition endpoints
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// LoadConfig loads configuration from a YAML file in configPath and the environment
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bulkshare")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BULKSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "settlement-service")
	v.SetDefault("service.version", "1.0.0")
	v.SetDefault("service.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("storage.driver", StorageDriverMemory)
	v.SetDefault("storage.postgresql.host", "localhost")
	v.SetDefault("storage.postgresql.port", 5432)
	v.SetDefault("storage.postgresql.database", "bulkshare")
	v.SetDefault("storage.postgresql.username", "bulkshare_app")
	v.SetDefault("storage.postgresql.ssl_mode", "disable")
	v.SetDefault("storage.postgresql.max_open_conns", 25)
	v.SetDefault("storage.postgresql.max_idle_conns", 5)
	v.SetDefault("storage.postgresql.conn_max_lifetime", "5m")

	v.SetDefault("storage.mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongodb.database", "bulkshare")
	v.SetDefault("storage.mongodb.max_pool_size", 100)
	v.SetDefault("storage.mongodb.min_pool_size", 5)
	v.SetDefault("storage.mongodb.connect_timeout", "10s")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.database", 0)
	v.SetDefault("cache.redis.max_retries", 3)
	v.SetDefault("cache.redis.pool_size", 10)
	v.SetDefault("cache.redis.idle_timeout", "5m")
	v.SetDefault("cache.redis.lookup_ttl", "24h")

	v.SetDefault("messagequeue.kafka.brokers", []string{})
	v.SetDefault("messagequeue.kafka.client_id", "settlement-service")
	v.SetDefault("messagequeue.kafka.topic", "settlement-events")
	v.SetDefault("messagequeue.kafka.required_acks", 1)
	v.SetDefault("messagequeue.kafka.batch_timeout", "50ms")
	v.SetDefault("messagequeue.kafka.write_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "bulkshare")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 20)
	v.SetDefault("ratelimit.burst", 40)
}

func bindEnvironmentVariables(v *viper.Viper) {
	v.BindEnv("service.environment", "ENVIRONMENT")
	v.BindEnv("server.port", "SERVER_PORT")

	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.postgresql.host", "POSTGRES_HOST")
	v.BindEnv("storage.postgresql.port", "POSTGRES_PORT")
	v.BindEnv("storage.postgresql.database", "POSTGRES_DB")
	v.BindEnv("storage.postgresql.username", "POSTGRES_USER")
	v.BindEnv("storage.postgresql.password", "POSTGRES_PASSWORD")

	v.BindEnv("storage.mongodb.uri", "MONGODB_URI")
	v.BindEnv("storage.mongodb.database", "MONGODB_DATABASE")
	v.BindEnv("storage.mongodb.username", "MONGODB_USERNAME")
	v.BindEnv("storage.mongodb.password", "MONGODB_PASSWORD")

	v.BindEnv("cache.redis.host", "REDIS_HOST")
	v.BindEnv("cache.redis.port", "REDIS_PORT")
	v.BindEnv("cache.redis.password", "REDIS_PASSWORD")

	v.BindEnv("messagequeue.kafka.brokers", "KAFKA_BROKERS")
}

func validateConfig(config *Config) error {
	var errs ValidationErrors

	if config.Service.Name == "" {
		errs.Add("service.name", "is required", nil)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535", config.Server.Port)
	}

	switch config.Storage.Driver {
	case StorageDriverMemory, StorageDriverMongoDB, StorageDriverPostgreSQL:
	default:
		errs.Add("storage.driver", "is not supported", config.Storage.Driver)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RPS <= 0 || config.RateLimit.Burst <= 0) {
		errs.Add("ratelimit", "requires positive rps and burst", nil)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
