package mongodb

import (
	"context"
	"fmt"
	"sync"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// Client wraps a mongo.Client with a shared circuit breaker and a
// registry of the collections the service knows about.
type Client struct {
	config         *Config
	client         *mongo.Client
	database       *mongo.Database
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker

	mu          sync.RWMutex
	collections map[string]*Collection
	closed      bool
}

// NewClient connects, pings and prepares the configured collections
func NewClient(ctx context.Context, config *Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongodb config: %w", err)
	}

	clientOpts := options.Client().ApplyURI(config.URI)
	clientOpts.SetMaxPoolSize(config.MaxPoolSize)
	clientOpts.SetMinPoolSize(config.MinPoolSize)
	clientOpts.SetMaxConnIdleTime(config.MaxConnIdleTime)
	clientOpts.SetConnectTimeout(config.ConnectTimeout)
	clientOpts.SetServerSelectionTimeout(config.ServerSelectionTimeout)
	clientOpts.SetSocketTimeout(config.SocketTimeout)

	if config.ReplicaSet != "" {
		clientOpts.SetReplicaSet(config.ReplicaSet)
	}

	readPref := parseReadPreference(config.ReadPreference)
	clientOpts.SetReadPreference(readPref)
	clientOpts.SetReadConcern(parseReadConcern(config.ReadConcern))
	clientOpts.SetWriteConcern(parseWriteConcern(config.WriteConcern))

	if config.Authentication.Username != "" {
		clientOpts.SetAuth(options.Credential{
			AuthMechanism: config.Authentication.Mechanism,
			AuthSource:    config.Authentication.Source,
			Username:      config.Authentication.Username,
			Password:      config.Authentication.Password,
		})
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := mongoClient.Ping(connectCtx, readPref); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	client := &Client{
		config:      config,
		client:      mongoClient,
		database:    mongoClient.Database(config.Database),
		logger:      logger,
		collections: make(map[string]*Collection),
	}

	client.circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mongodb-client",
		MaxRequests: config.CircuitBreaker.MaxRequests,
		Interval:    config.CircuitBreaker.Interval,
		Timeout:     config.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.CircuitBreaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	if err := client.initializeCollections(connectCtx); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to initialize collections: %w", err)
	}

	logger.Info("MongoDB client initialized",
		zap.String("database", config.Database),
		zap.Int("collections", len(config.Collections)))

	return client, nil
}

func (c *Client) initializeCollections(ctx context.Context) error {
	for _, collConfig := range c.config.Collections {
		collection := c.newCollection(collConfig.Name)
		for _, index := range collConfig.Indexes {
			if err := collection.EnsureIndex(ctx, index); err != nil {
				return fmt.Errorf("collection %s: %w", collConfig.Name, err)
			}
		}
		c.collections[collConfig.Name] = collection
	}
	return nil
}

func (c *Client) newCollection(name string) *Collection {
	return &Collection{
		name:           name,
		collection:     c.database.Collection(name),
		timeout:        c.config.OperationTimeout,
		logger:         c.logger.With(zap.String("collection", name)),
		circuitBreaker: c.circuitBreaker,
	}
}

// GetCollection returns a registered collection, registering it lazily
// when the name was not part of the configuration.
func (c *Client) GetCollection(name string) (*Collection, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, fmt.Errorf("client is closed")
	}
	collection, exists := c.collections[name]
	c.mu.RUnlock()
	if exists {
		return collection, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if collection, exists = c.collections[name]; !exists {
		collection = c.newCollection(name)
		c.collections[name] = collection
	}
	return collection, nil
}

// Health checks the health of the MongoDB connection
func (c *Client) Health(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return fmt.Errorf("client is closed")
	}
	return c.client.Ping(ctx, nil)
}

// BreakerState reports the circuit breaker state
func (c *Client) BreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	c.closed = true
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB client: %w", err)
	}

	c.logger.Info("MongoDB client closed")
	return nil
}

func parseReadPreference(pref string) *readpref.ReadPref {
	switch pref {
	case "primaryPreferred":
		return readpref.PrimaryPreferred()
	case "secondary":
		return readpref.Secondary()
	case "secondaryPreferred":
		return readpref.SecondaryPreferred()
	case "nearest":
		return readpref.Nearest()
	default:
		return readpref.Primary()
	}
}

func parseReadConcern(concern string) *readconcern.ReadConcern {
	switch concern {
	case "local":
		return readconcern.Local()
	case "available":
		return readconcern.Available()
	case "linearizable":
		return readconcern.Linearizable()
	default:
		return readconcern.Majority()
	}
}

func parseWriteConcern(config WriteConcernConfig) *writeconcern.WriteConcern {
	opts := []writeconcern.Option{}
	switch {
	case config.Majority:
		opts = append(opts, writeconcern.WMajority())
	case config.W > 0:
		opts = append(opts, writeconcern.W(config.W))
	}
	if config.WTimeout > 0 {
		opts = append(opts, writeconcern.WTimeout(config.WTimeout))
	}
	if config.Journal {
		opts = append(opts, writeconcern.J(true))
	}
	return writeconcern.New(opts...)
}

// indexKeys builds an ascending compound index specification
func indexKeys(fields []string) bson.D {
	keys := bson.D{}
	for _, field := range fields {
		keys = append(keys, bson.E{Key: field, Value: 1})
	}
	return keys
}
