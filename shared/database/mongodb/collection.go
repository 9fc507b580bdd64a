package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("mongodb circuit breaker is open")

// Collection wraps a mongo.Collection; every call goes through the
// client's circuit breaker and is bounded by the operation timeout.
type Collection struct {
	name           string
	collection     *mongo.Collection
	timeout        time.Duration
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		opCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			opCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		return fn(opCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return result, err
}

// FindOne decodes the first document matching filter. The boolean is false
// when nothing matched; a miss does not count against the breaker.
func (c *Collection) FindOne(ctx context.Context, filter interface{}) (bson.M, bool, error) {
	var doc bson.M
	found := false

	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		err := c.collection.FindOne(ctx, filter).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			c.logger.Error("Failed to find document", zap.Error(err), zap.Any("filter", filter))
			return nil, err
		}
		found = true
		return nil, nil
	})
	if err != nil {
		return nil, false, err
	}
	return doc, found, nil
}

// Find returns every document matching filter, at most limit when limit > 0
func (c *Collection) Find(ctx context.Context, filter interface{}, limit int64) ([]bson.M, error) {
	result, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		findOpts := options.Find()
		if limit > 0 {
			findOpts.SetLimit(limit)
		}

		cursor, err := c.collection.Find(ctx, filter, findOpts)
		if err != nil {
			c.logger.Error("Failed to query documents", zap.Error(err), zap.Any("filter", filter))
			return nil, err
		}
		defer cursor.Close(ctx)

		docs := []bson.M{}
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]bson.M), nil
}

// ReplaceOne replaces the matching document, inserting it when absent
func (c *Collection) ReplaceOne(ctx context.Context, filter interface{}, document interface{}) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		result, err := c.collection.ReplaceOne(ctx, filter, document, options.Replace().SetUpsert(true))
		if err != nil {
			c.logger.Error("Failed to upsert document", zap.Error(err), zap.Any("filter", filter))
			return nil, err
		}

		c.logger.Debug("Document upserted",
			zap.Int64("matched_count", result.MatchedCount),
			zap.Int64("upserted_count", result.UpsertedCount))
		return result, nil
	})
	return err
}

// UpdateOne applies update to the first matching document. The boolean is
// false when no document matched.
func (c *Collection) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (bool, error) {
	result, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		result, err := c.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			c.logger.Error("Failed to update document", zap.Error(err), zap.Any("filter", filter))
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		return false, err
	}
	return result.(*mongo.UpdateResult).MatchedCount > 0, nil
}

// EnsureIndex creates the index if it does not exist yet
func (c *Collection) EnsureIndex(ctx context.Context, index IndexConfig) error {
	if len(index.Fields) == 0 {
		return fmt.Errorf("index %q has no fields", index.Name)
	}

	model := mongo.IndexModel{
		Keys:    indexKeys(index.Fields),
		Options: options.Index().SetName(index.Name).SetUnique(index.Unique),
	}

	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return c.collection.Indexes().CreateOne(ctx, model)
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", index.Name, err)
	}

	c.logger.Debug("Index ensured", zap.String("index", index.Name))
	return nil
}
