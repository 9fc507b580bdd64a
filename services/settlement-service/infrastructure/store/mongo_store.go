package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
	"github.com/isectech/bulkshare/shared/database/mongodb"
)

const mongoIDField = "_id"

// MongoStore is a DocumentStore backed by MongoDB; the document key is the _id
type MongoStore struct {
	client *mongodb.Client
}

// NewMongoStore wraps a connected client
func NewMongoStore(client *mongodb.Client) *MongoStore {
	return &MongoStore{client: client}
}

// Get implements repository.DocumentStore
func (s *MongoStore) Get(ctx context.Context, collection, key string) (repository.Document, error) {
	coll, err := s.client.GetCollection(collection)
	if err != nil {
		return nil, errors.Wrapf(err, "collection %s", collection)
	}

	doc, found, err := coll.FindOne(ctx, bson.M{mongoIDField: key})
	if err != nil {
		return nil, errors.Wrapf(err, "get %s/%s", collection, key)
	}
	if !found {
		return nil, repository.ErrDocumentNotFound
	}
	return fromBSON(doc), nil
}

// Put implements repository.DocumentStore
func (s *MongoStore) Put(ctx context.Context, collection, key string, doc repository.Document) error {
	coll, err := s.client.GetCollection(collection)
	if err != nil {
		return errors.Wrapf(err, "collection %s", collection)
	}

	replacement := bson.M{}
	for field, value := range doc {
		replacement[field] = value
	}
	replacement[mongoIDField] = key

	if err := coll.ReplaceOne(ctx, bson.M{mongoIDField: key}, replacement); err != nil {
		return errors.Wrapf(err, "put %s/%s", collection, key)
	}
	return nil
}

// Query implements repository.DocumentStore
func (s *MongoStore) Query(ctx context.Context, collection, field string, value interface{}) ([]repository.Document, error) {
	coll, err := s.client.GetCollection(collection)
	if err != nil {
		return nil, errors.Wrapf(err, "collection %s", collection)
	}

	docs, err := coll.Find(ctx, bson.M{field: value}, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s where %s", collection, field)
	}

	results := make([]repository.Document, 0, len(docs))
	for _, doc := range docs {
		results = append(results, fromBSON(doc))
	}
	return results, nil
}

// UpdateField implements repository.FieldUpdater with $set
func (s *MongoStore) UpdateField(ctx context.Context, collection, key, field string, value interface{}) error {
	coll, err := s.client.GetCollection(collection)
	if err != nil {
		return errors.Wrapf(err, "collection %s", collection)
	}

	matched, err := coll.UpdateOne(ctx, bson.M{mongoIDField: key}, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return errors.Wrapf(err, "update %s/%s.%s", collection, key, field)
	}
	if !matched {
		return repository.ErrDocumentNotFound
	}
	return nil
}

// Ping implements repository.HealthChecker. An open breaker reports
// unhealthy without touching the server.
func (s *MongoStore) Ping(ctx context.Context) error {
	if state := s.client.BreakerState(); state == gobreaker.StateOpen {
		return errors.Errorf("mongodb circuit breaker %s", state)
	}
	return s.client.Health(ctx)
}

// fromBSON converts a decoded document into plain Go values and drops _id
func fromBSON(doc bson.M) repository.Document {
	out := repository.Document{}
	for field, value := range doc {
		if field == mongoIDField {
			continue
		}
		out[field] = plainValue(value)
	}
	return out
}

func plainValue(value interface{}) interface{} {
	switch v := value.(type) {
	case primitive.M:
		out := make(map[string]interface{}, len(v))
		for key, inner := range v {
			out[key] = plainValue(inner)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(v))
		for _, elem := range v {
			out[elem.Key] = plainValue(elem.Value)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = plainValue(inner)
		}
		return out
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Decimal128:
		return v.String()
	case primitive.ObjectID:
		return v.Hex()
	default:
		return v
	}
}
