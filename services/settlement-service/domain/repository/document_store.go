package repository

import (
	"context"
	"errors"
)

// Collections used by the settlement service
const (
	CollectionSettlements   = "settlements"
	CollectionListings      = "listings"
	CollectionOrderListings = "order_listings"
)

// ErrDocumentNotFound is returned by DocumentStore.Get when the key is absent
var ErrDocumentNotFound = errors.New("document not found")

// Document is a schemaless record as held by the backing store
type Document map[string]interface{}

// DocumentStore is a per-collection key/value document database.
// Put replaces the whole document atomically; there is no version check.
type DocumentStore interface {
	Get(ctx context.Context, collection, key string) (Document, error)
	Put(ctx context.Context, collection, key string, doc Document) error
	Query(ctx context.Context, collection, field string, value interface{}) ([]Document, error)
}

// FieldUpdater is implemented by stores that can set a single top-level
// field in place. It returns ErrDocumentNotFound when the key is absent.
type FieldUpdater interface {
	UpdateField(ctx context.Context, collection, key, field string, value interface{}) error
}

// HealthChecker is implemented by stores that can probe their backend
type HealthChecker interface {
	Ping(ctx context.Context) error
}
