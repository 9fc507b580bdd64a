package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
)

const (
	fieldOrderID   = "order_id"
	fieldListingID = "listing_id"
	fieldStatus    = "status"
)

// SettlementRepository implements repository.SettlementRepository on a DocumentStore
type SettlementRepository struct {
	store repository.DocumentStore
}

// NewSettlementRepository creates a settlement repository
func NewSettlementRepository(store repository.DocumentStore) *SettlementRepository {
	return &SettlementRepository{store: store}
}

// Save upserts the record under its order ID
func (r *SettlementRepository) Save(ctx context.Context, record *entity.SettlementRecord) error {
	doc, err := toDocument(record)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, repository.CollectionSettlements, record.OrderID, doc)
}

// FindByOrderID queries settlements by order ID and returns the first match
func (r *SettlementRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.SettlementRecord, error) {
	docs, err := r.store.Query(ctx, repository.CollectionSettlements, fieldOrderID, orderID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, entity.ErrSettlementNotFound
	}

	record := &entity.SettlementRecord{}
	if err := fromDocument(docs[0], record); err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateStatus rewrites the status field of the stored record
func (r *SettlementRepository) UpdateStatus(ctx context.Context, orderID string, status entity.SettlementStatus) error {
	if !status.IsValid() {
		return errors.Wrapf(entity.ErrInvalidSettlementState, "status %q", status)
	}
	return updateField(ctx, r.store, repository.CollectionSettlements, orderID,
		fieldStatus, string(status), entity.ErrSettlementNotFound)
}

// ListingRepository implements repository.ListingRepository on a DocumentStore
type ListingRepository struct {
	store repository.DocumentStore
}

// NewListingRepository creates a listing repository
func NewListingRepository(store repository.DocumentStore) *ListingRepository {
	return &ListingRepository{store: store}
}

// GetByID loads a listing
func (r *ListingRepository) GetByID(ctx context.Context, listingID string) (*entity.Listing, error) {
	doc, err := r.store.Get(ctx, repository.CollectionListings, listingID)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, entity.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}

	listing := &entity.Listing{}
	if err := fromDocument(doc, listing); err != nil {
		return nil, err
	}
	if listing.ListingID == "" {
		listing.ListingID = listingID
	}
	return listing, nil
}

// UpdateStatus rewrites the status field, preserving fields this service
// does not model
func (r *ListingRepository) UpdateStatus(ctx context.Context, listingID string, status entity.ListingStatus) error {
	if !status.IsValid() {
		return errors.Wrapf(entity.ErrInvalidListingStatus, "status %q", status)
	}
	return updateField(ctx, r.store, repository.CollectionListings, listingID,
		fieldStatus, string(status), entity.ErrListingNotFound)
}

// Save writes a whole listing
func (r *ListingRepository) Save(ctx context.Context, listing *entity.Listing) error {
	doc, err := toDocument(listing)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, repository.CollectionListings, listing.ListingID, doc)
}

// OrderLookupRepository implements repository.OrderLookupRepository on a DocumentStore
type OrderLookupRepository struct {
	store repository.DocumentStore
}

// NewOrderLookupRepository creates an order lookup repository
func NewOrderLookupRepository(store repository.DocumentStore) *OrderLookupRepository {
	return &OrderLookupRepository{store: store}
}

// ListingIDForOrder resolves the listing an order was placed against
func (r *OrderLookupRepository) ListingIDForOrder(ctx context.Context, orderID string) (string, error) {
	doc, err := r.store.Get(ctx, repository.CollectionOrderListings, orderID)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return "", entity.ErrOrderLookupNotFound
	}
	if err != nil {
		return "", err
	}

	listingID, _ := doc[fieldListingID].(string)
	if listingID == "" {
		return "", entity.ErrOrderLookupNotFound
	}
	return listingID, nil
}

// Save writes an order to listing mapping
func (r *OrderLookupRepository) Save(ctx context.Context, lookup entity.OrderLookup) error {
	doc, err := toDocument(lookup)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, repository.CollectionOrderListings, lookup.OrderID, doc)
}

// updateField sets one field, in place when the store supports it and as a
// read-modify-write otherwise. Concurrent writers race last-write-wins.
func updateField(ctx context.Context, store repository.DocumentStore, collection, key, field string, value interface{}, notFound error) error {
	if updater, ok := store.(repository.FieldUpdater); ok {
		err := updater.UpdateField(ctx, collection, key, field, value)
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return notFound
		}
		return err
	}

	doc, err := store.Get(ctx, collection, key)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return notFound
	}
	if err != nil {
		return err
	}

	doc[field] = value
	return store.Put(ctx, collection, key, doc)
}

func toDocument(v interface{}) (repository.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}

	doc := repository.Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	return doc, nil
}

func fromDocument(doc repository.Document, v interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "decode document")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decode document")
	}
	return nil
}
