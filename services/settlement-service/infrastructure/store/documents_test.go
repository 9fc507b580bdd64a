package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
)

func sampleRecord() *entity.SettlementRecord {
	return &entity.SettlementRecord{
		OrderID: "order-1",
		CounterPartyItems: []entity.LineItem{
			{Name: "B", Price: decimal.RequireFromString("20.10")},
		},
		CounterPartyAmountDue: decimal.RequireFromString("22.11"),
		FullOrderGrandTotal:   decimal.RequireFromString("33.1"),
		Status:                entity.SettlementStatusPending,
	}
}

func TestSettlementRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	memory := NewMemoryStore()
	repo := NewSettlementRepository(memory)

	require.NoError(t, repo.Save(ctx, sampleRecord()))

	got, err := repo.FindByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, sampleRecord().Equal(got))

	// saving again replaces rather than duplicates
	require.NoError(t, repo.Save(ctx, sampleRecord()))
	assert.Equal(t, 1, memory.Len(repository.CollectionSettlements))
}

func TestSettlementRepositoryNotFound(t *testing.T) {
	repo := NewSettlementRepository(NewMemoryStore())

	_, err := repo.FindByOrderID(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrSettlementNotFound)

	err = repo.UpdateStatus(context.Background(), "missing", entity.SettlementStatusFulfilled)
	assert.ErrorIs(t, err, entity.ErrSettlementNotFound)
}

func TestSettlementRepositoryUpdateStatusOnlyTouchesStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewSettlementRepository(NewMemoryStore())
	require.NoError(t, repo.Save(ctx, sampleRecord()))

	require.NoError(t, repo.UpdateStatus(ctx, "order-1", entity.SettlementStatusDeclined))

	got, err := repo.FindByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, entity.SettlementStatusDeclined, got.Status)
	assert.True(t, decimal.RequireFromString("22.11").Equal(got.CounterPartyAmountDue))
}

func TestListingRepositoryPreservesUnknownFields(t *testing.T) {
	ctx := context.Background()
	memory := NewMemoryStore()
	repo := NewListingRepository(memory)

	require.NoError(t, memory.Put(ctx, repository.CollectionListings, "listing-1", repository.Document{
		"host_id":       "host-1",
		"store":         "Costco",
		"status":        "active",
		"chat_rooms":    []interface{}{"room-1"},
		"created_at":    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(time.RFC3339),
		"current_total": "42.50",
	}))

	listing, err := repo.GetByID(ctx, "listing-1")
	require.NoError(t, err)
	assert.Equal(t, "listing-1", listing.ListingID)
	assert.Equal(t, entity.ListingStatusActive, listing.Status)
	assert.True(t, decimal.RequireFromString("42.5").Equal(listing.CurrentTotal))
	assert.Equal(t, 2024, listing.CreatedAt.Year())

	require.NoError(t, repo.UpdateStatus(ctx, "listing-1", entity.ListingStatusFulfilled))

	doc, err := memory.Get(ctx, repository.CollectionListings, "listing-1")
	require.NoError(t, err)
	assert.Equal(t, "fulfilled", doc["status"])
	assert.Equal(t, []interface{}{"room-1"}, doc["chat_rooms"])
	assert.Equal(t, "Costco", doc["store"])
}

func TestListingRepositoryNotFound(t *testing.T) {
	repo := NewListingRepository(NewMemoryStore())

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrListingNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "missing", entity.ListingStatusActive), entity.ErrListingNotFound)
}

func TestOrderLookupRepository(t *testing.T) {
	ctx := context.Background()
	memory := NewMemoryStore()
	repo := NewOrderLookupRepository(memory)

	_, err := repo.ListingIDForOrder(ctx, "order-1")
	assert.ErrorIs(t, err, entity.ErrOrderLookupNotFound)

	require.NoError(t, repo.Save(ctx, entity.OrderLookup{OrderID: "order-1", ListingID: "listing-1"}))
	listingID, err := repo.ListingIDForOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "listing-1", listingID)

	require.NoError(t, memory.Put(ctx, repository.CollectionOrderListings, "order-2", repository.Document{"listing_id": ""}))
	_, err = repo.ListingIDForOrder(ctx, "order-2")
	assert.ErrorIs(t, err, entity.ErrOrderLookupNotFound)
}

func TestRepositoriesPropagateStoreErrors(t *testing.T) {
	ctx := context.Background()
	memory := NewMemoryStore()
	boom := errors.New("connection reset")
	memory.SetFailureFunc(func(op, collection, key string) error { return boom })

	assert.ErrorIs(t, NewSettlementRepository(memory).Save(ctx, sampleRecord()), boom)

	_, err := NewListingRepository(memory).GetByID(ctx, "listing-1")
	assert.ErrorIs(t, err, boom)

	_, err = NewOrderLookupRepository(memory).ListingIDForOrder(ctx, "order-1")
	assert.ErrorIs(t, err, boom)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	memory := NewMemoryStore()
	settlements := NewSettlementRepository(memory)
	listings := NewListingRepository(memory)
	require.NoError(t, settlements.Save(ctx, sampleRecord()))
	require.NoError(t, listings.Save(ctx, &entity.Listing{ListingID: "listing-1", Status: entity.ListingStatusActive}))

	err := settlements.UpdateStatus(ctx, "order-1", entity.SettlementStatus("shipped"))
	assert.ErrorIs(t, err, entity.ErrInvalidSettlementState)

	err = listings.UpdateStatus(ctx, "listing-1", entity.ListingStatus("archived"))
	assert.ErrorIs(t, err, entity.ErrInvalidListingStatus)

	got, err := settlements.FindByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, entity.SettlementStatusPending, got.Status)
}

// inPlaceStore counts UpdateField calls and applies them to the wrapped store
type inPlaceStore struct {
	*MemoryStore
	updates int
}

func (s *inPlaceStore) UpdateField(ctx context.Context, collection, key, field string, value interface{}) error {
	s.updates++
	doc, err := s.MemoryStore.Get(ctx, collection, key)
	if err != nil {
		return err
	}
	doc[field] = value
	return s.MemoryStore.Put(ctx, collection, key, doc)
}

func TestUpdateStatusUsesFieldUpdater(t *testing.T) {
	ctx := context.Background()
	backing := &inPlaceStore{MemoryStore: NewMemoryStore()}
	listings := NewListingRepository(backing)
	require.NoError(t, listings.Save(ctx, &entity.Listing{ListingID: "listing-1", Status: entity.ListingStatusActive}))

	require.NoError(t, listings.UpdateStatus(ctx, "listing-1", entity.ListingStatusFulfilled))
	assert.Equal(t, 1, backing.updates)

	got, err := listings.GetByID(ctx, "listing-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ListingStatusFulfilled, got.Status)

	err = listings.UpdateStatus(ctx, "missing", entity.ListingStatusFulfilled)
	assert.ErrorIs(t, err, entity.ErrListingNotFound)
}
