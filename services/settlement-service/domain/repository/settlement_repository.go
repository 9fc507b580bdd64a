package repository

import (
	"context"

	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
)

// SettlementRepository persists settlement records keyed by order ID
type SettlementRepository interface {
	// Save upserts the whole record
	Save(ctx context.Context, record *entity.SettlementRecord) error
	// FindByOrderID returns entity.ErrSettlementNotFound on a miss
	FindByOrderID(ctx context.Context, orderID string) (*entity.SettlementRecord, error)
	// UpdateStatus rewrites only the status field
	UpdateStatus(ctx context.Context, orderID string, status entity.SettlementStatus) error
}

// ListingRepository reads listings and writes their status
type ListingRepository interface {
	// GetByID returns entity.ErrListingNotFound on a miss
	GetByID(ctx context.Context, listingID string) (*entity.Listing, error)
	// UpdateStatus rewrites only the status field, keeping every other field
	UpdateStatus(ctx context.Context, listingID string, status entity.ListingStatus) error
	Save(ctx context.Context, listing *entity.Listing) error
}

// OrderLookupRepository resolves an order to its listing
type OrderLookupRepository interface {
	// ListingIDForOrder returns entity.ErrOrderLookupNotFound on a miss
	ListingIDForOrder(ctx context.Context, orderID string) (string, error)
	Save(ctx context.Context, lookup entity.OrderLookup) error
}
