package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/infrastructure/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.SettlementEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event entity.SettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) published() []entity.SettlementEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.SettlementEvent(nil), p.events...)
}

type fixture struct {
	memory      *store.MemoryStore
	settlements *store.SettlementRepository
	listings    *store.ListingRepository
	lookups     *store.OrderLookupRepository
	publisher   *recordingPublisher
	collector   *metrics.Collector
	writer      *SettlementWriter
	lifecycle   *TransactionLifecycle
}

func newFixture(t *testing.T) *fixture {
	logger := logging.NewFromZap(zaptest.NewLogger(t), "settlement-service-test")
	f := &fixture{
		memory:    store.NewMemoryStore(),
		publisher: &recordingPublisher{},
		collector: metrics.NewCollector("test"),
	}
	f.settlements = store.NewSettlementRepository(f.memory)
	f.listings = store.NewListingRepository(f.memory)
	f.lookups = store.NewOrderLookupRepository(f.memory)
	f.writer = NewSettlementWriter(f.settlements, f.publisher, logger, f.collector)
	f.lifecycle = NewTransactionLifecycle(f.lookups, f.listings, f.settlements, f.publisher, logger, f.collector)
	return f
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sampleInput is a 10 + 20 invoice with 3 in taxes and B released
func sampleInput(orderID string) SubmitInput {
	return SubmitInput{
		OrderID: orderID,
		Items: []entity.LineItem{
			{Name: "A", Price: d("10")},
			{Name: "B", Price: d("20")},
		},
		Partition:         entity.Release(2, 1),
		InvoiceSubTotal:   d("30"),
		TaxesAndFees:      d("3"),
		InitialGrandTotal: d("33"),
	}
}

// seedTransaction stores a listing, its order mapping and a submitted settlement
func (f *fixture) seedTransaction(t *testing.T, orderID, listingID string) {
	ctx := context.Background()
	require.NoError(t, f.listings.Save(ctx, &entity.Listing{
		ListingID: listingID,
		HostID:    "host-1",
		Store:     "Costco",
		Status:    entity.ListingStatusActive,
	}))
	require.NoError(t, f.lookups.Save(ctx, entity.OrderLookup{OrderID: orderID, ListingID: listingID}))
	_, err := f.writer.Submit(ctx, sampleInput(orderID))
	require.NoError(t, err)
}
