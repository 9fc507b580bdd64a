package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
	"github.com/isectech/bulkshare/services/settlement-service/infrastructure/messaging"
	"github.com/isectech/bulkshare/services/settlement-service/infrastructure/store"
	"github.com/isectech/bulkshare/services/settlement-service/usecase"
	"github.com/isectech/bulkshare/shared/common"
)

const splitBody = `{
	"invoice": {
		"Items": [["A", "10"], ["B", 20]],
		"Sub total": "30",
		"Taxes and fees": 3
	},
	"released": [1]
}`

type failingHealth struct{}

func (failingHealth) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

type testServer struct {
	server   *SettlementHTTPServer
	memory   *store.MemoryStore
	listings *store.ListingRepository
	lookups  *store.OrderLookupRepository
}

func newTestServer(t *testing.T, config Config, health repository.HealthChecker) *testServer {
	gin.SetMode(gin.TestMode)

	logger := logging.NewFromZap(zaptest.NewLogger(t), "settlement-service")
	collector := metrics.NewCollector("test")
	memory := store.NewMemoryStore()
	settlements := store.NewSettlementRepository(memory)
	listings := store.NewListingRepository(memory)
	lookups := store.NewOrderLookupRepository(memory)

	writer := usecase.NewSettlementWriter(settlements, messaging.NoopPublisher{}, logger, collector)
	lifecycle := usecase.NewTransactionLifecycle(lookups, listings, settlements, messaging.NoopPublisher{}, logger, collector)

	if health == nil {
		health = memory
	}
	return &testServer{
		server:   NewSettlementHTTPServer(writer, lifecycle, health, logger, collector, config),
		memory:   memory,
		listings: listings,
		lookups:  lookups,
	}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.GetRouter().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seedListing(t *testing.T, orderID, listingID string) {
	ctx := context.Background()
	require.NoError(t, ts.listings.Save(ctx, &entity.Listing{
		ListingID: listingID,
		Store:     "Costco",
		Status:    entity.ListingStatusActive,
	}))
	require.NoError(t, ts.lookups.Save(ctx, entity.OrderLookup{OrderID: orderID, ListingID: listingID}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestQuoteInvoice(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodPost, "/api/v1/invoices/quote", splitBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var quote QuoteResponseDTO
	decode(t, rec, &quote)
	assert.Equal(t, []int{1}, quote.Released)
	assert.Equal(t, "33.00", quote.InitialGrandTotal)
	assert.Equal(t, "11.00", quote.Kept.GrandTotal)
	assert.Equal(t, "1.00", quote.Kept.TaxesAndFees)
	assert.Equal(t, "22.00", quote.ReleasedTotals.GrandTotal)
	assert.Equal(t, "22.00", quote.CounterPartyAmountDue)
	assert.Equal(t, 0, ts.memory.Len(repository.CollectionSettlements))
}

func TestQuoteInvoiceAppliesEdits(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	body := `{
		"invoice": {"Items": [["A", "10"], ["B", "20"]], "Sub total": "30", "Taxes and fees": "3"},
		"items": [{}, {"price": "40"}, {"name": "C", "price": "5"}],
		"released": [2],
		"coupon_savings": "-2"
	}`
	rec := ts.do(http.MethodPost, "/api/v1/invoices/quote", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var quote QuoteResponseDTO
	decode(t, rec, &quote)
	require.Len(t, quote.Items, 3)
	assert.Equal(t, "40.00", quote.Items[1].Price)
	assert.Equal(t, "C", quote.Items[2].Name)
	assert.Equal(t, []int{2}, quote.Released)
	assert.Equal(t, "33.00", quote.InitialGrandTotal)
	// C: 5 + 5*3/30
	assert.Equal(t, "5.50", quote.CounterPartyAmountDue)
}

func TestQuoteInvoiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed item", `{"invoice": {"Items": [["A"]], "Sub total": "10"}}`, http.StatusBadRequest, "MALFORMED_INVOICE"},
		{"release out of range", `{"invoice": {"Items": [["A", "10"]], "Sub total": "10"}, "released": [3]}`, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Config{}, nil)

			rec := ts.do(http.MethodPost, "/api/v1/invoices/quote", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp ErrorResponseDTO
			decode(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestSubmitSettlement(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodPut, "/api/v1/orders/order-1/settlement", splitBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var settlement SettlementDTO
	decode(t, rec, &settlement)
	assert.Equal(t, "order-1", settlement.OrderID)
	assert.Equal(t, "22.00", settlement.CounterPartyAmountDue)
	assert.Equal(t, "33.00", settlement.FullOrderGrandTotal)
	assert.Equal(t, "pending", settlement.Status)
	require.Len(t, settlement.CounterPartyItems, 1)
	assert.Equal(t, "B", settlement.CounterPartyItems[0].Name)

	rec = ts.do(http.MethodPut, "/api/v1/orders/order-1/settlement", splitBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.memory.Len(repository.CollectionSettlements))
}

func TestSubmitSettlementStorageUnavailable(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	ts.memory.SetFailureFunc(func(op, collection, key string) error {
		return errors.New("connection reset")
	})

	rec := ts.do(http.MethodPut, "/api/v1/orders/order-1/settlement", splitBody)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ErrorResponseDTO
	decode(t, rec, &resp)
	assert.Equal(t, "STORAGE_UNAVAILABLE", resp.Code)
}

func TestTransactionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	ts.seedListing(t, "order-1", "listing-1")

	rec := ts.do(http.MethodPut, "/api/v1/orders/order-1/settlement", splitBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/v1/orders/order-1/transaction", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tx TransactionDTO
	decode(t, rec, &tx)
	assert.Equal(t, "ready", tx.Phase)
	assert.Equal(t, "listing-1", tx.ListingID)
	require.NotNil(t, tx.Listing)
	assert.Equal(t, "active", tx.Listing.Status)
	require.NotNil(t, tx.Reconciliation)
	assert.Equal(t, "20.00", tx.Reconciliation.ItemsTotal)
	assert.Equal(t, "13.00", tx.Reconciliation.TaxesAndFees)
	assert.Equal(t, "33.00", tx.Reconciliation.GrandTotal)

	rec = ts.do(http.MethodPost, "/api/v1/orders/order-1/transaction/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &tx)
	assert.Equal(t, "fulfilled", tx.Listing.Status)
	assert.Equal(t, "fulfilled", tx.Settlement.Status)

	rec = ts.do(http.MethodPost, "/api/v1/orders/order-1/transaction/decline", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &tx)
	assert.Equal(t, "active", tx.Listing.Status)
	assert.Equal(t, "declined", tx.Settlement.Status)
}

func TestTransactionNotFound(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodGet, "/api/v1/orders/missing/transaction", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponseDTO
	decode(t, rec, &resp)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	rec = ts.do(http.MethodPost, "/api/v1/orders/missing/transaction/confirm", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmConsistencyGapReturnsConflict(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	ts.seedListing(t, "order-1", "listing-1")
	require.Equal(t, http.StatusOK, ts.do(http.MethodPut, "/api/v1/orders/order-1/settlement", splitBody).Code)

	ts.memory.SetFailureFunc(func(op, collection, key string) error {
		if op == store.OpPut && collection == repository.CollectionSettlements {
			return errors.New("write rejected")
		}
		return nil
	})

	rec := ts.do(http.MethodPost, "/api/v1/orders/order-1/transaction/confirm", "")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var resp ErrorResponseDTO
	decode(t, rec, &resp)
	assert.Equal(t, "CONSISTENCY_GAP", resp.Code)
}

func TestTransitionRateLimited(t *testing.T) {
	config := Config{}
	config.RateLimit.Enabled = true
	config.RateLimit.RPS = 0.001
	config.RateLimit.Burst = 1
	ts := newTestServer(t, config, nil)

	rec := ts.do(http.MethodPost, "/api/v1/orders/missing/transaction/confirm", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/orders/missing/transaction/decline", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp ErrorResponseDTO
	decode(t, rec, &resp)
	assert.Equal(t, "RATE_LIMITED", resp.Code)

	// reads are not limited
	rec = ts.do(http.MethodGet, "/api/v1/orders/missing/transaction", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "settlement-service", body["service"])

	unhealthy := newTestServer(t, Config{}, failingHealth{})
	rec = unhealthy.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/missing/transaction", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	ts.server.GetRouter().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	var resp ErrorResponseDTO
	decode(t, rec, &resp)
	assert.Equal(t, "req-42", resp.RequestID)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{MetricsPath: "/metrics"}, nil)
	ts.do(http.MethodGet, "/health", "")

	rec := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestConfigFromCommon(t *testing.T) {
	cfg := &common.Config{}
	cfg.Server.Port = 8081
	cfg.Metrics.Path = "/internal/metrics"
	cfg.RateLimit = common.RateLimitConfig{Enabled: true, RPS: 5, Burst: 10}

	config := ConfigFromCommon(cfg)
	assert.Equal(t, 8081, config.Port)
	assert.Equal(t, "/internal/metrics", config.MetricsPath)
	assert.Equal(t, 10, config.RateLimit.Burst)
}
