package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewFromZap(zap.New(core), "settlement-service"), logs
}

func TestWithContextAddsRequestID(t *testing.T) {
	logger, logs := newObservedLogger()
	ctx := ContextWithRequestID(context.Background(), "req-1")

	logger.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "settlement-service", fields["service"])
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestLogBusinessEvent(t *testing.T) {
	logger, logs := newObservedLogger()

	logger.WithComponent("settlement-writer").
		LogBusinessEvent("settlement.submitted", "settlement submitted", OrderID("order-1"), Status("pending"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "business", fields["event_type"])
	assert.Equal(t, "settlement.submitted", fields["business_event_type"])
	assert.Equal(t, "order-1", fields["order_id"])
	assert.Equal(t, "pending", fields["status"])
	assert.Equal(t, "settlement-writer", fields["component"])
}

func TestLogPerformanceIsDebug(t *testing.T) {
	logger, logs := newObservedLogger()

	logger.LogPerformance("open_transaction", 15*time.Millisecond, ListingID("listing-1"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	assert.Equal(t, 15.0, entry.ContextMap()["duration_ms"])
	assert.Equal(t, "listing-1", entry.ContextMap()["listing_id"])
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(Config{Level: "loud"})
	assert.Error(t, err)

	logger, err := NewLogger(Config{Level: "info", Format: "json", Output: "stderr", ServiceName: "svc"})
	require.NoError(t, err)
	assert.Equal(t, "svc", logger.ServiceName())
}
