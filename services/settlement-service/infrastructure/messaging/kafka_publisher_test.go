package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/shared/common"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() entity.SettlementEvent {
	record := &entity.SettlementRecord{
		OrderID:               "order-1",
		CounterPartyAmountDue: decimal.NewFromInt(22),
		FullOrderGrandTotal:   decimal.NewFromInt(33),
		Status:                entity.SettlementStatusFulfilled,
	}
	return entity.NewSettlementEvent(entity.EventTransactionConfirmed, record, "listing-1")
}

func TestKafkaEventPublisherWritesKeyedJSON(t *testing.T) {
	writer := &recordingWriter{}
	logger := logging.NewFromZap(zaptest.NewLogger(t), "test")
	publisher := NewKafkaEventPublisherWithWriter(writer, "settlement-events", logger, metrics.NewCollector("test"))

	event := sampleEvent()
	require.NoError(t, publisher.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)

	message := writer.messages[0]
	assert.Equal(t, "order-1", string(message.Key))

	var decoded entity.SettlementEvent
	require.NoError(t, json.Unmarshal(message.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, entity.EventTransactionConfirmed, decoded.Type)
	assert.Equal(t, "listing-1", decoded.ListingID)
	assert.True(t, decimal.NewFromInt(22).Equal(decoded.AmountDue))

	headers := map[string]string{}
	for _, h := range message.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "transaction.confirmed", headers["event_type"])
	assert.Equal(t, event.EventID.String(), headers["event_id"])

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaEventPublisherWrapsWriteErrors(t *testing.T) {
	writer := &recordingWriter{err: errors.New("leader not available")}
	logger := logging.NewFromZap(zaptest.NewLogger(t), "test")
	publisher := NewKafkaEventPublisherWithWriter(writer, "settlement-events", logger, nil)

	err := publisher.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeServiceUnavailable))
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, NoopPublisher{}.Close())
}
