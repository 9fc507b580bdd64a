package usecase

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
	"github.com/isectech/bulkshare/services/settlement-service/domain/service"
	"github.com/isectech/bulkshare/shared/common"
)

// SubmitInput is the state of the split screen at submission
type SubmitInput struct {
	OrderID         string
	Items           []entity.LineItem
	Partition       entity.Partition
	InvoiceSubTotal decimal.Decimal
	TaxesAndFees    decimal.Decimal
	// CouponSavings never reduces the counter-party's amount due; it is
	// only carried on the published event.
	CouponSavings     decimal.Decimal
	InitialGrandTotal decimal.Decimal
}

// SubmitInputFromSession captures an invoice session for submission
func SubmitInputFromSession(orderID string, session *service.InvoiceSession) SubmitInput {
	split := session.SplitInput()
	return SubmitInput{
		OrderID:           orderID,
		Items:             split.Items,
		Partition:         split.Partition,
		InvoiceSubTotal:   split.InvoiceSubTotal,
		TaxesAndFees:      split.TaxesAndFees,
		CouponSavings:     split.CouponSavings,
		InitialGrandTotal: session.InitialGrandTotal(),
	}
}

// SettlementWriter turns a split into the counter-party's settlement record
type SettlementWriter struct {
	settlements repository.SettlementRepository
	publisher   EventPublisher
	logger      *logging.Logger
	metrics     *metrics.Collector
}

// NewSettlementWriter creates a settlement writer
func NewSettlementWriter(
	settlements repository.SettlementRepository,
	publisher EventPublisher,
	logger *logging.Logger,
	collector *metrics.Collector,
) *SettlementWriter {
	return &SettlementWriter{
		settlements: settlements,
		publisher:   publisher,
		logger:      logger.WithComponent("settlement-writer"),
		metrics:     collector,
	}
}

// BuildRecord computes the record Submit would write, without writing it
func BuildRecord(in SubmitInput) *entity.SettlementRecord {
	released := service.Recompute(service.SplitInput{
		Items:           in.Items,
		Partition:       in.Partition,
		InvoiceSubTotal: in.InvoiceSubTotal,
		TaxesAndFees:    in.TaxesAndFees,
		CouponSavings:   in.CouponSavings,
	}, service.SideReleased)

	return &entity.SettlementRecord{
		OrderID:               in.OrderID,
		CounterPartyItems:     service.ReleasedItems(in.Items, in.Partition),
		CounterPartyAmountDue: released.GrandTotal,
		FullOrderGrandTotal:   in.InitialGrandTotal,
		Status:                entity.SettlementStatusPending,
	}
}

// Submit writes the settlement record for in.OrderID, replacing any earlier
// submission for the same order.
func (w *SettlementWriter) Submit(ctx context.Context, in SubmitInput) (*entity.SettlementRecord, error) {
	logger := w.logger.WithContext(ctx).WithFields(logging.OrderID(in.OrderID))

	if strings.TrimSpace(in.OrderID) == "" {
		w.metrics.RecordSettlementSubmitted("invalid")
		return nil, common.NewAppErrorWithCause(common.ErrCodeInvalidInput, "order id is required", entity.ErrInvalidOrderID)
	}

	record := BuildRecord(in)

	if err := w.settlements.Save(ctx, record); err != nil {
		w.metrics.RecordSettlementSubmitted("error")
		logger.Error("Failed to save settlement", zap.Error(err))
		return nil, classifyStoreError(w.metrics, "save_settlement", "settlement", err)
	}

	w.metrics.RecordSettlementSubmitted("ok")
	logger.LogBusinessEvent(string(entity.EventSettlementSubmitted), "settlement submitted",
		zap.Int("released_items", len(record.CounterPartyItems)),
		zap.String("amount_due", record.CounterPartyAmountDue.String()),
		zap.String("grand_total", record.FullOrderGrandTotal.String()))

	event := entity.NewSettlementEvent(entity.EventSettlementSubmitted, record, "")
	event.CouponSavings = in.CouponSavings.Abs()
	publishBestEffort(ctx, w.publisher, event, logger)

	return record, nil
}

// publishBestEffort publishes event; a failure is logged, never returned
func publishBestEffort(ctx context.Context, publisher EventPublisher, event entity.SettlementEvent, logger *logging.Logger) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Settlement event not delivered",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
