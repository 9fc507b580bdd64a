package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies a settlement event
type EventType string

const (
	EventSettlementSubmitted  EventType = "settlement.submitted"
	EventTransactionConfirmed EventType = "transaction.confirmed"
	EventTransactionDeclined  EventType = "transaction.declined"
)

// SettlementEvent notifies the other party about a settlement change
type SettlementEvent struct {
	EventID       uuid.UUID        `json:"event_id"`
	Type          EventType        `json:"type"`
	OrderID       string           `json:"order_id"`
	ListingID     string           `json:"listing_id,omitempty"`
	Status        SettlementStatus `json:"status"`
	AmountDue     decimal.Decimal  `json:"amount_due"`
	GrandTotal    decimal.Decimal  `json:"grand_total"`
	CouponSavings decimal.Decimal  `json:"coupon_savings"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NewSettlementEvent builds an event for the given record
func NewSettlementEvent(eventType EventType, record *SettlementRecord, listingID string) SettlementEvent {
	return SettlementEvent{
		EventID:    uuid.New(),
		Type:       eventType,
		OrderID:    record.OrderID,
		ListingID:  listingID,
		Status:     record.Status,
		AmountDue:  record.CounterPartyAmountDue,
		GrandTotal: record.FullOrderGrandTotal,
		OccurredAt: time.Now().UTC(),
	}
}
