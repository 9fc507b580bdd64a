package entity

import (
	"github.com/shopspring/decimal"
)

// SettlementStatus represents the status of a settlement
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusFulfilled SettlementStatus = "fulfilled"
	SettlementStatusDeclined  SettlementStatus = "declined"
)

// IsValid checks if the settlement status is valid
func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusPending, SettlementStatusFulfilled, SettlementStatusDeclined:
		return true
	default:
		return false
	}
}

// SettlementRecord is what the counter-party owes for the released items
type SettlementRecord struct {
	OrderID               string           `json:"order_id"`
	CounterPartyItems     []LineItem       `json:"counter_party_items"`
	CounterPartyAmountDue decimal.Decimal  `json:"counter_party_amount_due"`
	FullOrderGrandTotal   decimal.Decimal  `json:"full_order_grand_total"`
	Status                SettlementStatus `json:"status"`
}

// ItemsTotal sums the counter-party item prices
func (s *SettlementRecord) ItemsTotal() decimal.Decimal {
	return SumPrices(s.CounterPartyItems)
}

// Equal compares two records by value, decimals numerically
func (s *SettlementRecord) Equal(other *SettlementRecord) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.OrderID != other.OrderID || s.Status != other.Status {
		return false
	}
	if !s.CounterPartyAmountDue.Equal(other.CounterPartyAmountDue) ||
		!s.FullOrderGrandTotal.Equal(other.FullOrderGrandTotal) {
		return false
	}
	if len(s.CounterPartyItems) != len(other.CounterPartyItems) {
		return false
	}
	for i, item := range s.CounterPartyItems {
		o := other.CounterPartyItems[i]
		if item.Name != o.Name || !item.Price.Equal(o.Price) {
			return false
		}
	}
	return true
}

// Reconciliation is the display-only breakdown of a settlement
type Reconciliation struct {
	ItemsTotal   decimal.Decimal `json:"items_total"`
	TaxesAndFees decimal.Decimal `json:"taxes_and_fees"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// Reconcile derives the display figures by subtraction from the frozen
// grand total rather than recomputing taxes.
func (s *SettlementRecord) Reconcile() Reconciliation {
	itemsTotal := s.ItemsTotal()
	return Reconciliation{
		ItemsTotal:   itemsTotal,
		TaxesAndFees: s.FullOrderGrandTotal.Sub(itemsTotal),
		GrandTotal:   s.FullOrderGrandTotal,
	}
}
