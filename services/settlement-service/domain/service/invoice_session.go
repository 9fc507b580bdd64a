package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/shared/common"
)

// InvoiceSession is the editable state behind the split screen: the items
// as edited, the partition, and the taxes and coupon as currently entered.
// The invoice sub-total and the initial grand total stay as loaded.
//
// A session is not safe for concurrent use.
type InvoiceSession struct {
	invoice       entity.Invoice
	items         []entity.LineItem
	partition     entity.Partition
	taxesAndFees  decimal.Decimal
	couponSavings decimal.Decimal
}

// NewInvoiceSession starts a session with every item kept
func NewInvoiceSession(invoice entity.Invoice) *InvoiceSession {
	return &InvoiceSession{
		invoice:       invoice,
		items:         invoice.CloneItems(),
		partition:     entity.NewPartition(len(invoice.Items)),
		taxesAndFees:  invoice.TaxesAndFees,
		couponSavings: invoice.CouponSavings,
	}
}

// Invoice returns the invoice the session was loaded from
func (s *InvoiceSession) Invoice() entity.Invoice {
	return s.invoice
}

// Items returns a copy of the current items
func (s *InvoiceSession) Items() []entity.LineItem {
	items := make([]entity.LineItem, len(s.items))
	copy(items, s.items)
	return items
}

// Partition returns a copy of the current partition
func (s *InvoiceSession) Partition() entity.Partition {
	partition := make(entity.Partition, len(s.items))
	for i := range partition {
		partition[i] = s.partition.Kept(i)
	}
	return partition
}

// Toggle flips item i between kept and released
func (s *InvoiceSession) Toggle(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.partition.Toggle(i)
	return nil
}

// SetKept assigns item i to a side
func (s *InvoiceSession) SetKept(i int, kept bool) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.partition.Set(i, kept)
	return nil
}

// Release marks every given index as released
func (s *InvoiceSession) Release(indexes ...int) error {
	for _, i := range indexes {
		if err := s.SetKept(i, false); err != nil {
			return err
		}
	}
	return nil
}

// SetItemName renames item i
func (s *InvoiceSession) SetItemName(i int, name string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.items[i].Name = name
	return nil
}

// SetItemPrice sets item i from free text; unparseable text is zero
func (s *InvoiceSession) SetItemPrice(i int, text string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.items[i].Price = ParsePrice(text)
	return nil
}

// AddItem appends an item, kept by default, and returns its index
func (s *InvoiceSession) AddItem(name, priceText string) int {
	s.items = append(s.items, entity.LineItem{Name: name, Price: ParsePrice(priceText)})
	s.partition.Set(len(s.items)-1, true)
	return len(s.items) - 1
}

// SetTaxesAndFees sets taxes from free text; unparseable text is zero
func (s *InvoiceSession) SetTaxesAndFees(text string) {
	s.taxesAndFees = ParsePrice(text)
}

// SetCouponSavings sets the coupon from free text; unparseable text is zero
func (s *InvoiceSession) SetCouponSavings(text string) {
	s.couponSavings = ParsePrice(text)
}

// TaxesAndFees returns the taxes as currently entered
func (s *InvoiceSession) TaxesAndFees() decimal.Decimal {
	return s.taxesAndFees
}

// CouponSavings returns the coupon as currently entered
func (s *InvoiceSession) CouponSavings() decimal.Decimal {
	return s.couponSavings
}

// SplitInput assembles the calculator input for the current state
func (s *InvoiceSession) SplitInput() SplitInput {
	return SplitInput{
		Items:           s.Items(),
		Partition:       s.Partition(),
		InvoiceSubTotal: s.invoice.SubTotal,
		TaxesAndFees:    s.taxesAndFees,
		CouponSavings:   s.couponSavings,
	}
}

// Totals recomputes both sides for the current state
func (s *InvoiceSession) Totals() SplitResult {
	return Split(s.SplitInput())
}

// InitialGrandTotal is the frozen all-kept baseline from load time
func (s *InvoiceSession) InitialGrandTotal() decimal.Decimal {
	return s.invoice.InitialGrandTotal
}

func (s *InvoiceSession) checkIndex(i int) error {
	if i < 0 || i >= len(s.items) {
		return common.NewAppErrorWithDetails(common.ErrCodeInvalidInput, "item index out of range",
			fmt.Sprintf("index %d, items %d", i, len(s.items)))
	}
	return nil
}
