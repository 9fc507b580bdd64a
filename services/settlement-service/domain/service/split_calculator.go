package service

import (
	"github.com/shopspring/decimal"

	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
)

// Side selects which subset of a partition is being totalled
type Side int

const (
	// SideKept is the initiating party's subset; coupon savings apply here
	SideKept Side = iota
	// SideReleased is the counter-party's subset; no coupon is applied
	SideReleased
)

// String implements fmt.Stringer
func (s Side) String() string {
	if s == SideReleased {
		return "released"
	}
	return "kept"
}

// SplitInput is everything Recompute needs
type SplitInput struct {
	Items           []entity.LineItem
	Partition       entity.Partition
	InvoiceSubTotal decimal.Decimal
	TaxesAndFees    decimal.Decimal
	CouponSavings   decimal.Decimal
}

// Totals are the figures for one side of a split
type Totals struct {
	SubTotal     decimal.Decimal `json:"sub_total"`
	TaxesAndFees decimal.Decimal `json:"taxes_and_fees"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// SplitResult holds both sides of a split
type SplitResult struct {
	Kept     Totals `json:"kept"`
	Released Totals `json:"released"`
}

// ProrateTax allocates taxes by dollar share: active * taxes / invoiceSubTotal.
// A zero invoice sub-total yields zero tax.
func ProrateTax(active, invoiceSubTotal, taxes decimal.Decimal) decimal.Decimal {
	if invoiceSubTotal.IsZero() {
		return decimal.Zero
	}
	return active.Mul(taxes).Div(invoiceSubTotal)
}

// Recompute totals the requested side of the partition.
//
// The coupon is subtracted once and in full on the kept side only, so an
// empty kept side is -|coupon| while an empty released side is zero.
func Recompute(in SplitInput, side Side) Totals {
	active := decimal.Zero
	for i, item := range in.Items {
		if in.Partition.Kept(i) == (side == SideKept) {
			active = active.Add(item.Price)
		}
	}

	tax := ProrateTax(active, in.InvoiceSubTotal, in.TaxesAndFees)
	grand := active.Add(tax)
	if side == SideKept {
		grand = grand.Sub(in.CouponSavings.Abs())
	}

	return Totals{
		SubTotal:     active,
		TaxesAndFees: tax,
		GrandTotal:   grand,
	}
}

// Split runs Recompute for both sides
func Split(in SplitInput) SplitResult {
	return SplitResult{
		Kept:     Recompute(in, SideKept),
		Released: Recompute(in, SideReleased),
	}
}

// ReleasedItems returns the items the counter-party takes, in order
func ReleasedItems(items []entity.LineItem, partition entity.Partition) []entity.LineItem {
	released := []entity.LineItem{}
	for i, item := range items {
		if partition.Released(i) {
			released = append(released, item)
		}
	}
	return released
}

// ParsePrice parses free-text price entry. Anything unparseable is zero.
func ParsePrice(text string) decimal.Decimal {
	price, err := entity.CoerceAmount(text)
	if err != nil {
		return decimal.Zero
	}
	return price
}
