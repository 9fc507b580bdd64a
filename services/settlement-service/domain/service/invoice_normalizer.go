package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/shared/common"
)

// NormalizeInvoice coerces a raw invoice into typed items and totals and
// computes the initial grand total with every item kept.
//
// Absent taxes or coupon savings are zero; anything else that is not
// numeric makes the whole invoice unusable.
func NormalizeInvoice(raw entity.RawInvoice) (entity.Invoice, error) {
	if len(raw.Items) == 0 {
		return entity.Invoice{}, malformed("items", entity.ErrEmptyInvoice)
	}

	items := make([]entity.LineItem, 0, len(raw.Items))
	for i, pair := range raw.Items {
		item, err := normalizeLineItem(pair)
		if err != nil {
			return entity.Invoice{}, malformed(fmt.Sprintf("item %d", i), err)
		}
		items = append(items, item)
	}

	subTotal, err := entity.CoerceAmount(raw.SubTotal)
	if err != nil {
		return entity.Invoice{}, malformed("sub total", err)
	}

	taxes, err := optionalAmount(raw.TaxesAndFees)
	if err != nil {
		return entity.Invoice{}, malformed("taxes and fees", err)
	}

	coupon, err := optionalAmount(raw.CouponSavings)
	if err != nil {
		return entity.Invoice{}, malformed("coupon savings", err)
	}

	invoice := entity.Invoice{
		Items:         items,
		SubTotal:      subTotal,
		TaxesAndFees:  taxes,
		CouponSavings: coupon,
	}
	invoice.InitialGrandTotal = InitialGrandTotal(invoice)

	return invoice, nil
}

// InitialGrandTotal is the kept-side grand total with every item kept
func InitialGrandTotal(invoice entity.Invoice) decimal.Decimal {
	return Recompute(SplitInput{
		Items:           invoice.Items,
		Partition:       entity.NewPartition(len(invoice.Items)),
		InvoiceSubTotal: invoice.SubTotal,
		TaxesAndFees:    invoice.TaxesAndFees,
		CouponSavings:   invoice.CouponSavings,
	}, SideKept).GrandTotal
}

func normalizeLineItem(pair []interface{}) (entity.LineItem, error) {
	if len(pair) != 2 {
		return entity.LineItem{}, entity.ErrInvalidLineItem
	}

	name, ok := pair[0].(string)
	if !ok {
		return entity.LineItem{}, entity.ErrInvalidLineItem
	}

	price, err := entity.CoerceAmount(pair[1])
	if err != nil {
		return entity.LineItem{}, err
	}

	return entity.LineItem{Name: name, Price: price}, nil
}

func optionalAmount(value interface{}) (decimal.Decimal, error) {
	amount, err := entity.CoerceAmount(value)
	if errors.Is(err, entity.ErrEmptyAmount) {
		return decimal.Zero, nil
	}
	return amount, err
}

func malformed(field string, cause error) error {
	return common.ErrMalformedInvoice(fmt.Sprintf("%s: %v", field, cause),
		fmt.Errorf("%w: %w", entity.ErrMalformedInvoice, cause))
}
