package entity

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// LineItem is a single purchased item
type LineItem struct {
	Name  string          `json:"name" msgpack:"name"`
	Price decimal.Decimal `json:"price" msgpack:"price"`
}

// RawInvoice is the loosely typed payload produced by the order flow.
// Items are [name, price] pairs and every numeric may be a string.
type RawInvoice struct {
	Items         [][]interface{} `json:"Items"`
	SubTotal      interface{}     `json:"Sub total"`
	TaxesAndFees  interface{}     `json:"Taxes and fees,omitempty"`
	CouponSavings interface{}     `json:"Coupon savings,omitempty"`
}

// UnmarshalJSON keeps numbers as json.Number so no precision is lost
// before coercion to decimal.
func (r *RawInvoice) UnmarshalJSON(data []byte) error {
	type rawInvoice RawInvoice

	var aux rawInvoice
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&aux); err != nil {
		return err
	}

	*r = RawInvoice(aux)
	return nil
}

// ParseRawInvoice decodes a raw invoice document
func ParseRawInvoice(data []byte) (RawInvoice, error) {
	var raw RawInvoice
	err := json.Unmarshal(data, &raw)
	return raw, err
}

// Invoice is the normalized, typed invoice
type Invoice struct {
	Items         []LineItem      `json:"items"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	TaxesAndFees  decimal.Decimal `json:"taxes_and_fees"`
	CouponSavings decimal.Decimal `json:"coupon_savings"`

	// InitialGrandTotal is computed once with every item kept and is the
	// baseline reported to both parties.
	InitialGrandTotal decimal.Decimal `json:"initial_grand_total"`
}

// CloneItems returns a copy of the invoice items
func (i Invoice) CloneItems() []LineItem {
	items := make([]LineItem, len(i.Items))
	copy(items, i.Items)
	return items
}
