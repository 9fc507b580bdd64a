package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var amountReplacer = strings.NewReplacer("$", "", ",", "", " ", "")

// CoerceAmount converts the loosely typed numerics found in raw invoices
// (strings, JSON numbers, Go numbers) into a decimal.
func CoerceAmount(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, ErrEmptyAmount
	case decimal.Decimal:
		return v, nil
	case json.Number:
		return parseAmountText(v.String())
	case string:
		return parseAmountText(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, value)
	}
}

func parseAmountText(text string) (decimal.Decimal, error) {
	cleaned := amountReplacer.Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	return amount, nil
}

// SumPrices adds up the prices of items
func SumPrices(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}

// RoundCents rounds an amount for display
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
