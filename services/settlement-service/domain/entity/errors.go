package entity

import "errors"

// Invoice errors
var (
	ErrMalformedInvoice = errors.New("malformed invoice")
	ErrEmptyInvoice     = errors.New("invoice has no items")
	ErrInvalidLineItem  = errors.New("line item must be a [name, price] pair")
	ErrEmptyAmount      = errors.New("amount is empty")
	ErrInvalidAmount    = errors.New("amount is not numeric")
)

// Lookup errors
var (
	ErrSettlementNotFound  = errors.New("settlement not found")
	ErrListingNotFound     = errors.New("listing not found")
	ErrOrderLookupNotFound = errors.New("order has no listing")
)

// Lifecycle errors
var (
	ErrInvalidOrderID         = errors.New("invalid order ID")
	ErrTransactionNotReady    = errors.New("transaction is not ready")
	ErrTransitionInFlight     = errors.New("another action is in flight")
	ErrInvalidListingStatus   = errors.New("invalid listing status")
	ErrInvalidSettlementState = errors.New("invalid settlement status")
)
