package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingStatus represents the availability of a listing
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusFulfilled ListingStatus = "fulfilled"
)

// IsValid checks if the listing status is valid
func (s ListingStatus) IsValid() bool {
	return s == ListingStatusActive || s == ListingStatusFulfilled
}

// Location is the pickup address of a listing
type Location struct {
	Street string `json:"street,omitempty"`
	Apt    string `json:"apt,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// Listing is a group purchase offer. Only Status is written by this service.
type Listing struct {
	ListingID           string          `json:"listing_id"`
	HostID              string          `json:"host_id,omitempty"`
	Store               string          `json:"store,omitempty"`
	Title               string          `json:"title,omitempty"`
	Description         string          `json:"description,omitempty"`
	MinPurchaseRequired decimal.Decimal `json:"min_purchase_required"`
	CurrentTotal        decimal.Decimal `json:"current_total"`
	Location            Location        `json:"location"`
	CreatedAt           time.Time       `json:"created_at"`
	ExpiresAt           time.Time       `json:"expires_at"`
	Status              ListingStatus   `json:"status"`
}

// OrderLookup maps an order (conversation) to the listing it came from
type OrderLookup struct {
	OrderID   string `json:"order_id" msgpack:"order_id"`
	ListingID string `json:"listing_id" msgpack:"listing_id"`
}
