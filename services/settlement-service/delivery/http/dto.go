package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/domain/service"
	"github.com/isectech/bulkshare/services/settlement-service/usecase"
)

// Split DTOs

type SplitRequestDTO struct {
	Invoice       entity.RawInvoice `json:"invoice"`
	Released      []int             `json:"released,omitempty"`
	Items         []ItemEditDTO     `json:"items,omitempty"`
	TaxesAndFees  *string           `json:"taxes_and_fees,omitempty"`
	CouponSavings *string           `json:"coupon_savings,omitempty"`
}

// ItemEditDTO overrides the item at the same index; entries past the end
// of the invoice are appended as new kept items.
type ItemEditDTO struct {
	Name  *string `json:"name,omitempty"`
	Price *string `json:"price,omitempty"`
}

type LineItemDTO struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type TotalsDTO struct {
	SubTotal     string `json:"sub_total"`
	TaxesAndFees string `json:"taxes_and_fees"`
	GrandTotal   string `json:"grand_total"`
}

type QuoteResponseDTO struct {
	Items                 []LineItemDTO `json:"items"`
	Released              []int         `json:"released"`
	InvoiceSubTotal       string        `json:"invoice_sub_total"`
	TaxesAndFees          string        `json:"taxes_and_fees"`
	CouponSavings         string        `json:"coupon_savings"`
	InitialGrandTotal     string        `json:"initial_grand_total"`
	Kept                  TotalsDTO     `json:"kept"`
	ReleasedTotals        TotalsDTO     `json:"released_totals"`
	CounterPartyAmountDue string        `json:"counter_party_amount_due"`
}

// Settlement DTOs

type SettlementDTO struct {
	OrderID               string        `json:"order_id"`
	CounterPartyItems     []LineItemDTO `json:"counter_party_items"`
	CounterPartyAmountDue string        `json:"counter_party_amount_due"`
	FullOrderGrandTotal   string        `json:"full_order_grand_total"`
	Status                string        `json:"status"`
}

type ReconciliationDTO struct {
	ItemsTotal   string `json:"items_total"`
	TaxesAndFees string `json:"taxes_and_fees"`
	GrandTotal   string `json:"grand_total"`
}

type ListingDTO struct {
	ListingID           string          `json:"listing_id"`
	HostID              string          `json:"host_id,omitempty"`
	Store               string          `json:"store,omitempty"`
	Title               string          `json:"title,omitempty"`
	Description         string          `json:"description,omitempty"`
	MinPurchaseRequired string          `json:"min_purchase_required"`
	CurrentTotal        string          `json:"current_total"`
	Location            entity.Location `json:"location"`
	CreatedAt           string          `json:"created_at,omitempty"`
	ExpiresAt           string          `json:"expires_at,omitempty"`
	Status              string          `json:"status"`
}

type TransactionDTO struct {
	OrderID        string             `json:"order_id"`
	ListingID      string             `json:"listing_id,omitempty"`
	Phase          string             `json:"phase"`
	Listing        *ListingDTO        `json:"listing,omitempty"`
	Settlement     *SettlementDTO     `json:"settlement,omitempty"`
	Reconciliation *ReconciliationDTO `json:"reconciliation,omitempty"`
}

type ErrorResponseDTO struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Conversion helpers

// money renders an amount for display, rounded to cents
func money(amount decimal.Decimal) string {
	return entity.RoundCents(amount).StringFixed(2)
}

func convertItemsToDTO(items []entity.LineItem) []LineItemDTO {
	dtos := make([]LineItemDTO, len(items))
	for i, item := range items {
		dtos[i] = LineItemDTO{Name: item.Name, Price: money(item.Price)}
	}
	return dtos
}

func convertTotalsToDTO(totals service.Totals) TotalsDTO {
	return TotalsDTO{
		SubTotal:     money(totals.SubTotal),
		TaxesAndFees: money(totals.TaxesAndFees),
		GrandTotal:   money(totals.GrandTotal),
	}
}

func convertQuoteToDTO(session *service.InvoiceSession) *QuoteResponseDTO {
	split := session.SplitInput()
	totals := session.Totals()

	return &QuoteResponseDTO{
		Items:                 convertItemsToDTO(split.Items),
		Released:              split.Partition.ReleasedIndexes(len(split.Items)),
		InvoiceSubTotal:       money(split.InvoiceSubTotal),
		TaxesAndFees:          money(split.TaxesAndFees),
		CouponSavings:         money(split.CouponSavings),
		InitialGrandTotal:     money(session.InitialGrandTotal()),
		Kept:                  convertTotalsToDTO(totals.Kept),
		ReleasedTotals:        convertTotalsToDTO(totals.Released),
		CounterPartyAmountDue: money(totals.Released.GrandTotal),
	}
}

func convertSettlementToDTO(record *entity.SettlementRecord) *SettlementDTO {
	return &SettlementDTO{
		OrderID:               record.OrderID,
		CounterPartyItems:     convertItemsToDTO(record.CounterPartyItems),
		CounterPartyAmountDue: money(record.CounterPartyAmountDue),
		FullOrderGrandTotal:   money(record.FullOrderGrandTotal),
		Status:                string(record.Status),
	}
}

func convertListingToDTO(listing *entity.Listing) *ListingDTO {
	dto := &ListingDTO{
		ListingID:           listing.ListingID,
		HostID:              listing.HostID,
		Store:               listing.Store,
		Title:               listing.Title,
		Description:         listing.Description,
		MinPurchaseRequired: money(listing.MinPurchaseRequired),
		CurrentTotal:        money(listing.CurrentTotal),
		Location:            listing.Location,
		Status:              string(listing.Status),
	}
	if !listing.CreatedAt.IsZero() {
		dto.CreatedAt = listing.CreatedAt.Format(time.RFC3339)
	}
	if !listing.ExpiresAt.IsZero() {
		dto.ExpiresAt = listing.ExpiresAt.Format(time.RFC3339)
	}
	return dto
}

func convertTransactionToDTO(view usecase.TransactionView) *TransactionDTO {
	dto := &TransactionDTO{
		OrderID:   view.OrderID,
		ListingID: view.ListingID,
		Phase:     string(view.Phase),
	}
	if view.Listing != nil {
		dto.Listing = convertListingToDTO(view.Listing)
	}
	if view.Settlement != nil {
		dto.Settlement = convertSettlementToDTO(view.Settlement)
	}
	if view.Reconciliation != nil {
		dto.Reconciliation = &ReconciliationDTO{
			ItemsTotal:   money(view.Reconciliation.ItemsTotal),
			TaxesAndFees: money(view.Reconciliation.TaxesAndFees),
			GrandTotal:   money(view.Reconciliation.GrandTotal),
		}
	}
	return dto
}
