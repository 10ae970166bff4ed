package model

import (
	"time"
)

// ContractRecord status constants
const (
	StatusExtracted = "extracted"
	StatusConfirmed = "confirmed"
)

// RampPhase is one time-bounded pricing phase within a contract term.
// Ordering inside ExtractedContract.Ramp is chronological.
type RampPhase struct {
	StartMonth      *int     `json:"start_month"`
	EndMonth        *int     `json:"end_month"`
	PricePerMonth   *string  `json:"price_per_month"`
	DiscountPercent *float64 `json:"discount_percent"`
	Notes           *string  `json:"notes"`
}

// ExtractedContract is the structured record produced by AI extraction and
// consumed by billing creation. Every field is optional; a nil pointer means
// "not found in source text", not an error. Prices stay strings so currency
// symbols and formatting survive.
type ExtractedContract struct {
	CustomerName    *string `json:"customer_name"`
	CustomerEmail   *string `json:"customer_email"`
	CustomerPhone   *string `json:"customer_phone"`
	CustomerAddress *string `json:"customer_address"`
	VendorName      *string `json:"vendor_name"`

	PlanID      *string `json:"plan_id"`
	PlanName    *string `json:"plan_name"`
	ItemPriceID *string `json:"item_price_id"`
	Currency    *string `json:"currency"`

	StartDate    *string `json:"start_date"` // YYYY-MM-DD when known
	TermMonths   *int    `json:"term_months"`
	PaymentTerms *string `json:"payment_terms"`

	BasePricePerMonth *string  `json:"base_price_per_month"`
	TaxPercent        *float64 `json:"tax_percent"`
	PONumber          *string  `json:"po_number"`

	Ramp                    []RampPhase `json:"ramp"`
	AnnualEscalationPercent *float64    `json:"annual_escalation_percent"`

	SourceConfidenceNotes *string `json:"source_confidence_notes"`
	RawNotes              *string `json:"raw_notes"`
}

// ContractRecord is the persisted artifact for one uploaded contract, keyed
// by ContractID. Status moves extracted -> confirmed and nowhere else.
type ContractRecord struct {
	ContractID  string             `json:"contract_id"`
	Filename    string             `json:"filename"`
	Timestamp   time.Time          `json:"timestamp"`
	Status      string             `json:"status"`
	Extracted   *ExtractedContract `json:"extracted"`
	RawText     string             `json:"raw_text"`
	ConfirmedAt *time.Time         `json:"confirmed_at,omitempty"`
}

// ContractSummary is one row in the contract history listing.
type ContractSummary struct {
	ContractID string    `json:"contract_id"`
	Filename   string    `json:"filename"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
}
