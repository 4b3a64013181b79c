package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// ProposalStatus represents where a proposal is in its lifecycle
type ProposalStatus string

const (
	ProposalDraft    ProposalStatus = "draft"
	ProposalSent     ProposalStatus = "sent"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
	ProposalExpired  ProposalStatus = "expired"
)

// Proposal body sources
const (
	GeneratedByManual   = "manual"
	GeneratedByAI       = "ai"
	GeneratedByTemplate = "template"
)

var (
	ErrNoLineItems     = errors.New("at least one line item is required")
	ErrInvalidQuantity = errors.New("line item quantity must be positive")
	ErrInvalidPrice    = errors.New("line item unit price cannot be negative")
	ErrInvalidPercent  = errors.New("percentage must be between 0 and 100")
	ErrAmountTooLarge  = errors.New("proposal amount exceeds the supported maximum")
)

// Limits keep every amount well inside the range float64 rounds exactly
const (
	MaxLineQuantity   = 1_000_000
	MaxUnitPriceCents = 100_000_000_000
	MaxAmountCents    = 1_000_000_000_000_000
)

// LineItem is one billable line on a proposal
type LineItem struct {
	Description    string `json:"description" validate:"required,max=500"`
	Quantity       int64  `json:"quantity" validate:"gt=0,lte=1000000"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0,lte=100000000000"`
}

// AmountCents returns quantity times unit price
func (l LineItem) AmountCents() int64 {
	return l.Quantity * l.UnitPriceCents
}

// Totals is the computed money breakdown of a proposal
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TaxableCents  int64 `json:"taxable_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// CalculateTotals computes proposal totals. Discount and tax are each rounded
// half away from zero to whole cents.
func CalculateTotals(items []LineItem, discountPct, taxPct float64) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, ErrNoLineItems
	}
	if discountPct < 0 || discountPct > 100 || taxPct < 0 || taxPct > 100 {
		return Totals{}, ErrInvalidPercent
	}

	var t Totals
	for _, item := range items {
		if item.Quantity <= 0 {
			return Totals{}, ErrInvalidQuantity
		}
		if item.UnitPriceCents < 0 {
			return Totals{}, ErrInvalidPrice
		}
		if item.UnitPriceCents > 0 && item.Quantity > MaxAmountCents/item.UnitPriceCents {
			return Totals{}, ErrAmountTooLarge
		}
		amount := item.AmountCents()
		if t.SubtotalCents > MaxAmountCents-amount {
			return Totals{}, ErrAmountTooLarge
		}
		t.SubtotalCents += amount
	}

	t.DiscountCents = int64(math.Round(float64(t.SubtotalCents) * discountPct / 100))
	t.TaxableCents = t.SubtotalCents - t.DiscountCents
	t.TaxCents = int64(math.Round(float64(t.TaxableCents) * taxPct / 100))
	t.TotalCents = t.TaxableCents + t.TaxCents
	return t, nil
}

// Proposal is a priced offer to a client, later turned into a contract
type Proposal struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	OrgID         uuid.UUID      `json:"org_id" db:"org_id"`
	ClientID      uuid.UUID      `json:"client_id" db:"client_id"`
	Title         string         `json:"title" db:"title"`
	LineItems     []LineItem     `json:"line_items" db:"line_items"`
	DiscountPct   float64        `json:"discount_pct" db:"discount_pct"`
	TaxPct        float64        `json:"tax_pct" db:"tax_pct"`
	Currency      string         `json:"currency" db:"currency"`
	SubtotalCents int64          `json:"subtotal_cents" db:"subtotal_cents"`
	TotalCents    int64          `json:"total_cents" db:"total_cents"`
	Status        ProposalStatus `json:"status" db:"status"`
	ValidUntil    *time.Time     `json:"valid_until,omitempty" db:"valid_until"`
	Body          string         `json:"body" db:"body"`
	GeneratedBy   string         `json:"generated_by" db:"generated_by"`
	ContractBody  string         `json:"contract_body,omitempty" db:"contract_body"`
	SentAt        *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty" db:"decided_at"`
	CreatedBy     *uuid.UUID     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Proposal model
func (Proposal) TableName() string {
	return "proposals"
}

// ApplyTotals recomputes subtotal and total from the line items
func (p *Proposal) ApplyTotals() (Totals, error) {
	t, err := CalculateTotals(p.LineItems, p.DiscountPct, p.TaxPct)
	if err != nil {
		return Totals{}, err
	}
	p.SubtotalCents = t.SubtotalCents
	p.TotalCents = t.TotalCents
	return t, nil
}

// IsExpiredAt reports whether a sent proposal has passed its validity date
func (p *Proposal) IsExpiredAt(now time.Time) bool {
	return p.Status == ProposalSent && p.ValidUntil != nil && now.After(*p.ValidUntil)
}
