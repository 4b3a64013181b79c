package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
)

// InvoiceIssuer numbers and stores invoices inside a transaction
type InvoiceIssuer interface {
	Issue(ctx context.Context, tx repositories.Transaction, inv *models.Invoice) error
	DueDays() int
}

// Config holds proposal defaults
type Config struct {
	ValidDays     int
	DefaultTaxPct float64
	Currency      string
}

// CreateRequest describes a new draft proposal
type CreateRequest struct {
	ClientID    uuid.UUID
	Title       string
	LineItems   []models.LineItem
	DiscountPct float64
	TaxPct      *float64
	Currency    string
	ValidUntil  *time.Time
	Body        string
}

// UpdateRequest changes a draft. Nil fields are left as they are.
type UpdateRequest struct {
	Title       *string
	LineItems   []models.LineItem
	DiscountPct *float64
	TaxPct      *float64
	ValidUntil  *time.Time
	Body        *string
}

// DraftRequest steers AI drafting of the proposal body
type DraftRequest struct {
	Brief     string
	Tone      string
	Providers []string
}

// DraftResult is the drafted proposal and how the body was produced
type DraftResult struct {
	Proposal       *models.Proposal `json:"proposal"`
	Provider       string           `json:"provider,omitempty"`
	Model          string           `json:"model,omitempty"`
	Fallback       bool             `json:"fallback"`
	FallbackReason string           `json:"fallback_reason,omitempty"`
}

// Decision is a client's answer to a sent proposal
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// DecisionResult is the decided proposal and, on acceptance, its invoice
type DecisionResult struct {
	Proposal *models.Proposal `json:"proposal"`
	Invoice  *models.Invoice  `json:"invoice,omitempty"`
}
