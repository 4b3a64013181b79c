package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus represents the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceOpen    InvoiceStatus = "open"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoiceVoid    InvoiceStatus = "void"
)

// Payable reports whether a checkout can be started for the status
func (s InvoiceStatus) Payable() bool {
	return s == InvoiceOpen || s == InvoiceOverdue
}

// Invoice is an amount owed by a client
type Invoice struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	OrgID             uuid.UUID     `json:"org_id" db:"org_id"`
	ClientID          uuid.UUID     `json:"client_id" db:"client_id"`
	ProposalID        *uuid.UUID    `json:"proposal_id,omitempty" db:"proposal_id"`
	Number            string        `json:"number" db:"number"`
	AmountCents       int64         `json:"amount_cents" db:"amount_cents"`
	Currency          string        `json:"currency" db:"currency"`
	Status            InvoiceStatus `json:"status" db:"status"`
	DueDate           time.Time     `json:"due_date" db:"due_date"`
	PaidAt            *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CheckoutSessionID string        `json:"checkout_session_id,omitempty" db:"checkout_session_id"`
	CheckoutURL       string        `json:"checkout_url,omitempty" db:"checkout_url"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceNumber formats the per-org monthly sequence, e.g. INV-202610-0007
func InvoiceNumber(at time.Time, seq int) string {
	return fmt.Sprintf("INV-%s-%04d", at.UTC().Format("200601"), seq)
}

// InvoiceNumberPrefix is the LIKE prefix for all numbers issued in the month of at
func InvoiceNumberPrefix(at time.Time) string {
	return fmt.Sprintf("INV-%s-", at.UTC().Format("200601"))
}

// IsOverdueAt reports whether an open invoice is past due at now
func (i *Invoice) IsOverdueAt(now time.Time) bool {
	return i.Status == InvoiceOpen && i.DueDate.Before(now)
}
