package models

import (
	"time"

	"github.com/google/uuid"
)

// ClientStatus represents the lifecycle state of an agency client
type ClientStatus string

const (
	ClientStatusActive  ClientStatus = "active"
	ClientStatusPaused  ClientStatus = "paused"
	ClientStatusChurned ClientStatus = "churned"
)

// RiskLevel buckets a churn score
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank orders risk levels so callers can filter with ">= high"
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

// Client is a customer account of the agency
type Client struct {
	ID                   uuid.UUID    `json:"id" db:"id"`
	OrgID                uuid.UUID    `json:"org_id" db:"org_id"`
	Name                 string       `json:"name" db:"name"`
	Company              string       `json:"company" db:"company"`
	Email                string       `json:"email" db:"email"`
	Phone                string       `json:"phone,omitempty" db:"phone"`
	Status               ClientStatus `json:"status" db:"status"`
	PortalUserID         *uuid.UUID   `json:"portal_user_id,omitempty" db:"portal_user_id"`
	OwnerID              *uuid.UUID   `json:"owner_id,omitempty" db:"owner_id"`
	ContractStart        *time.Time   `json:"contract_start,omitempty" db:"contract_start"`
	ContractEnd          *time.Time   `json:"contract_end,omitempty" db:"contract_end"`
	MonthlyRetainerCents int64        `json:"monthly_retainer_cents" db:"monthly_retainer_cents"`
	SatisfactionScore    *float64     `json:"satisfaction_score,omitempty" db:"satisfaction_score"`
	LastContactAt        *time.Time   `json:"last_contact_at,omitempty" db:"last_contact_at"`
	LastPortalLoginAt    *time.Time   `json:"last_portal_login_at,omitempty" db:"last_portal_login_at"`
	ChurnScore           *int         `json:"churn_score,omitempty" db:"churn_score"`
	ChurnRisk            *RiskLevel   `json:"churn_risk,omitempty" db:"churn_risk"`
	CreatedAt            time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Client model
func (Client) TableName() string {
	return "clients"
}

// NewClient creates a new active Client
func NewClient(orgID uuid.UUID, name, company, email string) *Client {
	now := time.Now().UTC()
	return &Client{
		ID:        uuid.New(),
		OrgID:     orgID,
		Name:      name,
		Company:   company,
		Email:     email,
		Status:    ClientStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ClientActivity is the aggregate the churn scorer reads.
// Nil pointers mean "unknown" and are scored by their own rule.
type ClientActivity struct {
	ClientID              uuid.UUID `json:"client_id"`
	DaysSinceLastContact  *int      `json:"days_since_last_contact,omitempty"`
	DaysSinceLastLogin    *int      `json:"days_since_last_login,omitempty"`
	OverdueInvoices       int       `json:"overdue_invoices"`
	OpenTasks             int       `json:"open_tasks"`
	SatisfactionScore     *float64  `json:"satisfaction_score,omitempty"`
	ContractDaysRemaining *int      `json:"contract_days_remaining,omitempty"`
	ActivityLast30        int       `json:"activity_last_30"`
	ActivityPrev30        int       `json:"activity_prev_30"`
	TenureMonths          int       `json:"tenure_months"`
}
