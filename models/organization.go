package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is an agency tenant. Every other row is scoped to one.
type Organization struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Currency  string    `json:"currency" db:"currency"`
	Timezone  string    `json:"timezone" db:"timezone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Organization model
func (Organization) TableName() string {
	return "organizations"
}

// NewOrganization creates a new Organization instance
func NewOrganization(name, slug, currency string) *Organization {
	now := time.Now().UTC()
	if currency == "" {
		currency = "USD"
	}
	return &Organization{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		Currency:  currency,
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
