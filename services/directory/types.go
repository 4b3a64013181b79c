package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/supabase"
)

// AuthAdmin is the part of the Supabase Auth admin API the directory uses.
// *supabase.AdminClient implements it.
type AuthAdmin interface {
	InviteUser(ctx context.Context, req supabase.InviteRequest) (*supabase.User, error)
	UpdateAppMetadata(ctx context.Context, userID uuid.UUID, meta supabase.AppMetadata) error
}

// Config holds directory settings
type Config struct {
	// StaffRedirectURL is where an invited employee lands after setting a password
	StaffRedirectURL string
	// PortalRedirectURL is where an invited client lands
	PortalRedirectURL string
}

// OrganizationRequest creates a tenant
type OrganizationRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Slug     string `json:"slug" validate:"required,min=2,max=48"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
	Timezone string `json:"timezone" validate:"omitempty,max=64"`
}

// OrganizationUpdate changes tenant settings. Nil fields are left alone.
type OrganizationUpdate struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Currency *string `json:"currency" validate:"omitempty,len=3"`
	Timezone *string `json:"timezone" validate:"omitempty,max=64"`
}

// EmployeeRequest creates a staff member
type EmployeeRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	FullName string      `json:"full_name" validate:"required,max=120"`
	Handle   string      `json:"handle" validate:"required"`
	Role     models.Role `json:"role" validate:"required,oneof=admin employee"`
	Phone    string      `json:"phone" validate:"omitempty,e164"`
	// Invite sends a Supabase invite right after the record is created
	Invite bool `json:"invite"`
}

// EmployeeUpdate changes a staff member. Nil fields are left alone.
type EmployeeUpdate struct {
	FullName *string      `json:"full_name" validate:"omitempty,max=120"`
	Handle   *string      `json:"handle"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=admin employee"`
	Phone    *string      `json:"phone" validate:"omitempty,e164"`
}

// ClientRequest creates a client account
type ClientRequest struct {
	Name                 string     `json:"name" validate:"required,max=120"`
	Company              string     `json:"company" validate:"max=160"`
	Email                string     `json:"email" validate:"omitempty,email"`
	Phone                string     `json:"phone" validate:"omitempty,e164"`
	OwnerID              *uuid.UUID `json:"owner_id"`
	ContractStart        *time.Time `json:"contract_start"`
	ContractEnd          *time.Time `json:"contract_end"`
	MonthlyRetainerCents int64      `json:"monthly_retainer_cents" validate:"gte=0"`
	SatisfactionScore    *float64   `json:"satisfaction_score" validate:"omitempty,gte=1,lte=5"`
}

// ClientUpdate changes a client account. Nil fields are left alone.
type ClientUpdate struct {
	Name                 *string              `json:"name" validate:"omitempty,max=120"`
	Company              *string              `json:"company" validate:"omitempty,max=160"`
	Email                *string              `json:"email" validate:"omitempty,email"`
	Phone                *string              `json:"phone" validate:"omitempty,e164"`
	Status               *models.ClientStatus `json:"status" validate:"omitempty,oneof=active paused churned"`
	OwnerID              *uuid.UUID           `json:"owner_id"`
	ContractStart        *time.Time           `json:"contract_start"`
	ContractEnd          *time.Time           `json:"contract_end"`
	MonthlyRetainerCents *int64               `json:"monthly_retainer_cents" validate:"omitempty,gte=0"`
	SatisfactionScore    *float64             `json:"satisfaction_score" validate:"omitempty,gte=1,lte=5"`
}

// Profile is what /me returns: the caller's organization plus either the
// employee record or the client account behind the token.
type Profile struct {
	UserID       uuid.UUID            `json:"user_id"`
	Email        string               `json:"email"`
	Role         models.Role          `json:"role"`
	Organization *models.Organization `json:"organization"`
	Employee     *models.Employee     `json:"employee,omitempty"`
	Client       *models.Client       `json:"client,omitempty"`
}
