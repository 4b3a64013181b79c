package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the application role carried in the auth token
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleClient   Role = "client"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// Employee is an agency staff member
type Employee struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	OrgID      uuid.UUID  `json:"org_id" db:"org_id"`
	AuthUserID *uuid.UUID `json:"auth_user_id,omitempty" db:"auth_user_id"`
	Email      string     `json:"email" db:"email"`
	FullName   string     `json:"full_name" db:"full_name"`
	Handle     string     `json:"handle" db:"handle"` // used for @mentions
	Role       Role       `json:"role" db:"role"`
	Phone      string     `json:"phone,omitempty" db:"phone"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Employee model
func (Employee) TableName() string {
	return "employees"
}

// NewEmployee creates a new Employee instance. The handle is stored lower-cased.
func NewEmployee(orgID uuid.UUID, email, fullName, handle string, role Role) *Employee {
	now := time.Now().UTC()
	return &Employee{
		ID:        uuid.New(),
		OrgID:     orgID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		FullName:  fullName,
		Handle:    strings.ToLower(strings.TrimSpace(handle)),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin returns true if the employee has admin role
func (e *Employee) IsAdmin() bool {
	return e.Role == RoleAdmin
}
