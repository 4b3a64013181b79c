package supabase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")

	// ErrInvalidClaim is returned when a claim has an unexpected value
	ErrInvalidClaim = errors.New("invalid claim")
)

// AppMetadata is the server-controlled part of a Supabase user. Only the
// service-role key can write it, so it is safe to authorize on.
type AppMetadata struct {
	OrgID    string `json:"org_id,omitempty"`
	Role     string `json:"role,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Claims represents a Supabase access token
type Claims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone,omitempty"`
	Role         string                 `json:"role"` // Postgres role, "authenticated"
	SessionID    string                 `json:"session_id,omitempty"`
	AppMetadata  AppMetadata            `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// Principal is the authenticated caller derived from validated claims
type Principal struct {
	UserID    uuid.UUID
	Email     string
	OrgID     uuid.UUID
	Role      models.Role
	ClientID  *uuid.UUID // set for client-role portal users
	SessionID string
	ExpiresAt time.Time
}

// IsStaff reports whether the principal is an agency employee or admin
func (p *Principal) IsStaff() bool {
	return p.Role == models.RoleAdmin || p.Role == models.RoleEmployee
}

// HasAnyRole checks if the principal has any of the roles
func (p *Principal) HasAnyRole(roles ...models.Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// toPrincipal checks the application claims and converts them
func toPrincipal(claims *Claims) (*Principal, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: sub is not a UUID", ErrInvalidClaim)
	}

	meta := claims.AppMetadata
	if meta.OrgID == "" {
		return nil, fmt.Errorf("%w: app_metadata.org_id", ErrMissingClaim)
	}
	orgID, err := uuid.Parse(meta.OrgID)
	if err != nil {
		return nil, fmt.Errorf("%w: app_metadata.org_id is not a UUID", ErrInvalidClaim)
	}

	role := models.Role(meta.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: app_metadata.role %q", ErrInvalidClaim, meta.Role)
	}

	p := &Principal{
		UserID:    sub,
		Email:     claims.Email,
		OrgID:     orgID,
		Role:      role,
		SessionID: claims.SessionID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}

	if role == models.RoleClient {
		if meta.ClientID == "" {
			return nil, fmt.Errorf("%w: app_metadata.client_id", ErrMissingClaim)
		}
		clientID, err := uuid.Parse(meta.ClientID)
		if err != nil {
			return nil, fmt.Errorf("%w: app_metadata.client_id is not a UUID", ErrInvalidClaim)
		}
		p.ClientID = &clientID
	}
	return p, nil
}
