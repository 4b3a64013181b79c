package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/supabase"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// PrincipalKey is the context key for the authenticated caller
	PrincipalKey contextKey = "principal"

	// OrgIDKey is the context key for organization ID
	OrgIDKey contextKey = "org_id"

	// EmployeeKey is the context key for the resolved employee record
	EmployeeKey contextKey = "employee"

	// ClientIDKey is the context key for a portal caller's client ID
	ClientIDKey contextKey = "client_id"
)

// GetRequestIDFromContext retrieves the request ID from context, falling
// back to the one chi's RequestID middleware stored
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetPrincipalFromContext retrieves the authenticated caller from context
func GetPrincipalFromContext(ctx context.Context) *supabase.Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if p, ok := val.(*supabase.Principal); ok {
			return p
		}
	}
	return nil
}

// WithPrincipal adds the authenticated caller to the context
func WithPrincipal(ctx context.Context, p *supabase.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetOrgIDFromContext retrieves the organization ID from context
func GetOrgIDFromContext(ctx context.Context) uuid.UUID {
	if val := ctx.Value(OrgIDKey); val != nil {
		if orgID, ok := val.(uuid.UUID); ok {
			return orgID
		}
	}
	return uuid.Nil
}

// WithOrgID adds an organization ID to the context
func WithOrgID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, OrgIDKey, orgID)
}

// GetEmployeeFromContext retrieves the calling employee. It is nil for
// portal callers.
func GetEmployeeFromContext(ctx context.Context) *models.Employee {
	if val := ctx.Value(EmployeeKey); val != nil {
		if emp, ok := val.(*models.Employee); ok {
			return emp
		}
	}
	return nil
}

// WithEmployee adds the calling employee to the context
func WithEmployee(ctx context.Context, emp *models.Employee) context.Context {
	return context.WithValue(ctx, EmployeeKey, emp)
}

// GetClientIDFromContext retrieves a portal caller's client ID
func GetClientIDFromContext(ctx context.Context) *uuid.UUID {
	if val := ctx.Value(ClientIDKey); val != nil {
		if clientID, ok := val.(*uuid.UUID); ok {
			return clientID
		}
	}
	return nil
}

// WithClientID adds a portal caller's client ID to the context
func WithClientID(ctx context.Context, clientID *uuid.UUID) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}
