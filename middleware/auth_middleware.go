package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/supabase"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating access tokens
type TokenValidator interface {
	// ValidateToken validates a token and returns the caller it identifies
	ValidateToken(ctx context.Context, token string) (*supabase.Principal, error)
}

// EmployeeResolver maps a staff caller to their employee record
type EmployeeResolver interface {
	ResolveEmployee(ctx context.Context, orgID, authUserID uuid.UUID) (*models.Employee, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	employees EmployeeResolver
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, employees EmployeeResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		employees: employees,
		logger:    logger,
	}
}

// accessTokenCookieName is the cookie the Supabase auth helpers set.
// The Authorization header takes precedence.
const accessTokenCookieName = "sb-access-token"

// RequireAuth is a middleware that requires a valid access token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		principal, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			if errors.Is(err, supabase.ErrTokenExpired) {
				_ = utils.WriteUnauthorized(w, "Token expired")
				return
			}
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithPrincipal(ctx, principal)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", principal.UserID.String()),
			zap.String("role", string(principal.Role)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractTenant puts the caller's organization into the context and, for
// staff, the employee record behind the token. Portal callers get their
// client ID instead. This should be called after RequireAuth.
func (m *AuthMiddleware) ExtractTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		principal := GetPrincipalFromContext(ctx)
		if principal == nil {
			m.logger.Error("principal not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		if principal.OrgID == uuid.Nil {
			_ = utils.WriteForbidden(w, "Invalid organization ID")
			return
		}
		ctx = WithOrgID(ctx, principal.OrgID)

		switch {
		case principal.Role == models.RoleClient:
			if principal.ClientID == nil {
				_ = utils.WriteForbidden(w, "Portal account is not linked to a client")
				return
			}
			ctx = WithClientID(ctx, principal.ClientID)

		case principal.IsStaff():
			emp, err := m.employees.ResolveEmployee(ctx, principal.OrgID, principal.UserID)
			if err != nil {
				m.logger.Warn("failed to resolve employee",
					zap.String("request_id", requestID),
					zap.String("sub", principal.UserID.String()),
					zap.Error(err))
				if services.IsNotFoundError(err) || services.IsForbiddenError(err) {
					_ = utils.WriteForbidden(w, "No employee profile for this account")
					return
				}
				_ = utils.WriteInternalServerError(w, "Failed to resolve employee")
				return
			}
			ctx = WithEmployee(ctx, emp)

		default:
			_ = utils.WriteForbidden(w, "Unknown role")
			return
		}

		m.logger.Debug("tenant information extracted",
			zap.String("request_id", requestID),
			zap.String("org_id", principal.OrgID.String()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole is a middleware that requires one of the given roles
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			principal := GetPrincipalFromContext(ctx)
			if principal == nil {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !principal.HasAnyRole(roles...) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("role", string(principal.Role)))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff admits admins and employees
func (m *AuthMiddleware) RequireStaff(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleAdmin, models.RoleEmployee)(next)
}

// extractToken extracts the access token from the Authorization header
// ("Bearer TOKEN") or the sb-access-token cookie
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(accessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
