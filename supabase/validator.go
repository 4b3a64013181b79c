package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")
)

// DefaultAudience is the audience Supabase puts on user access tokens
const DefaultAudience = "authenticated"

// ValidatorConfig configures a Validator
type ValidatorConfig struct {
	JWTSecret string
	Audience  string
	// Issuer, when set, must match the iss claim (https://<ref>.supabase.co/auth/v1)
	Issuer string
	Leeway time.Duration
}

// Validator verifies HS256 access tokens signed with the project JWT secret
type Validator struct {
	secret []byte
	parser *jwt.Parser
}

// NewValidator creates a token validator
func NewValidator(config ValidatorConfig) *Validator {
	if config.Audience == "" {
		config.Audience = DefaultAudience
	}
	if config.Leeway == 0 {
		config.Leeway = 30 * time.Second
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &Validator{
		secret: []byte(config.JWTSecret),
		parser: jwt.NewParser(opts...),
	}
}

// IssuerFor returns the token issuer of a Supabase project URL
func IssuerFor(projectURL string) string {
	if projectURL == "" {
		return ""
	}
	return strings.TrimRight(projectURL, "/") + "/auth/v1"
}

// ValidateToken validates a token and returns the caller it identifies
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*Principal, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no JWT secret configured", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	p, err := toPrincipal(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return p, nil
}

// SignToken mints an access token for p. It is used by the dev-token
// command and tests; production tokens come from Supabase Auth.
func SignToken(secret string, p Principal, issuer string, ttl time.Duration, now time.Time) (string, error) {
	meta := AppMetadata{
		OrgID:    p.OrgID.String(),
		Role:     string(p.Role),
		Provider: "email",
	}
	if p.ClientID != nil {
		meta.ClientID = p.ClientID.String()
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{DefaultAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:       p.Email,
		Role:        "authenticated",
		SessionID:   p.SessionID,
		AppMetadata: meta,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
