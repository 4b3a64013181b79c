package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/supabase"
)

type devTokenOptions struct {
	OrgID    string
	UserID   string
	ClientID string
	Email    string
	Role     string
	TTL      time.Duration
}

func devTokenCmd() *cobra.Command {
	opts := &devTokenOptions{}
	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Sign a local access token with the Supabase JWT secret",
		Long: `Sign an access token the API accepts, for local development only.

Staff tokens must carry the auth user ID linked to an employee row.

Examples:
  TOKEN=$(backoffice dev-token --org=$ORG --user=$AUTH_USER --role=admin)
  backoffice dev-token --org=$ORG --role=client --client=$CLIENT --email=compras@andino.co
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("dev-token is disabled in production")
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("SUPABASE_JWT_SECRET is not set")
			}
			token, err := signDevToken(cfg.Auth.JWTSecret, supabase.IssuerFor(cfg.Auth.SupabaseURL), *opts, time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.OrgID, "org", "", "Organization ID (required)")
	_ = cmd.MarkFlagRequired("org")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "Auth user ID (random when empty)")
	cmd.Flags().StringVar(&opts.ClientID, "client", "", "Client ID, required for --role=client")
	cmd.Flags().StringVar(&opts.Email, "email", "dev@localhost", "Email claim")
	cmd.Flags().StringVar(&opts.Role, "role", string(models.RoleAdmin), "admin, employee or client")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "Token lifetime")

	return cmd
}

func signDevToken(secret, issuer string, opts devTokenOptions, now time.Time) (string, error) {
	orgID, err := uuid.Parse(opts.OrgID)
	if err != nil {
		return "", invalidFlag("org", err)
	}
	role := models.Role(opts.Role)
	if !role.Valid() {
		return "", fmt.Errorf("invalid --role %q", opts.Role)
	}
	if opts.TTL <= 0 {
		return "", fmt.Errorf("--ttl must be positive")
	}

	p := supabase.Principal{
		UserID: uuid.New(),
		Email:  opts.Email,
		OrgID:  orgID,
		Role:   role,
	}
	if opts.UserID != "" {
		if p.UserID, err = uuid.Parse(opts.UserID); err != nil {
			return "", invalidFlag("user", err)
		}
	}
	if role == models.RoleClient {
		if opts.ClientID == "" {
			return "", fmt.Errorf("--client is required for client tokens")
		}
		clientID, err := uuid.Parse(opts.ClientID)
		if err != nil {
			return "", invalidFlag("client", err)
		}
		p.ClientID = &clientID
	}

	return supabase.SignToken(secret, p, issuer, opts.TTL, now)
}

func invalidFlag(name string, err error) error {
	return fmt.Errorf("invalid --%s: %w", name, err)
}
