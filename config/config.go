package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	AI            AIConfig
	Messaging     MessagingConfig
	Payments      PaymentsConfig
	Social        SocialConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	Churn         ChurnConfig
	Billing       BillingConfig
	Jobs          JobsConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	PublicURL       string // used for portal links in notifications
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	AutoMigrate      bool
}

// AuthConfig holds Supabase Auth configuration
type AuthConfig struct {
	SupabaseURL    string
	AnonKey        string
	ServiceRoleKey string
	JWTSecret      string
	JWTAudience    string
	InviteRedirect string
}

// AIConfig holds LLM provider configuration for the fallback router
type AIConfig struct {
	ProviderOrder  []string
	RequestTimeout time.Duration
	ConfigCacheTTL time.Duration
	OpenRouter     ProviderConfig
	OpenAI         ProviderConfig
	Anthropic      ProviderConfig
	Gemini         ProviderConfig
	AppName        string // sent to OpenRouter as X-Title
}

// ProviderConfig holds a single LLM provider's settings
type ProviderConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
}

// Enabled reports whether the provider has credentials
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

// MessagingConfig holds outbound notification channel configuration
type MessagingConfig struct {
	SendGridAPIKey  string
	SendGridBaseURL string
	EmailFrom       string
	EmailFromName   string
	WhatsAppToken   string
	WhatsAppPhoneID string
	WhatsAppBaseURL string
	WhatsAppVersion string
	DeliveryRetries int
	DeliveryTimeout time.Duration
}

// PaymentsConfig holds payment processor configuration
type PaymentsConfig struct {
	APIKey           string
	BaseURL          string
	WebhookSecret    string
	WebhookTolerance time.Duration
	SuccessURL       string
	CancelURL        string
}

// SocialConfig holds social publishing configuration
type SocialConfig struct {
	PublishWebhookURL   string
	PublishWebhookToken string
	PublishTimeout      time.Duration
}

// RedisConfig holds the optional shared cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// RateLimitConfig holds per-user limits for AI endpoints
type RateLimitConfig struct {
	AIRequestsPerSecond float64
	AIBurst             int
}

// ChurnConfig holds churn scorer settings
type ChurnConfig struct {
	WeightsFile string
}

// BillingConfig holds invoicing defaults
type BillingConfig struct {
	InvoiceDueDays int
	DefaultTaxPct  float64
	Currency       string
}

// JobsConfig holds intervals for the background job loop
type JobsConfig struct {
	ChurnInterval   time.Duration
	PublishInterval time.Duration
	OverdueInterval time.Duration
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
			PublicURL:       getEnv("PUBLIC_APP_URL", "http://localhost:3000"),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			SupabaseURL:    strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			AnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			JWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
			JWTAudience:    getEnv("SUPABASE_JWT_AUDIENCE", "authenticated"),
			InviteRedirect: getEnv("SUPABASE_INVITE_REDIRECT_URL", ""),
		},
		AI: AIConfig{
			ProviderOrder:  getEnvAsList("AI_PROVIDER_ORDER", []string{"openrouter", "anthropic", "openai", "gemini"}),
			RequestTimeout: getEnvAsDuration("AI_REQUEST_TIMEOUT", 45*time.Second),
			ConfigCacheTTL: getEnvAsDuration("AI_CONFIG_CACHE_TTL", 60*time.Second),
			AppName:        getEnv("AI_APP_NAME", "Agency Backoffice"),
			OpenRouter: ProviderConfig{
				APIKey:       getEnv("OPENROUTER_API_KEY", ""),
				BaseURL:      getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
				DefaultModel: getEnv("OPENROUTER_MODEL", "openrouter/auto"),
				MaxRetries:   getEnvAsInt("OPENROUTER_MAX_RETRIES", 0),
			},
			OpenAI: ProviderConfig{
				APIKey:       getEnv("OPENAI_API_KEY", ""),
				BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				DefaultModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),
				MaxRetries:   getEnvAsInt("OPENAI_MAX_RETRIES", 0),
			},
			Anthropic: ProviderConfig{
				APIKey:       getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL:      getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				DefaultModel: getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
				MaxRetries:   getEnvAsInt("ANTHROPIC_MAX_RETRIES", 0),
			},
			Gemini: ProviderConfig{
				APIKey:       getEnv("GEMINI_API_KEY", ""),
				BaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
				DefaultModel: getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
				MaxRetries:   getEnvAsInt("GEMINI_MAX_RETRIES", 0),
			},
		},
		Messaging: MessagingConfig{
			SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
			SendGridBaseURL: getEnv("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
			EmailFrom:       getEnv("EMAIL_FROM", "no-reply@agency.local"),
			EmailFromName:   getEnv("EMAIL_FROM_NAME", "Agency"),
			WhatsAppToken:   getEnv("WHATSAPP_TOKEN", ""),
			WhatsAppPhoneID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			WhatsAppBaseURL: getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			WhatsAppVersion: getEnv("WHATSAPP_API_VERSION", "v19.0"),
			DeliveryRetries: getEnvAsInt("NOTIFY_DELIVERY_RETRIES", 2),
			DeliveryTimeout: getEnvAsDuration("NOTIFY_DELIVERY_TIMEOUT", 10*time.Second),
		},
		Payments: PaymentsConfig{
			APIKey:           getEnv("PAYMENTS_API_KEY", ""),
			BaseURL:          getEnv("PAYMENTS_BASE_URL", "https://api.stripe.com"),
			WebhookSecret:    getEnv("PAYMENTS_WEBHOOK_SECRET", ""),
			WebhookTolerance: getEnvAsDuration("PAYMENTS_WEBHOOK_TOLERANCE", 5*time.Minute),
			SuccessURL:       getEnv("PAYMENTS_SUCCESS_URL", "http://localhost:3000/portal/invoices?paid=1"),
			CancelURL:        getEnv("PAYMENTS_CANCEL_URL", "http://localhost:3000/portal/invoices"),
		},
		Social: SocialConfig{
			PublishWebhookURL:   getEnv("SOCIAL_PUBLISH_WEBHOOK_URL", ""),
			PublishWebhookToken: getEnv("SOCIAL_PUBLISH_WEBHOOK_TOKEN", ""),
			PublishTimeout:      getEnvAsDuration("SOCIAL_PUBLISH_TIMEOUT", 20*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			AIRequestsPerSecond: getEnvAsFloat("AI_RATE_LIMIT_RPS", 1),
			AIBurst:             getEnvAsInt("AI_RATE_LIMIT_BURST", 5),
		},
		Churn: ChurnConfig{
			WeightsFile: getEnv("CHURN_WEIGHTS_FILE", ""),
		},
		Billing: BillingConfig{
			InvoiceDueDays: getEnvAsInt("INVOICE_DUE_DAYS", 14),
			DefaultTaxPct:  getEnvAsFloat("DEFAULT_TAX_PCT", 0),
			Currency:       strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		},
		Jobs: JobsConfig{
			ChurnInterval:   getEnvAsDuration("JOB_CHURN_INTERVAL", 24*time.Hour),
			PublishInterval: getEnvAsDuration("JOB_PUBLISH_INTERVAL", time.Minute),
			OverdueInterval: getEnvAsDuration("JOB_OVERDUE_INTERVAL", time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required in production")
		}
		if len(c.AI.EnabledProviders()) == 0 {
			return fmt.Errorf("at least one AI provider must be configured in production")
		}
		if c.Payments.APIKey != "" && c.Payments.WebhookSecret == "" {
			return fmt.Errorf("PAYMENTS_WEBHOOK_SECRET is required when payments are enabled")
		}
	}

	if c.Billing.InvoiceDueDays <= 0 {
		return fmt.Errorf("INVOICE_DUE_DAYS must be positive")
	}
	if c.Billing.DefaultTaxPct < 0 || c.Billing.DefaultTaxPct > 100 {
		return fmt.Errorf("DEFAULT_TAX_PCT must be between 0 and 100")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// EnabledProviders returns the names of providers that have credentials, keyed as the router expects
func (a AIConfig) EnabledProviders() map[string]ProviderConfig {
	out := make(map[string]ProviderConfig)
	for name, p := range map[string]ProviderConfig{
		"openrouter": a.OpenRouter,
		"openai":     a.OpenAI,
		"anthropic":  a.Anthropic,
		"gemini":     a.Gemini,
	} {
		if p.Enabled() {
			out[name] = p
		}
	}
	return out
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// MigrationURL returns a postgres:// URL suitable for golang-migrate
func (c *DatabaseConfig) MigrationURL() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

func loadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		ConnectionString: getEnv("DATABASE_URL", ""),
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		AutoMigrate:      getEnvAsBool("DB_AUTO_MIGRATE", false),
	}
	if cfg.ConnectionString != "" {
		return cfg
	}
	cfg.Host = getEnv("DB_HOST", "localhost")
	cfg.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.User = getEnv("DB_USER", "postgres")
	cfg.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database = getEnv("DB_NAME", "backoffice")
	cfg.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
