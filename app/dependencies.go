package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/agency-backoffice/config"
	"github.com/upb/agency-backoffice/handlers"
	"github.com/upb/agency-backoffice/internal/observability"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/repositories/postgres"
	"github.com/upb/agency-backoffice/services/ai"
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/services/billing"
	"github.com/upb/agency-backoffice/services/chat"
	"github.com/upb/agency-backoffice/services/churn"
	"github.com/upb/agency-backoffice/services/dashboard"
	"github.com/upb/agency-backoffice/services/directory"
	"github.com/upb/agency-backoffice/services/integrations"
	"github.com/upb/agency-backoffice/services/kanban"
	"github.com/upb/agency-backoffice/services/notification"
	"github.com/upb/agency-backoffice/services/proposal"
	"github.com/upb/agency-backoffice/services/providers"
	"github.com/upb/agency-backoffice/services/providers/anthropic"
	"github.com/upb/agency-backoffice/services/providers/gemini"
	"github.com/upb/agency-backoffice/services/providers/openai"
	"github.com/upb/agency-backoffice/services/social"
	"github.com/upb/agency-backoffice/supabase"
	"go.uber.org/zap"
)

// Version is reported by the health endpoints; overridden at build time
var Version = "dev"

const (
	settingsCacheSize    = 1000
	proposalValidDays    = 30
	socialDueBatch       = 100
	externalRetryDelay   = 500 * time.Millisecond
	supabaseAdminTimeout = 10 * time.Second
)

// Dependencies is the central wiring point for the API and the job runner
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Redis   *redis.Client
	Logger  *zap.Logger
	Metrics *observability.Metrics

	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	Providers *providers.Registry
	Audit     *audit.AuditService

	// Services
	Router        *ai.Router
	Integrations  *integrations.Service
	Notifications *notification.Service
	Directory     *directory.Service
	Churn         *churn.Service
	Kanban        *kanban.Service
	Billing       *billing.Service
	Proposals     *proposal.Service
	Social        *social.Service
	Chat          *chat.Service
	Dashboard     *dashboard.Service

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	AILimiter      *middleware.RateLimiter
	Handlers       *Handlers

	ownsDB bool
}

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health        *handlers.HealthHandler
	AI            *handlers.AIHandler
	Integrations  *handlers.IntegrationsHandler
	Clients       *handlers.ClientHandler
	Directory     *handlers.DirectoryHandler
	Kanban        *handlers.KanbanHandler
	Notifications *handlers.NotificationHandler
	Proposals     *handlers.ProposalHandler
	Invoices      *handlers.InvoiceHandler
	Social        *handlers.SocialHandler
	Chat          *handlers.ChatHandler
	Dashboard     *handlers.DashboardHandler
	Audit         *handlers.AuditHandler
}

// NewDependencies opens the database and the optional Redis connection,
// then wires every service on top of them
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var cache *redis.Client
	if cfg.Redis.Enabled() {
		cache, err = integrations.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		logger.Info("redis connection established", zap.String("addr", cfg.Redis.Addr))
	}

	deps, err := NewDependenciesFromDB(cfg, factory.GetDB(), cache, logger)
	if err != nil {
		_ = factory.Close()
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}
	deps.ownsDB = true
	return deps, nil
}

// NewDependenciesFromDB wires services over connections the caller already
// opened. cache may be nil.
func NewDependenciesFromDB(cfg *config.Config, db *postgres.DB, cache *redis.Client, logger *zap.Logger) (*Dependencies, error) {
	d := &Dependencies{
		Config: cfg,
		DB:     db,
		Redis:  cache,
		Logger: logger,
	}
	if cfg.Observability.MetricsEnabled {
		d.Metrics = observability.NewMetrics("backoffice")
	}

	factory := postgres.NewRepositoryFactoryFromDB(db, logger)
	d.Repos = factory.NewRepositories()
	d.TxManager = factory.GetTransactionManager()

	registry, err := buildProviderRegistry(cfg.AI, cfg.Server.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	if registry.Len() == 0 {
		logger.Warn("no AI providers configured")
	}
	d.Providers = registry

	weights := churn.DefaultWeights()
	if cfg.Churn.WeightsFile != "" {
		weights, err = churn.LoadWeights(cfg.Churn.WeightsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load churn weights: %w", err)
		}
	}

	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, logger, audit.DefaultConfig())
	if err := d.Audit.Start(); err != nil {
		return nil, fmt.Errorf("failed to start audit service: %w", err)
	}

	d.initServices(weights)
	d.initHTTP()

	logger.Info("all dependencies initialized",
		zap.Strings("ai_providers", registry.ListProviders()),
		zap.Bool("redis", cache != nil))
	return d, nil
}

func buildProviderRegistry(cfg config.AIConfig, publicURL string) (*providers.Registry, error) {
	configs := make(map[string]providers.ProviderConfig)
	for name, p := range cfg.EnabledProviders() {
		configs[name] = providers.ProviderConfig{
			APIKey:       p.APIKey,
			BaseURL:      p.BaseURL,
			DefaultModel: p.DefaultModel,
			Timeout:      cfg.RequestTimeout,
			MaxRetries:   p.MaxRetries,
		}
	}

	return providers.NewRegistryBuilder().
		WithProviderBuilder("openrouter", func(c providers.ProviderConfig) (providers.Provider, error) {
			return openai.NewOpenRouterAdapter(c, publicURL, cfg.AppName), nil
		}).
		WithProviderBuilder("openai", func(c providers.ProviderConfig) (providers.Provider, error) {
			return openai.NewOpenAIAdapter(c), nil
		}).
		WithProviderBuilder("anthropic", func(c providers.ProviderConfig) (providers.Provider, error) {
			return anthropic.NewAdapter(c), nil
		}).
		WithProviderBuilder("gemini", func(c providers.ProviderConfig) (providers.Provider, error) {
			return gemini.NewAdapter(c), nil
		}).
		Build(configs)
}

func (d *Dependencies) initServices(weights churn.Weights) {
	cfg, logger, repos := d.Config, d.Logger, d.Repos

	var shared *integrations.RedisTier
	if d.Redis != nil {
		shared = integrations.NewRedisTier(d.Redis, cfg.AI.ConfigCacheTTL)
	}
	d.Integrations = integrations.NewService(
		repos.Integrations,
		integrations.NewSettingsCache(settingsCacheSize, cfg.AI.ConfigCacheTTL),
		shared,
		d.Audit,
		d.Metrics,
		logger,
	)

	d.Router = ai.NewRouter(d.Providers, d.Integrations, d.Audit, d.Metrics, logger, ai.Config{
		DefaultOrder:   cfg.AI.ProviderOrder,
		AttemptTimeout: cfg.AI.RequestTimeout,
	})

	msg := cfg.Messaging
	clientCfg := notification.ClientConfig{
		Timeout:    msg.DeliveryTimeout,
		MaxRetries: msg.DeliveryRetries,
		RetryDelay: externalRetryDelay,
	}
	var email, whatsapp notification.Sender
	if msg.SendGridAPIKey != "" {
		email = notification.NewSendGridSender(msg.SendGridAPIKey, msg.SendGridBaseURL, clientCfg)
	}
	if msg.WhatsAppToken != "" {
		whatsapp = notification.NewWhatsAppSender(msg.WhatsAppToken, msg.WhatsAppBaseURL, msg.WhatsAppVersion, clientCfg)
	}
	d.Notifications = notification.NewService(
		repos.Notifications,
		repos.Employees,
		d.Integrations,
		email,
		whatsapp,
		d.Metrics,
		logger,
		notification.Config{
			PublicURL:       cfg.Server.PublicURL,
			EmailFrom:       msg.EmailFrom,
			EmailFromName:   msg.EmailFromName,
			WhatsAppPhoneID: msg.WhatsAppPhoneID,
			DeliveryTimeout: msg.DeliveryTimeout,
		},
	)

	var admin directory.AuthAdmin
	if cfg.Auth.SupabaseURL != "" && cfg.Auth.ServiceRoleKey != "" {
		admin = supabase.NewAdminClient(supabase.AdminConfig{
			ProjectURL:     cfg.Auth.SupabaseURL,
			ServiceRoleKey: cfg.Auth.ServiceRoleKey,
			Timeout:        supabaseAdminTimeout,
		})
	} else {
		logger.Warn("supabase admin API not configured, invites disabled")
	}
	d.Directory = directory.NewService(d.TxManager, repos.Organizations, repos.Employees, repos.Clients, admin, d.Audit, logger,
		directory.Config{
			StaffRedirectURL:  cfg.Auth.InviteRedirect,
			PortalRedirectURL: cfg.Server.PublicURL + "/portal",
		})

	d.Churn = churn.NewService(repos.Clients, churn.NewScorer(weights), logger)

	d.Kanban = kanban.NewService(d.TxManager, repos.Boards, repos.Tasks, repos.Employees, d.Notifications, d.Audit, logger)

	var checkout billing.CheckoutProvider
	if cfg.Payments.APIKey != "" {
		checkout = billing.NewPaymentsClient(billing.PaymentsConfig{
			APIKey:     cfg.Payments.APIKey,
			BaseURL:    cfg.Payments.BaseURL,
			Timeout:    cfg.Server.ReadTimeout,
			MaxRetries: 2,
			RetryDelay: externalRetryDelay,
		})
	}
	d.Billing = billing.NewService(d.TxManager, repos.Invoices, repos.Clients, checkout, d.Notifications, d.Audit, logger,
		billing.Config{
			WebhookSecret:    cfg.Payments.WebhookSecret,
			WebhookTolerance: cfg.Payments.WebhookTolerance,
			SuccessURL:       cfg.Payments.SuccessURL,
			CancelURL:        cfg.Payments.CancelURL,
			DueDays:          cfg.Billing.InvoiceDueDays,
			Currency:         cfg.Billing.Currency,
		})

	d.Proposals = proposal.NewService(d.TxManager, repos.Proposals, repos.Clients, repos.Organizations, d.Billing, d.Router,
		d.Notifications, d.Audit, logger, proposal.Config{
			ValidDays:     proposalValidDays,
			DefaultTaxPct: cfg.Billing.DefaultTaxPct,
			Currency:      cfg.Billing.Currency,
		})

	var publisher social.Publisher
	if cfg.Social.PublishWebhookURL != "" {
		publisher = social.NewWebhookPublisher(social.WebhookConfig{
			URL:        cfg.Social.PublishWebhookURL,
			Token:      cfg.Social.PublishWebhookToken,
			Timeout:    cfg.Social.PublishTimeout,
			MaxRetries: 2,
			RetryDelay: externalRetryDelay,
		})
	}
	d.Social = social.NewService(repos.SocialPosts, repos.Clients, publisher, d.Router, d.Notifications, d.Audit, logger,
		social.Config{DueBatch: socialDueBatch})

	d.Chat = chat.NewService(repos.Conversations, repos.Clients, repos.Organizations, d.Router, logger)

	d.Dashboard = dashboard.NewService(repos.Tasks, repos.Invoices, repos.Clients, repos.SocialPosts, repos.Proposals,
		repos.Notifications, logger)
}

func (d *Dependencies) initHTTP() {
	cfg, logger := d.Config, d.Logger

	var validator middleware.TokenValidator
	if cfg.Auth.JWTSecret != "" {
		validator = supabase.NewValidator(supabase.ValidatorConfig{
			JWTSecret: cfg.Auth.JWTSecret,
			Audience:  cfg.Auth.JWTAudience,
			Issuer:    supabase.IssuerFor(cfg.Auth.SupabaseURL),
			Leeway:    30 * time.Second,
		})
	} else {
		logger.Warn("supabase JWT secret not configured, all API calls will be rejected")
		validator = rejectAllValidator{}
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Directory, logger)
	d.AILimiter = middleware.NewRateLimiter(cfg.RateLimit.AIRequestsPerSecond, cfg.RateLimit.AIBurst, logger)

	health := handlers.NewHealthHandler(d.DB.DB, d.Redis, Version, logger)

	d.Handlers = &Handlers{
		Health:        health,
		AI:            handlers.NewAIHandler(d.Router, logger),
		Integrations:  handlers.NewIntegrationsHandler(d.Integrations, logger),
		Clients:       handlers.NewClientHandler(d.Directory, d.Churn, logger),
		Directory:     handlers.NewDirectoryHandler(d.Directory, logger),
		Kanban:        handlers.NewKanbanHandler(d.Kanban, logger),
		Notifications: handlers.NewNotificationHandler(d.Notifications, logger),
		Proposals:     handlers.NewProposalHandler(d.Proposals, logger),
		Invoices:      handlers.NewInvoiceHandler(d.Billing, logger),
		Social:        handlers.NewSocialHandler(d.Social, logger),
		Chat:          handlers.NewChatHandler(d.Chat, logger),
		Dashboard:     handlers.NewDashboardHandler(d.Dashboard, d.Directory, logger),
		Audit:         handlers.NewAuditHandler(d.Audit, logger),
	}
}

// rejectAllValidator rejects every token; used when Supabase is not configured
type rejectAllValidator struct{}

func (rejectAllValidator) ValidateToken(context.Context, string) (*supabase.Principal, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close drains the audit queue and releases the connections NewDependencies opened
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.ownsDB && d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.ownsDB && d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
