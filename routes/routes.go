package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/agency-backoffice/app"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	h := deps.Handlers
	auth := deps.AuthMiddleware

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(chimw.Timeout(requestTimeout(deps.Config.Server.WriteTimeout)))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health.HandleHealth)
	r.Get("/readyz", h.Health.HandleReadiness)
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	// Signed by the payment processor, not by a user token
	r.Post("/webhooks/payments", h.Invoices.HandleWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Use(auth.ExtractTenant)

		r.Get("/me", h.Directory.HandleMe)

		// Staff back office
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireStaff)

			r.Get("/dashboard", h.Dashboard.HandleEmployee)

			r.Route("/organization", func(r chi.Router) {
				r.Get("/", h.Directory.HandleGetOrganization)
				r.With(auth.RequireRole(models.RoleAdmin)).Patch("/", h.Directory.HandleUpdateOrganization)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.Directory.HandleListEmployees)
				r.Get("/{id}", h.Directory.HandleGetEmployee)
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(models.RoleAdmin))
					r.Post("/", h.Directory.HandleCreateEmployee)
					r.Patch("/{id}", h.Directory.HandleUpdateEmployee)
					r.Delete("/{id}", h.Directory.HandleDeleteEmployee)
					r.Post("/{id}/invite", h.Directory.HandleInviteEmployee)
				})
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.Clients.HandleList)
				r.Post("/", h.Clients.HandleCreate)
				r.Get("/at-risk", h.Clients.HandleAtRisk)
				r.With(auth.RequireRole(models.RoleAdmin)).Post("/rescore", h.Clients.HandleRescore)
				r.Get("/{id}", h.Clients.HandleGet)
				r.Patch("/{id}", h.Clients.HandleUpdate)
				r.Delete("/{id}", h.Clients.HandleDelete)
				r.Post("/{id}/contact", h.Clients.HandleRecordContact)
				r.Post("/{id}/portal-invite", h.Clients.HandlePortalInvite)
				r.Get("/{id}/churn", h.Clients.HandleChurn)
			})

			r.Route("/boards", func(r chi.Router) {
				r.Get("/", h.Kanban.HandleListBoards)
				r.Post("/", h.Kanban.HandleCreateBoard)
				r.Get("/{id}", h.Kanban.HandleGetBoard)
				r.Post("/{id}/columns", h.Kanban.HandleAddColumn)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", h.Kanban.HandleCreateTask)
				r.Get("/{id}", h.Kanban.HandleGetTask)
				r.Patch("/{id}", h.Kanban.HandleUpdateTask)
				r.Delete("/{id}", h.Kanban.HandleDeleteTask)
				r.Post("/{id}/move", h.Kanban.HandleMoveTask)
				r.Post("/{id}/handoff", h.Kanban.HandleHandoff)
				r.Get("/{id}/comments", h.Kanban.HandleListComments)
				r.Post("/{id}/comments", h.Kanban.HandleAddComment)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notifications.HandleList)
				r.Post("/read-all", h.Notifications.HandleMarkAllRead)
				r.Post("/{id}/read", h.Notifications.HandleMarkRead)
			})

			r.Route("/proposals", func(r chi.Router) {
				r.Get("/", h.Proposals.HandleList)
				r.Post("/", h.Proposals.HandleCreate)
				r.Get("/{id}", h.Proposals.HandleGet)
				r.Patch("/{id}", h.Proposals.HandleUpdate)
				r.With(deps.AILimiter.Limit).Post("/{id}/draft", h.Proposals.HandleGenerateDraft)
				r.Post("/{id}/send", h.Proposals.HandleSend)
				r.Post("/{id}/contract", h.Proposals.HandleContract)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", h.Invoices.HandleList)
				r.Post("/", h.Invoices.HandleCreate)
				r.Get("/{id}", h.Invoices.HandleGet)
				r.Post("/{id}/void", h.Invoices.HandleVoid)
				r.Post("/{id}/checkout", h.Invoices.HandleCheckout)
			})

			r.Route("/social", func(r chi.Router) {
				r.Get("/calendar", h.Social.HandleCalendar)
				r.Post("/posts", h.Social.HandleSchedule)
				r.Get("/posts/{id}", h.Social.HandleGet)
				r.Patch("/posts/{id}", h.Social.HandleReschedule)
				r.Post("/posts/{id}/cancel", h.Social.HandleCancel)
				r.With(deps.AILimiter.Limit).Post("/caption", h.Social.HandleCaption)
			})

			r.Route("/chat/conversations", func(r chi.Router) {
				r.Get("/", h.Chat.HandleList)
				r.Post("/", h.Chat.HandleCreate)
				r.Get("/{id}", h.Chat.HandleGet)
				r.Get("/{id}/messages", h.Chat.HandleMessages)
				r.With(deps.AILimiter.Limit).Post("/{id}/messages", h.Chat.HandleSend)
			})

			r.Route("/ai", func(r chi.Router) {
				r.Get("/providers", h.AI.HandleProviders)
				r.With(deps.AILimiter.Limit).Post("/generate", h.AI.HandleGenerate)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdmin))
				r.Get("/integrations", h.Integrations.HandleGet)
				r.Put("/integrations", h.Integrations.HandleUpdate)
				r.Get("/audit/logs", h.Audit.HandleList)
			})
		})

		// Client portal
		r.Route("/portal", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleClient))

			r.Get("/dashboard", h.Dashboard.HandlePortal)
			r.Get("/proposals", h.Proposals.HandlePortalList)
			r.Get("/proposals/{id}", h.Proposals.HandlePortalGet)
			r.Post("/proposals/{id}/accept", h.Proposals.HandlePortalAccept)
			r.Post("/proposals/{id}/reject", h.Proposals.HandlePortalReject)
			r.Get("/invoices", h.Invoices.HandlePortalList)
			r.Get("/invoices/{id}", h.Invoices.HandlePortalGet)
			r.Post("/invoices/{id}/checkout", h.Invoices.HandlePortalCheckout)
			r.Get("/posts", h.Social.HandlePortalList)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}

// requestTimeout leaves a second of the server write timeout for the
// error response
func requestTimeout(write time.Duration) time.Duration {
	if write <= 2*time.Second {
		return 60 * time.Second
	}
	return write - time.Second
}
