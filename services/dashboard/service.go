package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	staffPostWindow  = 7 * 24 * time.Hour
	portalPostWindow = 30 * 24 * time.Hour
)

// AtRiskLevels are the churn levels counted as at risk
var AtRiskLevels = []models.RiskLevel{models.RiskHigh, models.RiskCritical}

// Summary is the employee dashboard
type Summary struct {
	OpenTasks           []repositories.ColumnTaskCount `json:"open_tasks"`
	OpenTaskTotal       int                            `json:"open_task_total"`
	OverdueInvoices     int                            `json:"overdue_invoices"`
	OverdueTotalCents   int64                          `json:"overdue_total_cents"`
	AtRiskClients       int                            `json:"at_risk_clients"`
	ScheduledPosts      int                            `json:"scheduled_posts_next_7_days"`
	UnreadNotifications int                            `json:"unread_notifications"`
	GeneratedAt         time.Time                      `json:"generated_at"`
}

// PortalSummary is the client portal dashboard
type PortalSummary struct {
	OpenInvoices     []*models.Invoice    `json:"open_invoices"`
	AmountDueCents   int64                `json:"amount_due_cents"`
	PendingProposals []*models.Proposal   `json:"pending_proposals"`
	UpcomingPosts    []*models.SocialPost `json:"upcoming_posts"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// Service assembles dashboards from several repositories concurrently
type Service struct {
	tasks         repositories.TaskRepository
	invoices      repositories.InvoiceRepository
	clients       repositories.ClientRepository
	posts         repositories.SocialPostRepository
	proposals     repositories.ProposalRepository
	notifications repositories.NotificationRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NewService creates a dashboard service
func NewService(
	tasks repositories.TaskRepository,
	invoices repositories.InvoiceRepository,
	clients repositories.ClientRepository,
	posts repositories.SocialPostRepository,
	proposals repositories.ProposalRepository,
	notifications repositories.NotificationRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		tasks:         tasks,
		invoices:      invoices,
		clients:       clients,
		posts:         posts,
		proposals:     proposals,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// ForEmployee builds the staff dashboard. Any failed query fails the call.
func (s *Service) ForEmployee(ctx context.Context, orgID, employeeID uuid.UUID) (*Summary, error) {
	now := s.now().UTC()
	out := &Summary{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.tasks.CountOpenByColumn(gctx, orgID, employeeID)
		if err != nil {
			return err
		}
		out.OpenTasks = counts
		for _, c := range counts {
			out.OpenTaskTotal += c.Count
		}
		return nil
	})
	g.Go(func() error {
		summary, err := s.invoices.Summary(gctx, orgID, models.InvoiceOverdue)
		if err != nil {
			return err
		}
		out.OverdueInvoices = summary.Count
		out.OverdueTotalCents = summary.TotalCents
		return nil
	})
	g.Go(func() error {
		n, err := s.clients.CountAtRisk(gctx, orgID, AtRiskLevels)
		out.AtRiskClients = n
		return err
	})
	g.Go(func() error {
		n, err := s.posts.CountScheduled(gctx, orgID, now, now.Add(staffPostWindow))
		out.ScheduledPosts = n
		return err
	})
	g.Go(func() error {
		n, err := s.notifications.UnreadCount(gctx, orgID, employeeID)
		out.UnreadNotifications = n
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to build dashboard",
			zap.String("org_id", orgID.String()),
			zap.String("employee_id", employeeID.String()),
			zap.Error(err),
		)
		return nil, services.WrapInternal("failed to build dashboard", err)
	}
	if out.OpenTasks == nil {
		out.OpenTasks = []repositories.ColumnTaskCount{}
	}
	return out, nil
}

// ForClient builds the portal dashboard of one client
func (s *Service) ForClient(ctx context.Context, orgID, clientID uuid.UUID) (*PortalSummary, error) {
	now := s.now().UTC()
	out := &PortalSummary{
		OpenInvoices:     []*models.Invoice{},
		PendingProposals: []*models.Proposal{},
		UpcomingPosts:    []*models.SocialPost{},
		GeneratedAt:      now,
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		invoices, err := s.invoices.List(gctx, orgID, repositories.InvoiceFilter{
			ClientID: &clientID,
			Statuses: []models.InvoiceStatus{models.InvoiceOpen, models.InvoiceOverdue},
		})
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			out.AmountDueCents += inv.AmountCents
		}
		if invoices != nil {
			out.OpenInvoices = invoices
		}
		return nil
	})
	g.Go(func() error {
		sent := models.ProposalSent
		proposals, err := s.proposals.List(gctx, orgID, repositories.ProposalFilter{ClientID: &clientID, Status: &sent})
		if err != nil {
			return err
		}
		for _, p := range proposals {
			if !p.IsExpiredAt(now) {
				out.PendingProposals = append(out.PendingProposals, p)
			}
		}
		return nil
	})
	g.Go(func() error {
		posts, err := s.posts.ListRange(gctx, orgID, repositories.PostFilter{
			ClientID: &clientID,
			Statuses: []models.PostStatus{models.PostScheduled},
			From:     now,
			To:       now.Add(portalPostWindow),
		})
		if err != nil {
			return err
		}
		if posts != nil {
			out.UpcomingPosts = posts
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to build portal dashboard",
			zap.String("org_id", orgID.String()),
			zap.String("client_id", clientID.String()),
			zap.Error(err),
		)
		return nil, services.WrapInternal("failed to build portal dashboard", err)
	}
	return out, nil
}
