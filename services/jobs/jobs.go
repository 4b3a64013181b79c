package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services/churn"
	"github.com/upb/agency-backoffice/services/social"
	"go.uber.org/zap"
)

const (
	ChurnRescore        = "churn-rescore"
	PublishDuePosts     = "publish-due-posts"
	MarkOverdueInvoices = "mark-overdue-invoices"

	orgPageSize = 100
)

// OrgLister pages through every tenant
type OrgLister interface {
	List(ctx context.Context, limit, offset int) ([]*models.Organization, error)
}

type Rescorer interface {
	RescoreAll(ctx context.Context, orgID uuid.UUID) (*churn.RescoreSummary, error)
}

type DuePublisher interface {
	PublishDue(ctx context.Context) (*social.PublishReport, error)
}

type OverdueMarker interface {
	MarkOverdue(ctx context.Context) ([]*models.Invoice, error)
}

// NewChurnRescore rescores every client of every tenant. One failing
// tenant does not stop the others; their errors are joined.
func NewChurnRescore(orgs OrgLister, scorer Rescorer, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     ChurnRescore,
		Interval: interval,
		Run: func(ctx context.Context) error {
			var errs []error
			for offset := 0; ; offset += orgPageSize {
				page, err := orgs.List(ctx, orgPageSize, offset)
				if err != nil {
					return fmt.Errorf("failed to list organizations: %w", err)
				}
				for _, org := range page {
					if err := ctx.Err(); err != nil {
						return err
					}
					summary, err := scorer.RescoreAll(ctx, org.ID)
					if err != nil {
						errs = append(errs, fmt.Errorf("org %s: %w", org.ID, err))
						continue
					}
					logRescore(logger, summary)
				}
				if len(page) < orgPageSize {
					break
				}
			}
			return errors.Join(errs...)
		},
	}
}

// NewOrgChurnRescore rescores a single tenant
func NewOrgChurnRescore(orgID uuid.UUID, scorer Rescorer, logger *zap.Logger) Job {
	return Job{
		Name: ChurnRescore,
		Run: func(ctx context.Context) error {
			summary, err := scorer.RescoreAll(ctx, orgID)
			if err != nil {
				return err
			}
			logRescore(logger, summary)
			return nil
		},
	}
}

func logRescore(logger *zap.Logger, summary *churn.RescoreSummary) {
	logger.Info("churn rescored",
		zap.String("org_id", summary.OrgID.String()),
		zap.Int("scored", summary.Scored),
		zap.Int("failed", summary.Failed),
		zap.Int("high", summary.ByRisk[models.RiskHigh]),
		zap.Int("critical", summary.ByRisk[models.RiskCritical]))
}

// NewPublishDuePosts hands scheduled posts whose time has come to the publisher
func NewPublishDuePosts(publisher DuePublisher, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     PublishDuePosts,
		Interval: interval,
		Run: func(ctx context.Context) error {
			report, err := publisher.PublishDue(ctx)
			if err != nil {
				return err
			}
			if report.Due > 0 {
				logger.Info("due posts processed",
					zap.Int("due", report.Due),
					zap.Int("published", report.Published),
					zap.Int("failed", report.Failed))
			}
			return nil
		},
	}
}

// NewMarkOverdueInvoices flips open invoices past their due date to overdue
func NewMarkOverdueInvoices(marker OverdueMarker, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     MarkOverdueInvoices,
		Interval: interval,
		Run: func(ctx context.Context) error {
			marked, err := marker.MarkOverdue(ctx)
			if err != nil {
				return err
			}
			if len(marked) > 0 {
				logger.Info("invoices marked overdue", zap.Int("count", len(marked)))
			}
			return nil
		},
	}
}
