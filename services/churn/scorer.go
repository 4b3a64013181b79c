package churn

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
)

// Factor codes, in rule order
const (
	FactorNoContact           = "no_contact"
	FactorStaleContact        = "stale_contact"
	FactorNeverLoggedIn       = "never_logged_in"
	FactorStaleLogin          = "stale_login"
	FactorOverdueInvoices     = "overdue_invoices"
	FactorLowSatisfaction     = "low_satisfaction"
	FactorUnknownSatisfaction = "unknown_satisfaction"
	FactorContractExpired     = "contract_expired"
	FactorContractEnding      = "contract_ending"
	FactorContractUnknown     = "contract_unknown"
	FactorEngagementDrop      = "engagement_drop"
	FactorNoEngagement        = "no_engagement"
	FactorNewClient           = "new_client"
)

// MaxScore caps the sum of all factors
const MaxScore = 100

// Factor is one rule that added points to a score
type Factor struct {
	Code   string `json:"code"`
	Points int    `json:"points"`
	Detail string `json:"detail"`
}

// Score is the outcome of scoring one client
type Score struct {
	ClientID    uuid.UUID        `json:"client_id"`
	Score       int              `json:"score"`
	Probability float64          `json:"probability"`
	Risk        models.RiskLevel `json:"risk"`
	Factors     []Factor         `json:"factors"`
	ScoredAt    time.Time        `json:"scored_at"`
}

// Scorer applies the rule table to client activity. It holds no state
// besides its weights and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Weights returns the rule table in use
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score evaluates every rule in order and sums the points
func (s *Scorer) Score(a *models.ClientActivity) *Score {
	var factors []Factor
	add := func(code string, points int, format string, args ...interface{}) {
		if points <= 0 {
			return
		}
		factors = append(factors, Factor{Code: code, Points: points, Detail: fmt.Sprintf(format, args...)})
	}

	w := s.weights

	switch {
	case a.DaysSinceLastContact == nil:
		add(FactorNoContact, w.Contact.UnknownPoints, "client has never been contacted")
	case *a.DaysSinceLastContact > w.Contact.StaleDays:
		add(FactorStaleContact, w.Contact.StalePoints, "last contact %d days ago", *a.DaysSinceLastContact)
	case *a.DaysSinceLastContact > w.Contact.WarnDays:
		add(FactorStaleContact, w.Contact.WarnPoints, "last contact %d days ago", *a.DaysSinceLastContact)
	}

	switch {
	case a.DaysSinceLastLogin == nil:
		add(FactorNeverLoggedIn, w.Login.UnknownPoints, "client never logged into the portal")
	case *a.DaysSinceLastLogin > w.Login.StaleDays:
		add(FactorStaleLogin, w.Login.StalePoints, "last portal login %d days ago", *a.DaysSinceLastLogin)
	case *a.DaysSinceLastLogin > w.Login.WarnDays:
		add(FactorStaleLogin, w.Login.WarnPoints, "last portal login %d days ago", *a.DaysSinceLastLogin)
	}

	if a.OverdueInvoices > 0 {
		points := a.OverdueInvoices * w.Overdue.PerInvoice
		if points > w.Overdue.Cap {
			points = w.Overdue.Cap
		}
		add(FactorOverdueInvoices, points, "%d overdue invoice(s)", a.OverdueInvoices)
	}

	switch {
	case a.SatisfactionScore == nil:
		add(FactorUnknownSatisfaction, w.Satisfaction.UnknownPoints, "no satisfaction rating")
	case *a.SatisfactionScore < w.Satisfaction.PoorBelow:
		add(FactorLowSatisfaction, w.Satisfaction.PoorPoints, "satisfaction %.1f/5", *a.SatisfactionScore)
	case *a.SatisfactionScore < w.Satisfaction.FairBelow:
		add(FactorLowSatisfaction, w.Satisfaction.FairPoints, "satisfaction %.1f/5", *a.SatisfactionScore)
	}

	switch {
	case a.ContractDaysRemaining == nil:
		add(FactorContractUnknown, w.Contract.UnknownPoints, "no contract end date")
	case *a.ContractDaysRemaining <= 0:
		add(FactorContractExpired, w.Contract.ExpiredPoints, "contract expired %d days ago", -*a.ContractDaysRemaining)
	case *a.ContractDaysRemaining <= w.Contract.EndingDays:
		add(FactorContractEnding, w.Contract.EndingPoints, "contract ends in %d days", *a.ContractDaysRemaining)
	case *a.ContractDaysRemaining <= w.Contract.UpcomingDays:
		add(FactorContractEnding, w.Contract.UpcomingPoints, "contract ends in %d days", *a.ContractDaysRemaining)
	}

	if a.ActivityPrev30 > 0 {
		drop := float64(a.ActivityPrev30-a.ActivityLast30) * 100 / float64(a.ActivityPrev30)
		switch {
		case drop >= w.Engagement.SharpDropPct:
			add(FactorEngagementDrop, w.Engagement.SharpDropPoints, "activity down %.0f%% over 30 days", drop)
		case drop >= w.Engagement.DropPct:
			add(FactorEngagementDrop, w.Engagement.DropPoints, "activity down %.0f%% over 30 days", drop)
		}
	} else if a.ActivityLast30 == 0 {
		add(FactorNoEngagement, w.Engagement.InactivePoints, "no activity in 60 days")
	}

	if a.TenureMonths < w.Tenure.NewMonths {
		add(FactorNewClient, w.Tenure.NewPoints, "client for %d month(s)", a.TenureMonths)
	}

	total := 0
	for _, f := range factors {
		total += f.Points
	}
	if total > MaxScore {
		total = MaxScore
	}
	if factors == nil {
		factors = []Factor{}
	}

	return &Score{
		ClientID:    a.ClientID,
		Score:       total,
		Probability: float64(total) / MaxScore,
		Risk:        RiskFor(total),
		Factors:     factors,
		ScoredAt:    time.Now().UTC(),
	}
}

// RiskFor buckets a score
func RiskFor(score int) models.RiskLevel {
	switch {
	case score >= 70:
		return models.RiskCritical
	case score >= 50:
		return models.RiskHigh
	case score >= 30:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
