package churn

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights holds the points and thresholds of every churn rule.
// A YAML file only needs to list the values it changes.
type Weights struct {
	Contact      RecencyRule      `yaml:"last_contact"`
	Login        RecencyRule      `yaml:"last_login"`
	Overdue      OverdueRule      `yaml:"overdue_invoices"`
	Satisfaction SatisfactionRule `yaml:"satisfaction"`
	Contract     ContractRule     `yaml:"contract"`
	Engagement   EngagementRule   `yaml:"engagement"`
	Tenure       TenureRule       `yaml:"tenure"`
}

// RecencyRule scores how long ago something last happened
type RecencyRule struct {
	StaleDays     int `yaml:"stale_days"`
	StalePoints   int `yaml:"stale_points"`
	WarnDays      int `yaml:"warn_days"`
	WarnPoints    int `yaml:"warn_points"`
	UnknownPoints int `yaml:"unknown_points"`
}

// OverdueRule scores unpaid overdue invoices
type OverdueRule struct {
	PerInvoice int `yaml:"per_invoice"`
	Cap        int `yaml:"cap"`
}

// SatisfactionRule scores the 1-5 satisfaction rating
type SatisfactionRule struct {
	PoorBelow     float64 `yaml:"poor_below"`
	PoorPoints    int     `yaml:"poor_points"`
	FairBelow     float64 `yaml:"fair_below"`
	FairPoints    int     `yaml:"fair_points"`
	UnknownPoints int     `yaml:"unknown_points"`
}

// ContractRule scores days left on the contract
type ContractRule struct {
	ExpiredPoints  int `yaml:"expired_points"`
	EndingDays     int `yaml:"ending_days"`
	EndingPoints   int `yaml:"ending_points"`
	UpcomingDays   int `yaml:"upcoming_days"`
	UpcomingPoints int `yaml:"upcoming_points"`
	UnknownPoints  int `yaml:"unknown_points"`
}

// EngagementRule compares activity of the last 30 days with the 30 before
type EngagementRule struct {
	SharpDropPct    float64 `yaml:"sharp_drop_pct"`
	SharpDropPoints int     `yaml:"sharp_drop_points"`
	DropPct         float64 `yaml:"drop_pct"`
	DropPoints      int     `yaml:"drop_points"`
	InactivePoints  int     `yaml:"inactive_points"`
}

// TenureRule scores recently signed clients
type TenureRule struct {
	NewMonths int `yaml:"new_months"`
	NewPoints int `yaml:"new_points"`
}

// DefaultWeights returns the built-in rule table
func DefaultWeights() Weights {
	return Weights{
		Contact: RecencyRule{
			StaleDays:     30,
			StalePoints:   20,
			WarnDays:      14,
			WarnPoints:    10,
			UnknownPoints: 20,
		},
		Login: RecencyRule{
			StaleDays:     30,
			StalePoints:   15,
			WarnDays:      14,
			WarnPoints:    7,
			UnknownPoints: 10,
		},
		Overdue: OverdueRule{
			PerInvoice: 10,
			Cap:        25,
		},
		Satisfaction: SatisfactionRule{
			PoorBelow:     3,
			PoorPoints:    20,
			FairBelow:     4,
			FairPoints:    10,
			UnknownPoints: 5,
		},
		Contract: ContractRule{
			ExpiredPoints:  20,
			EndingDays:     30,
			EndingPoints:   15,
			UpcomingDays:   60,
			UpcomingPoints: 8,
		},
		Engagement: EngagementRule{
			SharpDropPct:    50,
			SharpDropPoints: 15,
			DropPct:         20,
			DropPoints:      8,
			InactivePoints:  10,
		},
		Tenure: TenureRule{
			NewMonths: 3,
			NewPoints: 5,
		},
	}
}

// LoadWeights reads a YAML override file on top of the defaults.
// An empty path returns the defaults.
func LoadWeights(path string) (Weights, error) {
	weights := DefaultWeights()
	if path == "" {
		return weights, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("failed to read churn weights: %w", err)
	}
	return ParseWeights(data)
}

// ParseWeights decodes YAML overrides on top of the defaults
func ParseWeights(data []byte) (Weights, error) {
	weights := DefaultWeights()
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return Weights{}, fmt.Errorf("failed to parse churn weights: %w", err)
	}
	if err := weights.Validate(); err != nil {
		return Weights{}, err
	}
	return weights, nil
}

// Validate checks that thresholds are ordered and no rule awards negative points
func (w Weights) Validate() error {
	points := []struct {
		name  string
		value int
	}{
		{"last_contact.stale_points", w.Contact.StalePoints},
		{"last_contact.warn_points", w.Contact.WarnPoints},
		{"last_contact.unknown_points", w.Contact.UnknownPoints},
		{"last_login.stale_points", w.Login.StalePoints},
		{"last_login.warn_points", w.Login.WarnPoints},
		{"last_login.unknown_points", w.Login.UnknownPoints},
		{"overdue_invoices.per_invoice", w.Overdue.PerInvoice},
		{"overdue_invoices.cap", w.Overdue.Cap},
		{"satisfaction.poor_points", w.Satisfaction.PoorPoints},
		{"satisfaction.fair_points", w.Satisfaction.FairPoints},
		{"satisfaction.unknown_points", w.Satisfaction.UnknownPoints},
		{"contract.expired_points", w.Contract.ExpiredPoints},
		{"contract.ending_points", w.Contract.EndingPoints},
		{"contract.upcoming_points", w.Contract.UpcomingPoints},
		{"contract.unknown_points", w.Contract.UnknownPoints},
		{"engagement.sharp_drop_points", w.Engagement.SharpDropPoints},
		{"engagement.drop_points", w.Engagement.DropPoints},
		{"engagement.inactive_points", w.Engagement.InactivePoints},
		{"tenure.new_points", w.Tenure.NewPoints},
	}
	for _, p := range points {
		if p.value < 0 {
			return fmt.Errorf("churn weight %s must not be negative", p.name)
		}
	}

	if w.Contact.WarnDays >= w.Contact.StaleDays {
		return fmt.Errorf("last_contact.warn_days must be below stale_days")
	}
	if w.Login.WarnDays >= w.Login.StaleDays {
		return fmt.Errorf("last_login.warn_days must be below stale_days")
	}
	if w.Satisfaction.PoorBelow > w.Satisfaction.FairBelow {
		return fmt.Errorf("satisfaction.poor_below must not exceed fair_below")
	}
	if w.Contract.EndingDays > w.Contract.UpcomingDays {
		return fmt.Errorf("contract.ending_days must not exceed upcoming_days")
	}
	if w.Engagement.DropPct > w.Engagement.SharpDropPct {
		return fmt.Errorf("engagement.drop_pct must not exceed sharp_drop_pct")
	}
	return nil
}
