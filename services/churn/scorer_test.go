package churn

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/upb/agency-backoffice/models"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func codes(factors []Factor) []string {
	out := make([]string, len(factors))
	for i, f := range factors {
		out[i] = f.Code
	}
	return out
}

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	tests := []struct {
		name      string
		activity  models.ClientActivity
		wantScore int
		wantRisk  models.RiskLevel
		wantCodes []string
	}{
		{
			name: "healthy client",
			activity: models.ClientActivity{
				DaysSinceLastContact:  intp(3),
				DaysSinceLastLogin:    intp(2),
				SatisfactionScore:     floatp(4.5),
				ContractDaysRemaining: intp(200),
				ActivityLast30:        12,
				ActivityPrev30:        10,
				TenureMonths:          24,
			},
			wantScore: 0,
			wantRisk:  models.RiskLow,
			wantCodes: []string{},
		},
		{
			name:      "nothing known about a new client",
			activity:  models.ClientActivity{},
			wantScore: 50,
			wantRisk:  models.RiskHigh,
			wantCodes: []string{FactorNoContact, FactorNeverLoggedIn, FactorUnknownSatisfaction, FactorNoEngagement, FactorNewClient},
		},
		{
			name: "values on the thresholds",
			activity: models.ClientActivity{
				DaysSinceLastContact:  intp(30),
				DaysSinceLastLogin:    intp(14),
				OverdueInvoices:       1,
				SatisfactionScore:     floatp(3),
				ContractDaysRemaining: intp(30),
				ActivityLast30:        8,
				ActivityPrev30:        10,
				TenureMonths:          3,
			},
			wantScore: 53,
			wantRisk:  models.RiskHigh,
			wantCodes: []string{FactorStaleContact, FactorOverdueInvoices, FactorLowSatisfaction, FactorContractEnding, FactorEngagementDrop},
		},
		{
			name: "moderate drift",
			activity: models.ClientActivity{
				DaysSinceLastContact:  intp(20),
				DaysSinceLastLogin:    intp(20),
				SatisfactionScore:     floatp(3.5),
				ContractDaysRemaining: intp(45),
				ActivityLast30:        5,
				TenureMonths:          12,
			},
			wantScore: 35,
			wantRisk:  models.RiskMedium,
			wantCodes: []string{FactorStaleContact, FactorStaleLogin, FactorLowSatisfaction, FactorContractEnding},
		},
		{
			name: "score is capped",
			activity: models.ClientActivity{
				DaysSinceLastContact:  intp(45),
				DaysSinceLastLogin:    intp(60),
				OverdueInvoices:       4,
				SatisfactionScore:     floatp(2),
				ContractDaysRemaining: intp(-5),
				ActivityLast30:        2,
				ActivityPrev30:        10,
				TenureMonths:          1,
			},
			wantScore: 100,
			wantRisk:  models.RiskCritical,
			wantCodes: []string{
				FactorStaleContact, FactorStaleLogin, FactorOverdueInvoices, FactorLowSatisfaction,
				FactorContractExpired, FactorEngagementDrop, FactorNewClient,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activity := tt.activity
			activity.ClientID = uuid.New()

			got := scorer.Score(&activity)
			assert.Equal(t, activity.ClientID, got.ClientID)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantRisk, got.Risk)
			assert.InDelta(t, float64(tt.wantScore)/100, got.Probability, 1e-9)
			assert.Equal(t, tt.wantCodes, codes(got.Factors))
		})
	}
}

func TestScorer_FactorPoints(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	got := scorer.Score(&models.ClientActivity{
		DaysSinceLastContact:  intp(45),
		DaysSinceLastLogin:    intp(1),
		OverdueInvoices:       4,
		SatisfactionScore:     floatp(5),
		ContractDaysRemaining: intp(-5),
		ActivityLast30:        2,
		ActivityPrev30:        10,
		TenureMonths:          12,
	})

	assert.Equal(t, []Factor{
		{Code: FactorStaleContact, Points: 20, Detail: "last contact 45 days ago"},
		{Code: FactorOverdueInvoices, Points: 25, Detail: "4 overdue invoice(s)"},
		{Code: FactorContractExpired, Points: 20, Detail: "contract expired 5 days ago"},
		{Code: FactorEngagementDrop, Points: 15, Detail: "activity down 80% over 30 days"},
	}, got.Factors)
	assert.Equal(t, 80, got.Score)
}

func TestScorer_EngagementGrowthIsNotPenalized(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	got := scorer.Score(&models.ClientActivity{
		DaysSinceLastContact:  intp(1),
		DaysSinceLastLogin:    intp(1),
		SatisfactionScore:     floatp(5),
		ContractDaysRemaining: intp(365),
		ActivityLast30:        30,
		ActivityPrev30:        3,
		TenureMonths:          6,
	})
	assert.Equal(t, 0, got.Score)
	assert.Empty(t, got.Factors)
}

func TestScorer_CustomWeights(t *testing.T) {
	weights := DefaultWeights()
	weights.Contract.UnknownPoints = 12
	weights.Tenure.NewPoints = 0

	got := NewScorer(weights).Score(&models.ClientActivity{
		DaysSinceLastContact: intp(1),
		DaysSinceLastLogin:   intp(1),
		SatisfactionScore:    floatp(5),
		ActivityLast30:       1,
	})
	assert.Equal(t, []string{FactorContractUnknown}, codes(got.Factors))
	assert.Equal(t, 12, got.Score)
}

func TestRiskFor(t *testing.T) {
	tests := []struct {
		score int
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{29, models.RiskLow},
		{30, models.RiskMedium},
		{49, models.RiskMedium},
		{50, models.RiskHigh},
		{69, models.RiskHigh},
		{70, models.RiskCritical},
		{100, models.RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskFor(tt.score), "score %d", tt.score)
	}
}
