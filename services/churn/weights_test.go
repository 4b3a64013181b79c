package churn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWeights_EmptyPathUsesDefaults(t *testing.T) {
	weights, err := LoadWeights("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), weights)
}

func TestLoadWeights_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.yaml")
	data := []byte(`
overdue_invoices:
  per_invoice: 5
satisfaction:
  unknown_points: 0
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	weights, err := LoadWeights(path)
	require.NoError(t, err)

	assert.Equal(t, 5, weights.Overdue.PerInvoice)
	assert.Equal(t, 25, weights.Overdue.Cap, "unlisted values keep their default")
	assert.Equal(t, 0, weights.Satisfaction.UnknownPoints)
	assert.Equal(t, DefaultWeights().Contact, weights.Contact)
}

func TestLoadWeights_MissingFile(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseWeights_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			data:    "last_contact: [",
			wantErr: "failed to parse churn weights",
		},
		{
			name:    "negative points",
			data:    "tenure:\n  new_points: -1\n",
			wantErr: "tenure.new_points must not be negative",
		},
		{
			name:    "warn after stale",
			data:    "last_login:\n  warn_days: 40\n",
			wantErr: "last_login.warn_days must be below stale_days",
		},
		{
			name:    "drop above sharp drop",
			data:    "engagement:\n  drop_pct: 60\n",
			wantErr: "engagement.drop_pct must not exceed sharp_drop_pct",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWeights([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
