package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveExample(t *testing.T) {
	stats := Derive(Raw{Spend: 100, Impressions: 1000, Clicks: 50, Conversions: 0})

	assert.InDelta(t, 0.05, stats.CTR, 1e-9)
	assert.InDelta(t, 2.0, stats.CPC, 1e-9)
	assert.InDelta(t, 100.0, stats.CPM, 1e-9)
	assert.Zero(t, stats.CPA)
	assert.Zero(t, stats.ROAS)
	assert.False(t, stats.LastSync.IsZero())
}

func TestDeriveZeroDenominators(t *testing.T) {
	cases := []Raw{
		{},
		{Spend: 10},
		{Clicks: 5},
		{Conversions: 3},
		{Spend: 10, Conversions: 3},
		{Impressions: 100},
	}

	for _, raw := range cases {
		stats := Derive(raw)
		for name, v := range map[string]float64{
			"ctr":  stats.CTR,
			"cpc":  stats.CPC,
			"cpa":  stats.CPA,
			"cpm":  stats.CPM,
			"roas": stats.ROAS,
		} {
			require.Falsef(t, math.IsNaN(v), "%s is NaN for %+v", name, raw)
			require.Falsef(t, math.IsInf(v, 0), "%s is Inf for %+v", name, raw)
		}
	}
}

func TestDeriveROASUsesAverageOrderValue(t *testing.T) {
	stats := Derive(Raw{Spend: 100, Conversions: 4})
	assert.InDelta(t, 4*AverageOrderValue()/100, stats.ROAS, 1e-9)
	assert.InDelta(t, 25.0, stats.CPA, 1e-9)
}

func TestApplyPreservesIdentityFields(t *testing.T) {
	stats := Derive(Raw{Spend: 10, Impressions: 100, Clicks: 5})
	stats.ID = "local-1"
	stats.CampaignID = "cp_1"
	stats.Name = "Launch"
	stats.Status = "PAUSED"
	stats.DataSource = "REAL_API"
	stats.IsValidated = true

	Apply(&stats, Raw{Spend: 20, Impressions: 400, Clicks: 10})

	assert.Equal(t, "local-1", stats.ID)
	assert.Equal(t, "cp_1", stats.CampaignID)
	assert.Equal(t, "Launch", stats.Name)
	assert.Equal(t, "PAUSED", stats.Status)
	assert.Equal(t, "REAL_API", stats.DataSource)
	assert.True(t, stats.IsValidated)
	assert.InDelta(t, 0.025, stats.CTR, 1e-9)
	assert.InDelta(t, 2.0, stats.CPC, 1e-9)
}
