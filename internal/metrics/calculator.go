package metrics

import (
	"os"
	"strconv"
	"sync"
	"time"

	"adboard-backend/internal/models"
)

// Raw holds the counters a campaign record is derived from. Missing fields are
// zero and every ratio with a zero denominator is defined as zero, so Derive is
// total and never produces NaN or Inf.
type Raw struct {
	Spend       float64
	Impressions int64
	Clicks      int64
	Reach       int64
	Frequency   float64
	Conversions int64
}

const defaultAverageOrderValue = 50.0

var (
	aovOnce sync.Once
	aov     float64
)

// AverageOrderValue is the configured revenue estimate per conversion, used to
// compute ROAS when no real revenue data exists. Callers must treat ROAS as an
// estimate, not ground truth, when DataSource is MOCK.
func AverageOrderValue() float64 {
	aovOnce.Do(func() {
		aov = defaultAverageOrderValue
		if raw := os.Getenv("ROAS_AVG_ORDER_VALUE"); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
				aov = v
			}
		}
	})
	return aov
}

// Derive computes every derived metric from raw counters. It is the single
// source of truth for the metric formulas; all mutation paths (reconciler,
// pulse simulator, live sync) go through it so the derived fields never drift
// between call sites.
func Derive(raw Raw) models.CampaignStats {
	stats := models.CampaignStats{
		Spend:       raw.Spend,
		Impressions: raw.Impressions,
		Clicks:      raw.Clicks,
		Reach:       raw.Reach,
		Frequency:   raw.Frequency,
		Conversions: raw.Conversions,
		LastSync:    time.Now(),
	}

	if raw.Impressions > 0 {
		stats.CTR = float64(raw.Clicks) / float64(raw.Impressions)
		stats.CPM = raw.Spend / float64(raw.Impressions) * 1000
	}
	if raw.Clicks > 0 {
		stats.CPC = raw.Spend / float64(raw.Clicks)
	}
	if raw.Conversions > 0 {
		stats.CPA = raw.Spend / float64(raw.Conversions)
	}
	if raw.Spend > 0 {
		stats.ROAS = float64(raw.Conversions) * AverageOrderValue() / raw.Spend
	}

	return stats
}

// Apply recomputes the derived fields of an existing record in place, keeping
// identity and lifecycle fields (ID, CampaignID, Name, Status, DataSource,
// IsValidated, Date) untouched.
func Apply(stats *models.CampaignStats, raw Raw) {
	derived := Derive(raw)
	stats.Spend = derived.Spend
	stats.Impressions = derived.Impressions
	stats.Clicks = derived.Clicks
	stats.Reach = derived.Reach
	stats.Frequency = derived.Frequency
	stats.Conversions = derived.Conversions
	stats.CTR = derived.CTR
	stats.CPC = derived.CPC
	stats.CPA = derived.CPA
	stats.CPM = derived.CPM
	stats.ROAS = derived.ROAS
	stats.LastSync = derived.LastSync
}
