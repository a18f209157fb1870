package telemetry

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync and background-loop counters exposed on /metrics.
var (
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adboard_sync_runs_total",
		Help: "Live sync passes by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	SyncCampaignsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_sync_campaigns_merged_total",
		Help: "Campaign records merged from the ads platform.",
	})

	SyncAccountFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_sync_account_failures_total",
		Help: "Per-ad-account fetch failures tolerated during sync.",
	})

	LastSyncCompleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adboard_sync_last_completed_timestamp_seconds",
		Help: "Unix time of the last successful sync.",
	})

	PulseTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_pulse_ticks_total",
		Help: "Pulse simulator ticks executed.",
	})

	PulseCampaignsMutated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_pulse_campaigns_mutated_total",
		Help: "Campaign records advanced by the pulse simulator.",
	})

	ReconcilerProvisioned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_reconciler_provisioned_total",
		Help: "Placeholder campaign records auto-provisioned.",
	})
)

// Handler exposes the Prometheus registry as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
