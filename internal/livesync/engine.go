package livesync

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"adboard-backend/internal/adsapi"
	"adboard-backend/internal/metrics"
	"adboard-backend/internal/models"
	"adboard-backend/internal/secrets"
	"adboard-backend/internal/store"
	"adboard-backend/internal/telemetry"
	"adboard-backend/pkg/utils"
)

// Trigger identifies what started a sync pass.
const (
	TriggerBackground = "background"
	TriggerNavigation = "navigation"
	TriggerManual     = "manual"
)

// Skip reasons reported for no-op passes.
const (
	SkipInFlight     = "in_flight"
	SkipOffline      = "offline"
	SkipRateLimited  = "rate_limited"
	SkipNoCredential = "no_credential"
)

// Options controls one sync pass.
type Options struct {
	// Force bypasses the minimum-interval guard. It does not bypass the
	// re-entrancy, connectivity, or credential guards.
	Force bool
	// Trigger is background, navigation, or manual.
	Trigger string
	// ScopeClientID restricts a navigation- or manual-triggered pass to one
	// client to bound API call volume. Background ticks ignore it and always
	// scan every client.
	ScopeClientID uint
	// ActiveClientID is processed first so the visible dashboard gets fresh
	// data even if the pass is cut short by failures.
	ActiveClientID uint
	// ClientTriggered selects the longer minimum interval used for
	// client-viewer background ticks.
	ClientTriggered bool
}

// Result reports what a sync pass did. A skipped pass is a no-op, never an
// error: background ticks fire constantly and most of them are expected to
// decline to run.
type Result struct {
	Skipped         bool
	Reason          string
	Updated         []models.CampaignStats
	ClientsScanned  int
	AccountsScanned int
	AccountErrors   int
}

// Engine pulls campaign performance from the ads platform and merges it into
// the campaign cache. Merging is an upsert keyed by the external campaign id:
// all metric fields are overwritten, the local surrogate id is preserved, and
// untouched records survive partial passes unchanged. Only the engine marks a
// record REAL_API.
type Engine struct {
	store *store.Store
	vault *secrets.Vault
	ads   *adsapi.Client

	inFlight atomic.Bool

	mu            sync.Mutex
	lastCompleted time.Time

	adminInterval  time.Duration
	clientInterval time.Duration

	// online reports network availability; nil means assume online.
	online func(ctx context.Context) bool
}

// New creates a sync engine. Minimum intervals come from
// SYNC_MIN_INTERVAL_SECONDS (admin ticks, default 60) and
// SYNC_CLIENT_MIN_INTERVAL_SECONDS (client ticks, default 120).
func New(s *store.Store, vault *secrets.Vault, ads *adsapi.Client) *Engine {
	return &Engine{
		store:          s,
		vault:          vault,
		ads:            ads,
		adminInterval:  envSeconds("SYNC_MIN_INTERVAL_SECONDS", 60),
		clientInterval: envSeconds("SYNC_CLIENT_MIN_INTERVAL_SECONDS", 120),
	}
}

// SetConnectivityProbe overrides the network-availability check.
func (e *Engine) SetConnectivityProbe(probe func(ctx context.Context) bool) {
	e.online = probe
}

// LastCompleted returns when the last non-skipped pass finished.
func (e *Engine) LastCompleted() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastCompleted
}

// InFlight reports whether a pass is currently running.
func (e *Engine) InFlight() bool {
	return e.inFlight.Load()
}

// Sync runs one pass. Guards are evaluated in order and any failing guard
// skips the pass silently; see Result.Reason.
func (e *Engine) Sync(ctx context.Context, opts Options) Result {
	if opts.Trigger == "" {
		opts.Trigger = TriggerBackground
	}

	// Re-entrancy: a second overlapping trigger coalesces into a no-op rather
	// than queuing.
	if !e.inFlight.CompareAndSwap(false, true) {
		return e.skip(opts, SkipInFlight)
	}
	defer e.inFlight.Store(false)

	if e.online != nil && !e.online(ctx) {
		return e.skip(opts, SkipOffline)
	}

	if !opts.Force && !e.intervalElapsed(opts.ClientTriggered) {
		return e.skip(opts, SkipRateLimited)
	}

	if !e.vault.HasValid(models.SecretTypeFacebook) {
		return e.skip(opts, SkipNoCredential)
	}
	token := e.vault.Reveal(models.SecretTypeFacebook)
	if token == "" {
		// Stored credential unreadable; downstream treats it as missing.
		return e.skip(opts, SkipNoCredential)
	}

	startedAt := time.Now()
	result := e.run(ctx, opts, token)

	// A pass where every single account fetch failed did not complete in any
	// useful sense; stamping it would throttle the next attempt behind the
	// minimum-interval guard.
	outcome := "completed"
	if result.AccountsScanned > 0 && result.AccountErrors == result.AccountsScanned {
		outcome = "failed"
	} else {
		e.mu.Lock()
		e.lastCompleted = time.Now()
		e.mu.Unlock()
		telemetry.LastSyncCompleted.SetToCurrentTime()
	}

	telemetry.SyncRuns.WithLabelValues(opts.Trigger, outcome).Inc()
	telemetry.SyncCampaignsMerged.Add(float64(len(result.Updated)))

	completedAt := time.Now()
	e.store.RecordSyncRun(models.SyncRun{
		Trigger:        opts.Trigger,
		Forced:         opts.Force,
		ClientsScanned: result.ClientsScanned,
		Merged:         len(result.Updated),
		AccountErrors:  result.AccountErrors,
		StartedAt:      startedAt,
		CompletedAt:    &completedAt,
	})

	log.Printf("🔄 Sync %s: %d clients, %d merged, %d account errors",
		outcome, result.ClientsScanned, len(result.Updated), result.AccountErrors)
	return result
}

func (e *Engine) run(ctx context.Context, opts Options, token string) Result {
	clients := orderClients(e.store.Clients(), opts)

	// Fetch first, commit later: collect the upserts for this pass without
	// holding any lock, then merge them into the collection as it is at commit
	// time so records written by other writers mid-pass survive.
	var upserts []models.CampaignStats

	result := Result{}
	for _, client := range clients {
		result.ClientsScanned++
		for _, accountID := range client.AdAccounts {
			result.AccountsScanned++
			external, err := e.ads.FetchAccountCampaigns(ctx, accountID, token)
			if err != nil {
				// Per-account failures are absorbed here; the rest of the
				// pass continues.
				result.AccountErrors++
				telemetry.SyncAccountFailures.Inc()
				utils.HandleError(err, "livesync.FetchAccountCampaigns("+accountID+")")
				continue
			}

			for _, ext := range external {
				if !client.CampaignIDs.Contains(ext.ID) {
					continue
				}
				if ext.Status == "DELETED" {
					// The stale local record stays; purging is a product
					// decision we have not made.
					continue
				}

				stats := buildStats(ext)
				upserts = append(upserts, stats)
				result.Updated = append(result.Updated, stats)
			}
		}
	}

	if len(upserts) == 0 {
		// Nothing fetched; keep the last known good state.
		return result
	}

	e.store.MutateCampaigns(func(current []models.CampaignStats) []models.CampaignStats {
		index := make(map[string]int, len(current))
		for i, c := range current {
			index[c.CampaignID] = i
		}
		for _, stats := range upserts {
			if i, ok := index[stats.CampaignID]; ok {
				stats.ID = current[i].ID
				stats.CreatedAt = current[i].CreatedAt
				current[i] = stats
			} else {
				stats.ID = uuid.NewString()
				index[stats.CampaignID] = len(current)
				current = append(current, stats)
			}
		}
		return current
	})
	return result
}

// buildStats normalizes one external campaign into a full REAL_API record.
func buildStats(ext adsapi.AccountCampaign) models.CampaignStats {
	raw := metrics.Raw{}
	if ext.Insight != nil {
		raw = metrics.Raw{
			Spend:       ext.Insight.Spend,
			Impressions: ext.Insight.Impressions,
			Clicks:      ext.Insight.Clicks,
			Reach:       ext.Insight.Reach,
			Frequency:   ext.Insight.Frequency,
			Conversions: adsapi.SumConversions(ext.Insight.Actions),
		}
	}

	stats := metrics.Derive(raw)
	stats.CampaignID = ext.ID
	stats.Name = ext.Name
	stats.Date = time.Now().Format("2006-01-02")
	stats.Status = normalizeStatus(ext.Status)
	stats.DataSource = models.DataSourceRealAPI
	stats.IsValidated = true
	return stats
}

func normalizeStatus(status string) string {
	switch status {
	case models.CampaignStatusActive, models.CampaignStatusPaused, models.CampaignStatusArchived:
		return status
	default:
		return models.CampaignStatusPaused
	}
}

// orderClients puts the active client first. A scoped pass (any non-background
// trigger carrying a ScopeClientID) is narrowed to that one client.
func orderClients(clients []models.Client, opts Options) []models.Client {
	if opts.ScopeClientID != 0 && opts.Trigger != TriggerBackground {
		for _, c := range clients {
			if c.ID == opts.ScopeClientID {
				return []models.Client{c}
			}
		}
		return nil
	}

	if opts.ActiveClientID == 0 {
		return clients
	}
	ordered := make([]models.Client, 0, len(clients))
	for _, c := range clients {
		if c.ID == opts.ActiveClientID {
			ordered = append(ordered, c)
			break
		}
	}
	for _, c := range clients {
		if c.ID != opts.ActiveClientID {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

func (e *Engine) intervalElapsed(clientTriggered bool) bool {
	interval := e.adminInterval
	if clientTriggered {
		interval = e.clientInterval
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastCompleted.IsZero() || time.Since(e.lastCompleted) >= interval
}

func (e *Engine) skip(opts Options, reason string) Result {
	telemetry.SyncRuns.WithLabelValues(opts.Trigger, "skipped_"+reason).Inc()
	return Result{Skipped: true, Reason: reason}
}

func envSeconds(key string, fallback int) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
