package campaigns

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"adboard-backend/internal/adsapi"
	"adboard-backend/internal/errors"
	"adboard-backend/internal/livesync"
	"adboard-backend/internal/models"
	"adboard-backend/internal/secrets"
	"adboard-backend/internal/store"
	"adboard-backend/pkg/utils"
)

var (
	repo   *store.Store
	engine *livesync.Engine
	vault  *secrets.Vault
	ads    *adsapi.Client
)

// Init wires the package to its collaborators.
func Init(s *store.Store, e *livesync.Engine, v *secrets.Vault, a *adsapi.Client) {
	repo = s
	engine = e
	vault = v
	ads = a
}

// visibleCampaigns returns the campaigns the caller may see. Admins see
// everything; client users see only campaigns assigned to them.
func visibleCampaigns(c *gin.Context) []models.CampaignStats {
	all := repo.Campaigns()
	if c.GetString("role") == "admin" {
		return all
	}

	client, ok := repo.ClientByID(c.GetUint("client_id"))
	if !ok {
		return nil
	}
	visible := make([]models.CampaignStats, 0, len(client.CampaignIDs))
	for _, stats := range all {
		if client.CampaignIDs.Contains(stats.CampaignID) {
			visible = append(visible, stats)
		}
	}
	return visible
}

// HandleListCampaigns returns campaign stats scoped to the caller. Opening the
// dashboard opportunistically refreshes from the ads platform first; the
// engine's guards turn the refresh into a cheap no-op when one ran recently or
// no credential is configured.
func HandleListCampaigns(c *gin.Context) {
	opts := livesync.Options{Trigger: livesync.TriggerNavigation}
	if c.GetString("role") != "admin" {
		opts.ClientTriggered = true
		opts.ScopeClientID = c.GetUint("client_id")
		opts.ActiveClientID = c.GetUint("client_id")
	}
	engine.Sync(c.Request.Context(), opts)

	campaigns := visibleCampaigns(c)
	c.JSON(http.StatusOK, gin.H{
		"campaigns": campaigns,
		"total":     len(campaigns),
	})
}

// HandleGetCampaign returns a single campaign the caller may see.
func HandleGetCampaign(c *gin.Context) {
	campaignID := c.Param("campaignId")
	for _, stats := range visibleCampaigns(c) {
		if stats.CampaignID == campaignID {
			c.JSON(http.StatusOK, gin.H{"campaign": stats})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
}

// HandleGetCampaignHistory returns the daily insight series for one campaign,
// fetched live from the ads platform.
func HandleGetCampaignHistory(c *gin.Context) {
	campaignID := c.Param("campaignId")

	var found bool
	for _, stats := range visibleCampaigns(c) {
		if stats.CampaignID == campaignID {
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}

	token, err := vault.RevealStrict(models.SecretTypeFacebook)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusBadGateway, err.(*errors.AppError))
		return
	}

	points, err := ads.FetchInsightHistory(c.Request.Context(), campaignID, token)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusBadGateway,
			errors.Wrap(err, "HISTORY_FETCH_FAILED", "Failed to fetch campaign history"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaignId": campaignID,
		"points":     points,
	})
}

// HandleTriggerSync runs a forced sync pass and reports what happened,
// including why a pass declined to run.
func HandleTriggerSync(c *gin.Context) {
	opts := livesync.Options{
		Force:   true,
		Trigger: livesync.TriggerManual,
	}
	if c.GetString("role") != "admin" {
		opts.ClientTriggered = true
		opts.ScopeClientID = c.GetUint("client_id")
		opts.ActiveClientID = c.GetUint("client_id")
	}

	result := engine.Sync(c.Request.Context(), opts)
	if result.Skipped {
		c.JSON(http.StatusOK, gin.H{
			"synced": false,
			"reason": result.Reason,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"synced":          true,
		"updated":         len(result.Updated),
		"clients_scanned": result.ClientsScanned,
		"account_errors":  result.AccountErrors,
	})
}

// HandleSyncStatus reports sync engine state for the dashboard header.
func HandleSyncStatus(c *gin.Context) {
	last := engine.LastCompleted()
	var lastCompleted *time.Time
	if !last.IsZero() {
		lastCompleted = &last
	}

	c.JSON(http.StatusOK, gin.H{
		"in_flight":        engine.InFlight(),
		"last_completed":   lastCompleted,
		"credential_valid": vault.HasValid(models.SecretTypeFacebook),
	})
}
