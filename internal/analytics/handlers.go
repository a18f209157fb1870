package analytics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adboard-backend/internal/errors"
	"adboard-backend/internal/metrics"
	"adboard-backend/internal/models"
	"adboard-backend/internal/store"
	"adboard-backend/pkg/utils"
)

var repo *store.Store

// Init wires the package to the campaign store.
func Init(s *store.Store) {
	repo = s
}

// Overview aggregates totals across a set of campaigns. Derived rates are
// recomputed from the summed raw counters, never averaged across campaigns.
type Overview struct {
	Campaigns   int     `json:"campaigns"`
	Active      int     `json:"active"`
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	CPA         float64 `json:"cpa"`
	CPM         float64 `json:"cpm"`
	ROAS        float64 `json:"roas"`
}

// Summarize folds campaign stats into one overview row.
func Summarize(campaigns []models.CampaignStats) Overview {
	o := Overview{Campaigns: len(campaigns)}
	for _, stats := range campaigns {
		if stats.Status == models.CampaignStatusActive {
			o.Active++
		}
		o.Spend += stats.Spend
		o.Impressions += stats.Impressions
		o.Clicks += stats.Clicks
		o.Conversions += stats.Conversions
	}

	derived := metrics.Derive(metrics.Raw{
		Spend:       o.Spend,
		Impressions: o.Impressions,
		Clicks:      o.Clicks,
		Conversions: o.Conversions,
	})
	o.CTR = derived.CTR
	o.CPC = derived.CPC
	o.CPA = derived.CPA
	o.CPM = derived.CPM
	o.ROAS = derived.ROAS
	return o
}

func campaignsForClient(client models.Client) []models.CampaignStats {
	all := repo.Campaigns()
	out := make([]models.CampaignStats, 0, len(client.CampaignIDs))
	for _, stats := range all {
		if client.CampaignIDs.Contains(stats.CampaignID) {
			out = append(out, stats)
		}
	}
	return out
}

// HandleOverview returns aggregate performance for the caller's scope:
// all campaigns for admins, own campaigns for client users.
func HandleOverview(c *gin.Context) {
	if c.GetString("role") == "admin" {
		c.JSON(http.StatusOK, gin.H{"overview": Summarize(repo.Campaigns())})
		return
	}

	client, ok := repo.ClientByID(c.GetUint("client_id"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"overview": Overview{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": Summarize(campaignsForClient(client))})
}

// HandleClientOverview returns aggregate performance for one client. Admin only.
func HandleClientOverview(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client ID"})
		return
	}

	client, ok := repo.ClientByID(uint(id))
	if !ok {
		utils.SendErrorResponse(c, http.StatusNotFound,
			errors.New("CLIENT_NOT_FOUND", "Client not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_id": client.ID,
		"overview":  Summarize(campaignsForClient(client)),
	})
}
