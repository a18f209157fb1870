package assistant

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "adboard-backend/internal/errors"
	"adboard-backend/internal/models"
	"adboard-backend/internal/store"
	"adboard-backend/pkg/utils"
)

var (
	ai   *Assistant
	repo *store.Store
)

// InitHandlers wires the HTTP handlers to the assistant and the store.
func InitHandlers(a *Assistant, s *store.Store) {
	ai = a
	repo = s
}

// callerCampaigns scopes the campaign context the same way the list endpoint
// does: admins get everything, client users their own assignments.
func callerCampaigns(c *gin.Context) []models.CampaignStats {
	all := repo.Campaigns()
	if c.GetString("role") == "admin" {
		return all
	}

	client, ok := repo.ClientByID(c.GetUint("client_id"))
	if !ok {
		return nil
	}
	scoped := make([]models.CampaignStats, 0, len(client.CampaignIDs))
	for _, stats := range all {
		if client.CampaignIDs.Contains(stats.CampaignID) {
			scoped = append(scoped, stats)
		}
	}
	return scoped
}

func respondAssistantError(c *gin.Context, err error) {
	if errors.Is(err, appErrors.ErrCredentialMissing) {
		utils.SendErrorResponse(c, http.StatusBadRequest,
			appErrors.New("AI_CREDENTIAL_MISSING", "No AI credential configured"))
		return
	}
	utils.SendErrorResponse(c, http.StatusBadGateway,
		appErrors.Wrap(err, "AI_REQUEST_FAILED", "Assistant request failed"))
}

// HandleChat answers a dashboard question with current campaign data as
// context.
func HandleChat(c *gin.Context) {
	var req struct {
		Message string    `json:"message" binding:"required"`
		History []Message `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := ai.Chat(c.Request.Context(), req.Message, req.History, callerCampaigns(c))
	if err != nil {
		respondAssistantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// HandleGenerateReport produces a narrative performance report over the
// caller's campaigns.
func HandleGenerateReport(c *gin.Context) {
	report, err := ai.GenerateReport(c.Request.Context(), callerCampaigns(c))
	if err != nil {
		respondAssistantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
