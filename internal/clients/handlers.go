package clients

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"adboard-backend/internal/errors"
	"adboard-backend/internal/models"
	"adboard-backend/internal/store"
	"adboard-backend/pkg/utils"
)

var (
	repo *store.Store

	// onAssignmentsChanged runs after any mutation that can alter which
	// campaigns are assigned. Wired to the reconciler in main.
	onAssignmentsChanged func()
)

// Init wires the package to the campaign store and the reconcile hook.
func Init(s *store.Store, reconcile func()) {
	repo = s
	onAssignmentsChanged = reconcile
}

func notifyAssignmentsChanged() {
	if onAssignmentsChanged != nil {
		onAssignmentsChanged()
	}
}

type clientRequest struct {
	Name        string   `json:"name" binding:"required"`
	Email       string   `json:"email"`
	AdAccounts  []string `json:"adAccounts"`
	CampaignIDs []string `json:"campaignIds"`
}

// normalizeIDs trims whitespace and drops empty entries, preserving order.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// validateAssignments rejects campaign ids already assigned to another client.
// It runs against the collection the store passes it at commit time, so the
// conflict check and the write cannot interleave with a concurrent upsert.
func validateAssignments(campaignIDs []string, selfID uint, current []models.Client) error {
	seen := make(map[string]bool, len(campaignIDs))
	for _, id := range campaignIDs {
		if seen[id] {
			return errors.New("DUPLICATE_ASSIGNMENT",
				fmt.Sprintf("Campaign %s listed more than once", id))
		}
		seen[id] = true

		if owner := models.FirstOwner(current, id); owner != nil && owner.ID != selfID {
			return errors.New("ASSIGNMENT_CONFLICT",
				fmt.Sprintf("Campaign %s is already assigned to client %q", id, owner.Name))
		}
	}
	return nil
}

// HandleListClients returns all clients. Admin only.
func HandleListClients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": repo.Clients()})
}

// HandleGetClient returns a single client. Admins can read any client,
// client users only their own.
func HandleGetClient(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client ID"})
		return
	}

	if c.GetString("role") != "admin" && c.GetUint("client_id") != uint(id) {
		utils.SendErrorResponse(c, http.StatusForbidden, errors.ErrUnauthorized)
		return
	}

	client, ok := repo.ClientByID(uint(id))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

// HandleCreateClient creates a client and provisions placeholders for its
// assigned campaigns.
func HandleCreateClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaignIDs := normalizeIDs(req.CampaignIDs)
	client := models.Client{
		Name:        req.Name,
		Email:       req.Email,
		AdAccounts:  models.StringArray(normalizeIDs(req.AdAccounts)),
		CampaignIDs: models.StringArray(campaignIDs),
	}
	saved, err := repo.UpsertClientChecked(client, func(current []models.Client) error {
		return validateAssignments(campaignIDs, 0, current)
	})
	if err != nil {
		utils.SendErrorResponse(c, http.StatusConflict, err.(*errors.AppError))
		return
	}

	notifyAssignmentsChanged()
	c.JSON(http.StatusCreated, gin.H{"client": saved})
}

// HandleUpdateClient updates a client's profile and campaign assignments.
func HandleUpdateClient(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client ID"})
		return
	}

	existing, ok := repo.ClientByID(uint(id))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaignIDs := normalizeIDs(req.CampaignIDs)
	existing.Name = req.Name
	existing.Email = req.Email
	existing.AdAccounts = models.StringArray(normalizeIDs(req.AdAccounts))
	existing.CampaignIDs = models.StringArray(campaignIDs)

	saved, err := repo.UpsertClientChecked(existing, func(current []models.Client) error {
		return validateAssignments(campaignIDs, existing.ID, current)
	})
	if err != nil {
		utils.SendErrorResponse(c, http.StatusConflict, err.(*errors.AppError))
		return
	}

	notifyAssignmentsChanged()
	c.JSON(http.StatusOK, gin.H{"client": saved})
}

// HandleDeleteClient removes a client. Its campaign records stay in the
// store, frozen, in case the assignment comes back.
func HandleDeleteClient(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client ID"})
		return
	}

	if !repo.DeleteClient(uint(id)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	notifyAssignmentsChanged()
	c.JSON(http.StatusOK, gin.H{"message": "Client deleted"})
}
