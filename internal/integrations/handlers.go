package integrations

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"adboard-backend/internal/adsapi"
	"adboard-backend/internal/errors"
	"adboard-backend/internal/models"
	"adboard-backend/internal/secrets"
	"adboard-backend/pkg/utils"
)

var (
	vault *secrets.Vault
	ads   *adsapi.Client
)

// Init wires the package to the vault and the ads client.
func Init(v *secrets.Vault, a *adsapi.Client) {
	vault = v
	ads = a
}

var knownSecretTypes = map[string]bool{
	models.SecretTypeFacebook: true,
	models.SecretTypeAI:       true,
	models.SecretTypeDatabase: true,
}

func secretTypeParam(c *gin.Context) (string, bool) {
	secretType := strings.ToUpper(strings.TrimSpace(c.Param("type")))
	if !knownSecretTypes[secretType] {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown secret type"})
		return "", false
	}
	return secretType, true
}

// HandleGetSecret returns secret metadata with a masked value. The plaintext
// never leaves the server.
func HandleGetSecret(c *gin.Context) {
	secretType, ok := secretTypeParam(c)
	if !ok {
		return
	}

	secret, exists := vault.Get(secretType)
	if !exists {
		c.JSON(http.StatusOK, gin.H{
			"type":       secretType,
			"configured": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":       secretType,
		"configured": true,
		"status":     secret.Status,
		"masked":     vault.Masked(secretType),
		"updated_at": secret.UpdatedAt,
	})
}

// HandleSaveSecret stores a new secret value. The value always lands as
// UNTESTED; a test call promotes or demotes it.
func HandleSaveSecret(c *gin.Context) {
	secretType, ok := secretTypeParam(c)
	if !ok {
		return
	}

	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	secret := vault.Save(secretType, req.Value)
	c.JSON(http.StatusOK, gin.H{
		"type":   secretType,
		"status": secret.Status,
		"masked": vault.Masked(secretType),
	})
}

// HandleTestSecret validates a stored credential against its platform and
// records the outcome.
func HandleTestSecret(c *gin.Context) {
	secretType, ok := secretTypeParam(c)
	if !ok {
		return
	}

	token, err := vault.RevealStrict(secretType)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, err.(*errors.AppError))
		return
	}

	switch secretType {
	case models.SecretTypeFacebook:
		valid, err := ads.ValidateToken(c.Request.Context(), token)
		if err != nil {
			// Could not reach the platform at all; leave the status as is.
			utils.SendErrorResponse(c, http.StatusBadGateway,
				errors.Wrap(err, "VALIDATION_UNREACHABLE", "Could not reach the ads platform"))
			return
		}
		status := models.SecretStatusInvalid
		if valid {
			status = models.SecretStatusValid
		}
		vault.SetStatus(secretType, status)
		c.JSON(http.StatusOK, gin.H{"type": secretType, "status": status})
	default:
		// No live validation for this type; a non-empty decodable value
		// is the best check available.
		vault.SetStatus(secretType, models.SecretStatusValid)
		c.JSON(http.StatusOK, gin.H{"type": secretType, "status": models.SecretStatusValid})
	}
}

// HandleListAdAccounts lists ad accounts reachable with the stored
// Facebook credential, for the client assignment form.
func HandleListAdAccounts(c *gin.Context) {
	token, err := vault.RevealStrict(models.SecretTypeFacebook)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, err.(*errors.AppError))
		return
	}

	accounts, err := ads.ListAdAccounts(c.Request.Context(), token)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusBadGateway,
			errors.Wrap(err, "ADACCOUNTS_FETCH_FAILED", "Failed to list ad accounts"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts, "total": len(accounts)})
}
