package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"adboard-backend/internal/database"
	"adboard-backend/internal/errors"
	"adboard-backend/internal/middleware"
	"adboard-backend/internal/models"
	"adboard-backend/internal/sessions"
	"adboard-backend/pkg/utils"
)

// HandleLogin authenticates a user and returns a bearer token.
func HandleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if database.DB == nil {
		utils.SendErrorResponse(c, http.StatusServiceUnavailable,
			errors.New("NO_DATABASE", "Login requires a database connection"))
		return
	}

	var user models.User
	if err := database.DB.Where("email = ? AND active = ?", req.Email, true).First(&user).Error; err != nil {
		middleware.RecordFailedLoginAttempt(c)
		utils.SendErrorResponse(c, http.StatusUnauthorized, errors.ErrInvalidCredentials)
		return
	}
	if !CheckPassword(user.Password, req.Password) {
		middleware.RecordFailedLoginAttempt(c)
		utils.SendErrorResponse(c, http.StatusUnauthorized, errors.ErrInvalidCredentials)
		return
	}
	middleware.RecordSuccessfulLoginAttempt(c)

	token, expiry, err := GenerateToken(user)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError,
			errors.Wrap(err, "TOKEN_GENERATION_FAILED", "Failed to generate token"))
		return
	}

	now := time.Now()
	database.DB.Model(&user).Update("last_login_at", now)

	sessionID := uuid.NewString()
	if sessions.GlobalManager != nil {
		if err := sessions.GlobalManager.CreateSession(sessionID, user.ID, user.Role, c.ClientIP()); err != nil {
			utils.HandleError(err, "auth.HandleLogin.CreateSession")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiry,
		"session_id": sessionID,
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"name":      user.Name,
			"role":      user.Role,
			"client_id": user.ClientID,
		},
	})
}

// HandleLogout ends the caller's session. The JWT itself simply expires.
func HandleLogout(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	_ = c.ShouldBindJSON(&req)

	if sessions.GlobalManager != nil && req.SessionID != "" {
		if err := sessions.GlobalManager.DeleteSession(req.SessionID); err != nil {
			utils.HandleError(err, "auth.HandleLogout.DeleteSession")
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// HandleGetProfile returns the authenticated user's profile.
func HandleGetProfile(c *gin.Context) {
	if database.DB == nil {
		c.JSON(http.StatusOK, gin.H{
			"id":    c.GetUint("user_id"),
			"email": c.GetString("email"),
			"role":  c.GetString("role"),
		})
		return
	}

	var user models.User
	if err := database.DB.First(&user, c.GetUint("user_id")).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusNotFound, errors.New("USER_NOT_FOUND", "User not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
