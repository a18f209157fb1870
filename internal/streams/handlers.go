package streams

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"adboard-backend/internal/auth"
	"adboard-backend/internal/models"
	"adboard-backend/internal/store"
)

var repo *store.Store

// Init wires the package to the campaign store.
func Init(s *store.Store) {
	repo = s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The bearer token in the query string is the access check; the
	// browser cannot set an Origin we would trust more than that.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const pushInterval = 5 * time.Second

type snapshot struct {
	Campaigns []models.CampaignStats `json:"campaigns"`
	SentAt    time.Time              `json:"sent_at"`
}

// HandleCampaignStream upgrades to a websocket and pushes campaign snapshots
// on a fixed cadence until the client disconnects. Browsers cannot send an
// Authorization header on websocket upgrades, so the token rides in the
// query string.
func HandleCampaignStream(c *gin.Context) {
	claims, err := auth.ParseToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain control frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(snapshot{
			Campaigns: scopedCampaigns(claims),
			SentAt:    time.Now(),
		}); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-c.Request.Context().Done():
			return
		}
	}
}

func scopedCampaigns(claims *auth.Claims) []models.CampaignStats {
	all := repo.Campaigns()
	if claims.Role == "admin" {
		return all
	}

	client, ok := repo.ClientByID(claims.ClientID)
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
