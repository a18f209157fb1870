package health

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"adboard-backend/internal/database"
	"adboard-backend/internal/sessions"
	"adboard-backend/internal/store"
)

var startedAt = time.Now()

var repo *store.Store

// Init wires the package to the campaign store for resource counts.
func Init(s *store.Store) {
	repo = s
}

// HandleHealth reports process liveness and dependency status. Degraded
// dependencies do not fail the check; the service runs without them.
func HandleHealth(c *gin.Context) {
	dbStatus := "disconnected"
	if database.DB != nil {
		if sqlDB, err := database.DB.DB(); err == nil && sqlDB.Ping() == nil {
			dbStatus = "connected"
		} else {
			dbStatus = "error"
		}
	}

	redisStatus := "disconnected"
	if sessions.GlobalManager != nil {
		redisStatus = "connected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(startedAt).Round(time.Second).String(),
		"database":  dbStatus,
		"redis":     redisStatus,
		"timestamp": time.Now(),
	})
}

// HandleSystemMetrics returns process-level runtime stats and resource counts.
func HandleSystemMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var clientCount, campaignCount int
	if repo != nil {
		clientCount = len(repo.Clients())
		campaignCount = len(repo.Campaigns())
	}

	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds":     time.Since(startedAt).Seconds(),
		"database_connected": database.DB != nil,
		"redis_connected":    sessions.GlobalManager != nil,
		"memory": gin.H{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"gc_runs":        m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
		"resources": gin.H{
			"clients":   clientCount,
			"campaigns": campaignCount,
		},
		"timestamp": time.Now(),
	})
}
