package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"adboard-backend/internal/adsapi"
	"adboard-backend/internal/analytics"
	"adboard-backend/internal/assistant"
	"adboard-backend/internal/auth"
	"adboard-backend/internal/bootstrap"
	"adboard-backend/internal/campaigns"
	"adboard-backend/internal/clients"
	"adboard-backend/internal/database"
	"adboard-backend/internal/health"
	"adboard-backend/internal/integrations"
	"adboard-backend/internal/livesync"
	"adboard-backend/internal/middleware"
	"adboard-backend/internal/models"
	"adboard-backend/internal/pulse"
	"adboard-backend/internal/reconciler"
	"adboard-backend/internal/scheduler"
	"adboard-backend/internal/secrets"
	"adboard-backend/internal/sessions"
	"adboard-backend/internal/store"
	"adboard-backend/internal/streams"
	"adboard-backend/internal/telemetry"
	"adboard-backend/pkg/utils"
)

func envSeconds(key string, fallback int) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}

func main() {
	log.Println("🚀 Starting Adboard API Server")
	startedAt := time.Now()

	// Initialize Sentry before other subsystems so we capture initialization errors
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		env := os.Getenv("SENTRY_ENVIRONMENT")
		release := os.Getenv("SENTRY_RELEASE")
		if release == "" {
			release = os.Getenv("GIT_COMMIT")
		}
		host, _ := os.Hostname()

		opts := sentry.ClientOptions{
			Dsn:         dsn,
			Environment: env,
			Release:     release,
		}
		if host != "" {
			opts.ServerName = host
		}

		if err := sentry.Init(opts); err != nil {
			log.Printf("Sentry initialization failed: %v", err)
		} else {
			sentry.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("service", "adboard-backend")
			})
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run database migrations
	if database.DB != nil {
		log.Println("Running database migrations...")
		if err := database.RunMigrations(
			&models.User{},
			&models.Client{},
			&models.CampaignStats{},
			&models.IntegrationSecret{},
			&models.SyncRun{},
		); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("✅ Database migrations completed")
	}

	// Authoritative in-memory cache over the database
	repo := store.New(database.DB)
	if err := repo.Load(); err != nil {
		log.Printf("⚠️ Failed to load persisted state, starting empty: %v", err)
	}

	bootstrap.Run(database.DB, repo)

	// Initialize auth components
	auth.InitJWT()
	if err := sessions.InitManager(); err != nil {
		log.Printf("⚠️ Redis unavailable, sessions disabled: %v", err)
	}

	// Domain services
	vault := secrets.NewVault(repo)
	ads := adsapi.NewClient(os.Getenv("ADS_API_BASE_URL"))
	engine := livesync.New(repo, vault, ads)
	simulator := pulse.New(repo)
	aiAssistant := assistant.New(vault, os.Getenv("AI_API_BASE_URL"), os.Getenv("AI_MODEL"))

	reconcile := func() {
		// Snapshot the clients before entering the mutate; the store lock is
		// not reentrant.
		clientSnapshot := repo.Clients()
		var provisioned int
		repo.MutateCampaigns(func(current []models.CampaignStats) []models.CampaignStats {
			placeholders := reconciler.Reconcile(clientSnapshot, current)
			if len(placeholders) == 0 {
				return nil
			}
			provisioned = len(placeholders)
			return append(current, placeholders...)
		})
		if provisioned == 0 {
			return
		}
		telemetry.ReconcilerProvisioned.Add(float64(provisioned))
		log.Printf("✅ Reconciler provisioned %d placeholder campaigns", provisioned)
	}

	// Wire handler packages
	clients.Init(repo, reconcile)
	campaigns.Init(repo, engine, vault, ads)
	integrations.Init(vault, ads)
	analytics.Init(repo)
	streams.Init(repo)
	health.Init(repo)
	assistant.InitHandlers(aiAssistant, repo)

	// Fill gaps for assignments that predate this boot
	reconcile()

	// Background tasks
	middleware.StartCleanup()

	pulseTask := scheduler.New("pulse", envSeconds("PULSE_INTERVAL_SECONDS", 5), func() {
		mutated := simulator.Tick()
		telemetry.PulseTicks.Inc()
		telemetry.PulseCampaignsMutated.Add(float64(mutated))
	})
	pulseTask.Start()

	syncTask := scheduler.New("livesync", envSeconds("SYNC_TICK_SECONDS", 60), func() {
		engine.Sync(context.Background(), livesync.Options{Trigger: livesync.TriggerBackground})
	})
	syncTask.Start()

	// Set up router
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	}))
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS - MUST be first to handle OPTIONS requests
	router.Use(cors.New(middleware.SecureCORSConfig()))

	// Security middleware - after CORS
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(middleware.MaxRequestSize()))
	router.Use(middleware.GeneralRateLimit())

	if os.Getenv("ENABLE_SENTRY_DEBUG_ENDPOINT") == "true" {
		router.GET("/internal/sentry-test", func(c *gin.Context) {
			utils.CaptureSentryError(c, nil, "Sentry debug endpoint hit", nil)
			_ = sentry.Flush(2 * time.Second)
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	// Health and telemetry endpoints
	router.GET("/health", health.HandleHealth)
	router.GET("/metrics", telemetry.Handler())
	router.GET("/system/metrics", health.HandleSystemMetrics)

	// API routes
	api := router.Group("/api/v1")
	{
		// Public auth routes
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", middleware.LoginRateLimit(), auth.HandleLogin)
			authRoutes.POST("/logout", auth.HandleLogout)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(auth.Middleware())
		{
			// Profile
			protected.GET("/profile", auth.HandleGetProfile)

			// Campaigns
			protected.GET("/campaigns", campaigns.HandleListCampaigns)
			protected.GET("/campaigns/:campaignId", campaigns.HandleGetCampaign)
			protected.GET("/campaigns/:campaignId/history", campaigns.HandleGetCampaignHistory)
			protected.POST("/sync", campaigns.HandleTriggerSync)
			protected.GET("/sync/status", campaigns.HandleSyncStatus)

			// Analytics
			protected.GET("/analytics/overview", analytics.HandleOverview)

			// Assistant
			protected.POST("/assistant/chat", assistant.HandleChat)
			protected.POST("/assistant/report", assistant.HandleGenerateReport)

			// Admin-only management
			admin := protected.Group("")
			admin.Use(auth.RequireAdmin())
			{
				admin.GET("/clients", clients.HandleListClients)
				admin.POST("/clients", clients.HandleCreateClient)
				admin.PUT("/clients/:id", clients.HandleUpdateClient)
				admin.DELETE("/clients/:id", clients.HandleDeleteClient)
				admin.GET("/analytics/clients/:id", analytics.HandleClientOverview)

				admin.GET("/integrations/secrets/:type", integrations.HandleGetSecret)
				admin.PUT("/integrations/secrets/:type", integrations.HandleSaveSecret)
				admin.POST("/integrations/secrets/:type/test", integrations.HandleTestSecret)
				admin.GET("/integrations/adaccounts", integrations.HandleListAdAccounts)
			}

			// Client users may still read their own client record
			protected.GET("/clients/:id", clients.HandleGetClient)
		}
	}

	// Status metrics endpoint (outside API group)
	router.GET("/status/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"uptime":   time.Since(startedAt).Seconds(),
			"version":  "1.0.0",
			"status":   "healthy",
			"started":  startedAt,
			"database": database.DB != nil,
		})
	})

	// Real-time WebSocket streams
	router.GET("/ws/campaigns", streams.HandleCampaignStream)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("✅ Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
