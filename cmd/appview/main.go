package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/atproto"
	"github.com/athub-social/appview/internal/config"
	"github.com/athub-social/appview/internal/handlers"
	"github.com/athub-social/appview/internal/ingest"
	"github.com/athub-social/appview/internal/middleware"
	"github.com/athub-social/appview/internal/services"
	"github.com/athub-social/appview/internal/storage"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Warning: failed to load config from %s: %v", configPath, err)
		log.Println("Using default configuration")
		cfg = config.DefaultConfig()
	}

	// Initialize database
	db, err := storage.New(cfg.Database.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		// Get the directory of the executable to find migrations
		execPath, err := os.Executable()
		if err == nil {
			execDir := filepath.Dir(execPath)
			migrationsPath = filepath.Join(execDir, "..", "..", "migrations")
		} else {
			migrationsPath = "./migrations"
		}
	}
	if err := db.Migrate(migrationsPath); err != nil {
		log.Printf("Warning: migrations failed: %v", err)
	}

	// Initialize services
	accountService := services.NewAccountService(db)
	questService := services.NewQuestService(db)
	proposalService := services.NewProposalService(db, accountService)
	contributionService := services.NewContributionService(db, accountService)
	badgeService := services.NewBadgeService(db, accountService)
	refService := services.NewRefService(db)
	activityService := services.NewActivityService(db, accountService)
	sessionService := services.NewSessionService(db)

	dispatcher := ingest.NewDispatcher(accountService, questService, proposalService, contributionService, badgeService)

	// Remote endpoints
	xrpcClient := atproto.NewClient()
	bskyReader := atproto.NewBskyReader(cfg.ATProto.BskyAPIURL)

	// Set up HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Initialize handlers
	sessionConfig := middleware.SessionConfig{
		Secret:     cfg.Session.JWTSecret,
		Expiration: time.Duration(cfg.Session.ExpirationHours) * time.Hour,
	}
	webhookHandler := handlers.NewWebhookHandler(dispatcher)
	authHandler := handlers.NewAuthHandler(xrpcClient, sessionService, accountService, cfg.ATProto.PDSURL, sessionConfig)
	questHandler := handlers.NewQuestHandler(questService, accountService, sessionService, xrpcClient)
	proposalHandler := handlers.NewProposalHandler(proposalService, questService, sessionService, xrpcClient)
	contributionHandler := handlers.NewContributionHandler(contributionService, questService, sessionService, xrpcClient)
	badgeHandler := handlers.NewBadgeHandler(badgeService, refService, sessionService, xrpcClient)
	activityHandler := handlers.NewActivityHandler(activityService, contributionService)
	bskyHandler := handlers.NewBskyHandler(bskyReader)

	requireSession := middleware.SessionMiddleware(cfg.Session.JWTSecret)

	// API routes
	api := router.Group("/api")
	{
		// Event ingestion (shared-secret protected)
		api.POST("/webhook", middleware.WebhookAuthMiddleware(cfg.Webhook.Secret), webhookHandler.HandleEvent)

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", requireSession, authHandler.Logout)
			auth.GET("/me", requireSession, authHandler.Me)
		}

		// Quest routes
		quests := api.Group("/quests")
		{
			quests.GET("", questHandler.List)
			quests.GET("/mine", requireSession, questHandler.Mine)
			quests.GET("/:did/:rkey", questHandler.Get)
			quests.POST("", requireSession, questHandler.Create)
			quests.DELETE("/:rkey", requireSession, questHandler.Delete)
		}

		// Proposal routes
		proposals := api.Group("/proposals")
		{
			proposals.GET("", proposalHandler.List)
			proposals.POST("", requireSession, proposalHandler.Create)
			proposals.PATCH("/:rkey/state", requireSession, proposalHandler.SetState)
		}

		// Contribution routes
		contributions := api.Group("/contributions")
		{
			contributions.GET("", contributionHandler.List)
			contributions.POST("", requireSession, contributionHandler.Create)
		}

		// Badge routes
		badges := api.Group("/badges")
		{
			badges.GET("", badgeHandler.List)
			badges.POST("", requireSession, badgeHandler.Create)
		}

		// Activity routes
		activity := api.Group("/activity")
		{
			activity.GET("", activityHandler.Recent)
			activity.GET("/heatmap", activityHandler.Heatmap)
			activity.GET("/count", activityHandler.ContributionCount)
		}

		// Bluesky thread lookup
		api.GET("/bsky/thread", bskyHandler.Thread)
	}

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("App-view HTTP server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server exited")
}
