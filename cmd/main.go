package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"license-console-service/internal/cache"
	"license-console-service/internal/clients"
	"license-console-service/internal/config"
	"license-console-service/internal/events"
	"license-console-service/internal/handlers"
	"license-console-service/internal/middleware"
	"license-console-service/internal/models"
	"license-console-service/internal/repository"
	"license-console-service/internal/services"
	"license-console-service/internal/workers"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	if err := db.AutoMigrate(&models.ImportAttempt{}); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	handlers.SetDB(db)

	// Initialize Redis cache (optional - graceful degradation if Redis unavailable)
	clubCache, err := cache.NewClubCache(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	if err != nil || !clubCache.IsAvailable() {
		logger.Warn("Redis unavailable, continuing without club caching")
	} else {
		logger.Info("Connected to Redis for club caching")
	}

	// Initialize upstream clients
	importClient := clients.NewImportClient()
	clubClient := clients.NewClubClient()

	// Initialize repositories
	attemptRepo := repository.NewImportAttemptRepository(db)

	// Initialize NATS event publisher (optional)
	var eventPublisher services.ImportEventPublisher
	publisher, err := events.NewPublisher(logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to NATS, import events disabled")
	} else {
		eventPublisher = publisher
		logger.Info("NATS event publisher initialized")
	}

	// Committed club imports change the scope selector data, so drop the
	// cached club list for the tenant.
	onComplete := func(attempt *models.ImportAttempt) {
		if clubCache == nil || attempt.SubjectType != models.ImportSubjectClubs {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := clubCache.Invalidate(ctx, attempt.TenantID); err != nil {
			logger.WithError(err).Warn("Failed to invalidate club cache after import")
		}
	}

	// Initialize services
	wizardService := services.NewWizardService(importClient, attemptRepo, eventPublisher, onComplete, logger)

	// Initialize handlers
	wizardHandler := handlers.NewImportWizardHandler(wizardService)
	templateHandler := handlers.NewTemplateHandler()
	clubHandler := handlers.NewClubHandler(clubClient, clubCache, logger)
	historyHandler := handlers.NewHistoryHandler(attemptRepo)

	// Initialize background workers
	sessionReaper := workers.NewSessionReaper(
		wizardService,
		time.Duration(cfg.ReapIntervalMinutes)*time.Minute,
		time.Duration(cfg.SessionMaxIdleMinutes)*time.Minute,
	)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Tenant-ID", "X-User-ID", "X-User-Role", "X-Club-ID", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.TenantMiddleware())
	router.Use(middleware.OperatorMiddleware())
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		imports := v1.Group("/imports")
		{
			wizard := imports.Group("/wizard")
			{
				wizard.POST("", wizardHandler.StartWizard)
				wizard.GET("/:id", wizardHandler.GetWizard)
				wizard.PUT("/:id/target", wizardHandler.SetTarget)
				wizard.POST("/:id/file", wizardHandler.UploadFile)
				wizard.PUT("/:id/mapping", wizardHandler.UpdateMapping)
				wizard.POST("/:id/preview", wizardHandler.Preview)
				wizard.PUT("/:id/rows/:index", wizardHandler.SetRowAction)
				wizard.POST("/:id/commit", wizardHandler.Commit)
				wizard.DELETE("/:id", wizardHandler.DiscardWizard)
			}

			imports.GET("/history", historyHandler.ListImports)
			imports.GET("/:subject/template", templateHandler.GetImportTemplate)
		}

		v1.GET("/clubs", clubHandler.GetClubs)
	}

	// Start background workers
	sessionReaper.Start()
	logger.Info("Session reaper started")

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Starting license-console-service on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down license-console-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessionReaper.Stop()

	if publisher != nil {
		publisher.Close()
	}
	if clubCache != nil {
		if err := clubCache.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close Redis connection")
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
