package main

// @title AqarLink CRM API
// @version 1.0
// @description Real-estate sales CRM: leads, clients, follow-ups and bulk import for the Egyptian market.

/// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aqarlink/crm/config"
	"github.com/aqarlink/crm/pkg/api/handlers"
	"github.com/aqarlink/crm/pkg/audit"
	"github.com/aqarlink/crm/pkg/auth"
	"github.com/aqarlink/crm/pkg/backup"
	"github.com/aqarlink/crm/pkg/cache"
	"github.com/aqarlink/crm/pkg/clients"
	"github.com/aqarlink/crm/pkg/dashboard"
	"github.com/aqarlink/crm/pkg/database"
	"github.com/aqarlink/crm/pkg/email"
	"github.com/aqarlink/crm/pkg/export"
	"github.com/aqarlink/crm/pkg/importer"
	"github.com/aqarlink/crm/pkg/interactions"
	"github.com/aqarlink/crm/pkg/jobs"
	"github.com/aqarlink/crm/pkg/leadassignment"
	"github.com/aqarlink/crm/pkg/leaddedup"
	"github.com/aqarlink/crm/pkg/leadlifecycle"
	"github.com/aqarlink/crm/pkg/leads"
	"github.com/aqarlink/crm/pkg/leadscoring"
	"github.com/aqarlink/crm/pkg/metrics"
	custommw "github.com/aqarlink/crm/pkg/middleware"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/notifications"
	"github.com/aqarlink/crm/pkg/reminders"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database
	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db.DB); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Initialize rate limiters
	globalRateLimiter := custommw.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	authRateLimiter := custommw.NewRateLimiter(5, 2) // login brute-force protection

	// Global middleware
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())

	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}))

	e.Use(echomw.Gzip())
	e.Use(echomw.Secure())

	e.Use(globalRateLimiter.Middleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "AqarLink CRM API",
			"version":     "1.0.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}

		if _, err := redisClient.Redis.Ping(c.Request().Context()).Result(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
			"cache":    "up",
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Initialize JWT blacklist
	tokenBlacklist := auth.NewTokenBlacklist(redisClient)

	// Initialize audit logger
	auditLogger := audit.NewService(db.DB)
	log.Printf("✅ Audit logging initialized")

	// Initialize email service
	emailService := email.NewService(
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.FrontendURL,
		cfg.SendGridAPIKey,
	)

	// Initialize backup service (if enabled)
	var backupService *backup.Service
	if cfg.BackupEnabled {
		backupService, err = backup.NewService(db.DB, backup.Config{
			AWSAccessKeyID:     cfg.AWSAccessKeyID,
			AWSSecretAccessKey: cfg.AWSSecretAccessKey,
			AWSRegion:          cfg.AWSRegion,
			S3Bucket:           cfg.BackupS3Bucket,
			DatabaseURL:        cfg.DatabaseURL,
			LocalBackupDir:     cfg.BackupLocalDir,
			RetentionDays:      cfg.BackupRetentionDays,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize backup service: %v", err)
		} else {
			log.Printf("✅ Backup service initialized (S3: %s, retention: %d days)",
				cfg.BackupS3Bucket, cfg.BackupRetentionDays)
		}
	} else {
		log.Printf("ℹ️  Backup service disabled (BACKUP_ENABLED=false)")
	}

	// Initialize services
	authService := auth.NewService(db.DB, tokenBlacklist, cfg.JWTSecret, cfg.JWTExpirationHours)
	leadService := leads.NewService(db.DB)
	dedupService := leaddedup.NewService(db.DB)
	lifecycleService := leadlifecycle.NewService(db.DB)
	assignmentService := leadassignment.NewService(db.DB)
	scoringService := leadscoring.NewService(db.DB)
	clientService := clients.NewService(db.DB)
	interactionService := interactions.NewService(db.DB)
	reminderService := reminders.NewService(db.DB)
	notificationHub := notifications.NewHub()
	notificationService := notifications.NewService(db.DB, notificationHub)
	importService := importer.NewService(db.DB, dedupService)
	exportService := export.NewService(db.DB, cfg.StorageLocalPath)
	dashboardService := dashboard.NewService(db.DB, redisClient)

	// Initialize cron manager
	cronManager := jobs.NewCronManager(
		db.DB,
		reminderService,
		notificationService,
		scoringService,
		backupService,
		emailService,
		log.Default(),
	)
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to setup cron jobs: %v", err)
	}
	cronManager.Start()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, auditLogger, emailService, prometheusMetrics)
	leadHandler := handlers.NewLeadHandler(leadService, lifecycleService, dedupService, auditLogger, prometheusMetrics)
	lifecycleHandler := handlers.NewLifecycleHandler(lifecycleService, dashboardService, auditLogger, prometheusMetrics)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService, notificationService, emailService, auditLogger, prometheusMetrics)
	scoringHandler := handlers.NewScoringHandler(scoringService)
	clientHandler := handlers.NewClientHandler(clientService, auditLogger)
	interactionHandler := handlers.NewInteractionHandler(interactionService)
	reminderHandler := handlers.NewReminderHandler(reminderService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, notificationHub)
	importHandler := handlers.NewImportHandler(importService, auditLogger, prometheusMetrics)
	exportHandler := handlers.NewExportHandler(exportService, auditLogger, prometheusMetrics)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	adminHandler := handlers.NewAdminHandler(db.DB, auditLogger, backupService)

	jwtAuth := custommw.JWTMiddlewareWithBlacklist(cfg.JWTSecret, tokenBlacklist, db.DB)

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Authentication routes (public)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register, authRateLimiter.Middleware())
		authRoutes.POST("/login", authHandler.Login, authRateLimiter.Middleware())
		authRoutes.GET("/me", authHandler.Me, jwtAuth)
		authRoutes.POST("/logout", authHandler.Logout, jwtAuth)
	}

	// Protected routes (require JWT with blacklist validation)
	protected := v1.Group("")
	protected.Use(jwtAuth)
	{
		// Lead routes
		leadsGroup := protected.Group("/leads")
		{
			leadsGroup.GET("", leadHandler.List)
			leadsGroup.POST("", leadHandler.Create)
			leadsGroup.GET("/users", leadHandler.ListUsers)
			leadsGroup.POST("/check-duplicates", leadHandler.CheckDuplicates)
			leadsGroup.POST("/bulk-check-duplicates", leadHandler.BulkCheckDuplicates)
			leadsGroup.GET("/score-distribution", scoringHandler.Distribution)
			leadsGroup.POST("/distribute", assignmentHandler.Distribute,
				custommw.RequireRole(models.RoleAdmin, models.RoleSalesManager))
			leadsGroup.POST("/import", importHandler.Upload,
				custommw.RequireRole(models.RoleAdmin, models.RoleSalesManager))
			leadsGroup.GET("/import/template", importHandler.Template)

			leadsGroup.GET("/:id", leadHandler.Get)
			leadsGroup.PUT("/:id", leadHandler.Update)
			leadsGroup.DELETE("/:id", leadHandler.Archive,
				custommw.RequireRole(models.RoleAdmin, models.RoleSalesManager))
			leadsGroup.PUT("/:id/status", lifecycleHandler.UpdateStatus)
			leadsGroup.GET("/:id/status-history", lifecycleHandler.StatusHistory)
			leadsGroup.POST("/:id/convert", lifecycleHandler.Convert)
			leadsGroup.POST("/:id/assign", assignmentHandler.Assign,
				custommw.RequireRole(models.RoleAdmin, models.RoleSalesManager))
			leadsGroup.GET("/:id/assignments", assignmentHandler.LeadHistory)
			leadsGroup.GET("/:id/score", scoringHandler.GetScore)
			leadsGroup.POST("/:id/score", scoringHandler.UpdateScore)
		}

		// Client routes
		clientsGroup := protected.Group("/clients")
		{
			clientsGroup.GET("", clientHandler.List)
			clientsGroup.POST("", clientHandler.Create)
			clientsGroup.GET("/:id", clientHandler.Get)
			clientsGroup.PUT("/:id", clientHandler.Update)
			clientsGroup.DELETE("/:id", clientHandler.Archive,
				custommw.RequireRole(models.RoleAdmin, models.RoleSalesManager))
		}

		// Interaction routes
		interactionsGroup := protected.Group("/interactions")
		{
			interactionsGroup.POST("", interactionHandler.Create)
			interactionsGroup.GET("/recent", interactionHandler.Recent)
			interactionsGroup.GET("/:type/:id", interactionHandler.History)
			interactionsGroup.POST("/:type/:id/notes", interactionHandler.AddNote)
		}

		// Follow-up reminder routes
		followUpsGroup := protected.Group("/follow-ups")
		{
			followUpsGroup.GET("", reminderHandler.List)
			followUpsGroup.POST("", reminderHandler.Create)
			followUpsGroup.GET("/today", reminderHandler.Today)
			followUpsGroup.PUT("/:id", reminderHandler.Update)
			followUpsGroup.PUT("/:id/done", reminderHandler.MarkDone)
		}

		// Notification routes
		notificationsGroup := protected.Group("/notifications")
		{
			notificationsGroup.GET("", notificationHandler.List)
			notificationsGroup.GET("/unread-count", notificationHandler.UnreadCount)
			notificationsGroup.PUT("/read-all", notificationHandler.MarkAllRead)
			notificationsGroup.PUT("/:id/read", notificationHandler.MarkRead)
		}

		// Export
		protected.POST("/export", exportHandler.Create,
			custommw.RequireRole(models.RoleAdmin, models.RoleSalesManager))

		// Dashboard
		protected.GET("/dashboard", dashboardHandler.Summary)

		// Admin routes (require admin role)
		adminGroup := protected.Group("/admin")
		adminGroup.Use(custommw.RequireAdmin())
		{
			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.PUT("/users/:id", adminHandler.UpdateUser)
			adminGroup.GET("/audit", adminHandler.AuditLog)
			adminGroup.POST("/backups", adminHandler.TriggerBackup)
			adminGroup.GET("/backups", adminHandler.BackupHistory)
		}
	}

	// SSE stream authenticates via header or ?token= because EventSource
	// cannot set headers.
	v1.GET("/notifications/stream", notificationHandler.Stream,
		custommw.JWTFromQueryOrHeader(cfg.JWTSecret, tokenBlacklist, db.DB))

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 AqarLink CRM API starting on %s", address)
	log.Printf("🔐 JWT expiration: %d hours", cfg.JWTExpirationHours)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	log.Printf("⏰ Cron jobs: reminders every 5 min, score recompute 3AM, backup 2AM (when enabled)")

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	cronManager.Stop()
	log.Println("✅ Cron jobs stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
