package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loveinaction/internal/cache"
	"loveinaction/internal/cms"
	"loveinaction/internal/config"
	"loveinaction/internal/database"
	"loveinaction/internal/handlers"
	"loveinaction/internal/metrics"
	"loveinaction/internal/repository"
	"loveinaction/internal/security"
	"loveinaction/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	m := metrics.New()

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	repairRepo := repository.NewRepairRepository(db)

	// CMS client with the system token; per-user and anonymous copies derive from it
	cmsClient := cms.New(cfg.StrapiURL,
		cms.WithAPIToken(cfg.StrapiAPIToken),
		cms.WithTimeout(cfg.CMSTimeout),
		cms.WithObserver(m.ObserveCMS),
	)
	if !cmsClient.HasToken() {
		log.Println("Warning: STRAPI_API_TOKEN not set, admin and sponsorship writes are disabled")
	}
	log.Printf("Using CMS at %s", cmsClient.BaseURL())

	var contentCache cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Printf("Warning: content cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			contentCache = redisCache
			log.Printf("Content cache enabled (ttl: %s)", cfg.CacheTTL)
		}
	}

	emailService, err := service.NewEmailService(context.Background(), service.EmailConfig{
		Provider:     cfg.EmailProvider,
		AWSRegion:    cfg.AWSRegion,
		FromEmail:    cfg.FromEmail,
		FromName:     cfg.FromName,
		ResendAPIKey: cfg.ResendAPIKey,
		AppBaseURL:   cfg.AppBaseURL,
		Debug:        cfg.EmailDebug,
	})
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Initialize services
	sponsorService := service.NewSponsorService(cmsClient)
	linker := service.NewRelationLinker(cmsClient, m)
	authService := service.NewAuthService(cmsClient, sponsorService, sessionRepo, cfg.SessionDuration)
	categoryService := service.NewCategoryService(sponsorService)
	relationService := service.NewRelationService(cmsClient, linker, repairRepo)
	confirmationService := service.NewConfirmationService(cmsClient, sponsorService, linker, emailService, cfg.ConfirmTokens)
	sponsorshipService := service.NewSponsorshipService(cmsClient)
	requestService := service.NewRequestService(cmsClient)
	announcementService := service.NewAnnouncementService(cmsClient)
	contentService := service.NewContentService(cmsClient, contentCache)
	maintenanceService := service.NewMaintenanceService(cmsClient)

	if cfg.ZeffyWebhookSecret == "" {
		log.Println("Warning: ZEFFY_WEBHOOK_SECRET not set, the CMS will reject forwarded donations")
	}
	donationService := service.NewDonationService(cmsClient, cfg.ZeffyWebhookSecret, donationRepo, m)

	adminKey, err := security.NewAdminKey(cfg.AdminRepairKey)
	if err != nil {
		log.Fatalf("Failed to initialize admin key: %v", err)
	}
	if !adminKey.Configured() {
		log.Println("Warning: ADMIN_REPAIR_KEY not set, admin routes will reject every request")
	}

	// Initialize handlers
	csrf := security.NewCSRFGenerator(cfg.SessionSecret)
	middleware := handlers.NewMiddleware(authService, csrf, security.NewRateLimiter(20, time.Minute), adminKey, cmsClient.HasToken())
	authHandler := handlers.NewAuthHandler(authService, csrf)
	categoryHandler := handlers.NewCategoryHandler(categoryService, sponsorService)
	sponsorshipHandler := handlers.NewSponsorshipHandler(confirmationService, sponsorshipService, cmsClient.HasToken())
	requestHandler := handlers.NewRequestHandler(requestService)
	announcementHandler := handlers.NewAnnouncementHandler(announcementService)
	contentHandler := handlers.NewContentHandler(contentService)
	webhookHandler := handlers.NewWebhookHandler(donationService)
	adminHandler := handlers.NewAdminHandler(relationService, maintenanceService, repairRepo)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handlers.Health)
	mux.Handle("GET /metrics", m.Handler())

	// Auth routes
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/auth/forgot-password", middleware.RateLimit(authHandler.ForgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", middleware.RateLimit(authHandler.ResetPassword))

	// Caller category and profile
	mux.HandleFunc("GET /api/me/category", middleware.OptionalSession(categoryHandler.Category))
	mux.HandleFunc("GET /api/me/sponsor", middleware.RequireSession(categoryHandler.Sponsor))
	mux.HandleFunc("GET /api/children/available-count", categoryHandler.AvailableChildren)

	// Sponsorship flow
	mux.HandleFunc("GET /api/confirm-sponsorship", middleware.RateLimit(sponsorshipHandler.Confirm))
	mux.HandleFunc("POST /api/update-sponsorship", middleware.RateLimit(sponsorshipHandler.Update))
	mux.HandleFunc("GET /api/sponsorship-requests", middleware.RequireSession(requestHandler.List))
	mux.HandleFunc("POST /api/sponsorship-requests", middleware.RequireSession(middleware.CSRFProtect(requestHandler.Create)))
	mux.HandleFunc("PUT /api/sponsorship-requests/{id}", middleware.RequireSession(middleware.CSRFProtect(requestHandler.Update)))

	// Public content
	mux.HandleFunc("GET /api/announcements", announcementHandler.List)
	mux.HandleFunc("GET /api/announcements/top", announcementHandler.Top)
	mux.HandleFunc("GET /api/alerts/{id}", announcementHandler.Alert)
	mux.HandleFunc("GET /api/content/{kind}", contentHandler.List)
	mux.HandleFunc("GET /api/content/events/upcoming", contentHandler.UpcomingEvents)
	mux.HandleFunc("GET /api/content/blogs/{id}", contentHandler.Blog)

	// Donations
	mux.HandleFunc("POST /zeffy-webhook", webhookHandler.Zeffy)

	// Admin routes
	mux.HandleFunc("GET /api/admin/fix-relations", middleware.RequireAdminKey(adminHandler.DetectOrphans))
	mux.HandleFunc("POST /api/admin/fix-relations", middleware.RequireAdminKey(adminHandler.RepairOrphans))
	mux.HandleFunc("POST /api/admin/ensure-bidirectional-relation", middleware.RequireAdminKey(adminHandler.EnsureRelation))
	mux.HandleFunc("GET /api/admin/repair-runs", middleware.RequireAdminKey(adminHandler.RepairRuns))
	mux.HandleFunc("GET /api/admin/duplicates", middleware.RequireAdminKey(adminHandler.Duplicates))
	mux.HandleFunc("GET /api/admin/export", middleware.RequireAdminKey(adminHandler.Export))

	handler := handlers.Logging(handlers.Instrument(m, handlers.SecurityHeaders(mux)))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		n, err := authService.CleanupExpiredSessions()
		if err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
			continue
		}
		log.Printf("Expired sessions cleaned up: %d", n)
	}
}
