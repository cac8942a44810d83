package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/registrar-api/api/swagger"
	"github.com/noah-isme/registrar-api/internal/handler"
	"github.com/noah-isme/registrar-api/internal/middleware"
	"github.com/noah-isme/registrar-api/internal/models"
	"github.com/noah-isme/registrar-api/internal/repository"
	"github.com/noah-isme/registrar-api/internal/service"
	"github.com/noah-isme/registrar-api/pkg/cache"
	"github.com/noah-isme/registrar-api/pkg/config"
	"github.com/noah-isme/registrar-api/pkg/database"
	"github.com/noah-isme/registrar-api/pkg/jobs"
	"github.com/noah-isme/registrar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/registrar-api/pkg/middleware/requestid"
	"github.com/noah-isme/registrar-api/pkg/storage"
)

// @title Registrar Document Request API
// @version 1.0.0
// @description Lifecycle tracking for registrar document requests
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Redis is optional; catalog listings fall back to the database.
	var cacheService *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog caching disabled", "error", err)
		cacheService = service.NewCacheService(nil, metrics, cfg.Catalog.CacheTTL, logr, false)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	requesterRepo := repository.NewRequesterRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)

	reportFiles, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	trackingSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, 30*24*time.Hour)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "registrar-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	catalogService := service.NewCatalogService(catalogRepo, cacheService, userRepo, cfg.Catalog.CacheTTL, logr)
	departmentService := service.NewDepartmentService(departmentRepo)
	scopeService := service.NewScopeService(departmentRepo)

	notifier := service.NewNotificationService(nil, trackingSigner, cfg.Notifications.PublicURL, logr)
	mailer := service.MailerFunc(func(ctx context.Context, event service.NotificationEvent) error {
		// Delivery integration lands separately; the event is logged so the
		// pipeline is observable end to end.
		logr.Sugar().Infow("notification",
			"kind", event.Kind,
			"request_no", event.RequestNo,
			"status", event.Status,
			"recipient", event.RecipientEmail,
			"tracking_url", event.TrackingURL)
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Notifications.Enabled {
		queue := jobs.NewQueue("notifications", notifier.Handler(mailer), jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		notifier.Attach(queue)
	}

	requestService := service.NewRequestService(
		requestRepo,
		catalogRepo,
		service.NewRequesterService(requesterRepo),
		service.NewPricingService(catalogRepo),
		service.NewIdentifierGenerator(),
		scopeService,
		userRepo,
		notifier,
		metrics,
		validate,
		logr,
	)
	reportService := service.NewReportService(requestRepo, scopeService, reportFiles, reportSigner, userRepo, logr)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	requestHandler := handler.NewRequestHandler(requestService)
	reportHandler := handler.NewReportHandler(reportService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	departmentHandler := handler.NewDepartmentHandler(departmentService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: intake, reference tracking, catalog browsing, and
	// signed report downloads.
	api.POST("/requests", requestHandler.Create)
	api.GET("/track/:reference", requestHandler.Track)
	api.GET("/catalog/document-types", catalogHandler.ListDocumentTypes)
	api.GET("/catalog/document-types/:id/purposes", catalogHandler.ListPurposesForDocumentType)
	api.GET("/catalog/purposes", catalogHandler.ListPurposes)
	api.GET("/reports/download/:token", reportHandler.Download)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	staff := api.Group("")
	staff.Use(middleware.JWT(authService))
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
	staff.GET("/requests", requestHandler.List)
	staff.GET("/requests/:id", requestHandler.Get)
	staff.GET("/requests/:id/history", requestHandler.History)
	staff.POST("/requests/:id/transition", requestHandler.Transition)
	staff.POST("/requests/:id/reschedule", requestHandler.Reschedule)
	staff.PUT("/requests/:id/notes", requestHandler.UpdateNotes)
	staff.GET("/reports/requests", reportHandler.Query)
	staff.POST("/reports/requests/export",
		middleware.Audit(userRepo, models.AuditActionReportExport, "report"),
		reportHandler.Export)
	staff.GET("/departments", departmentHandler.List)

	admin := api.Group("")
	admin.Use(middleware.JWT(authService))
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.GET("/users/:id", userHandler.Get)
	admin.PUT("/users/:id", userHandler.Update)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.GET("/users/:id/departments", departmentHandler.Memberships)
	admin.POST("/users/:id/departments", departmentHandler.Assign)
	admin.DELETE("/users/:id/departments/:departmentId", departmentHandler.Remove)
	admin.PATCH("/catalog/document-types/:id/active", catalogHandler.SetDocumentTypeActive)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
