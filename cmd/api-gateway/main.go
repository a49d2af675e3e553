package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sprs-api/api/swagger"
	"github.com/noah-isme/sprs-api/internal/handler"
	"github.com/noah-isme/sprs-api/internal/middleware"
	"github.com/noah-isme/sprs-api/internal/repository"
	"github.com/noah-isme/sprs-api/internal/router"
	"github.com/noah-isme/sprs-api/internal/service"
	"github.com/noah-isme/sprs-api/pkg/cache"
	"github.com/noah-isme/sprs-api/pkg/config"
	"github.com/noah-isme/sprs-api/pkg/database"
	"github.com/noah-isme/sprs-api/pkg/export"
	"github.com/noah-isme/sprs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sprs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sprs-api/pkg/middleware/requestid"
	"github.com/noah-isme/sprs-api/pkg/storage"
)

// @title SPRS API
// @version 1.0.0
// @description Student permission request system
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var cacheRepo *repository.CacheRepository
	cacheEnabled := cfg.Dashboard.Enabled
	if cacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheEnabled)
	}

	letterStore, err := storage.NewLocalStorage(cfg.Letters.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare letter storage", zap.Error(err))
	}
	exportSvc := service.NewExportService(
		letterStore,
		storage.NewSignedURLSigner(cfg.Letters.SignedURLSecret, cfg.Letters.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, InstitutionName: cfg.Letters.InstitutionName},
		logr,
		export.NewCSVExporter(),
		export.NewPDFExporter(),
	)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.ServiceName,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, metrics, logr)

	requestOpts := []service.RequestServiceOption{
		service.WithLetterArchiver(exportSvc),
		service.WithRequestMetrics(metrics),
	}
	if cacheSvc != nil {
		requestOpts = append(requestOpts, service.WithRequestCache(cacheSvc))
	}
	requestSvc := service.NewRequestService(requestRepo, userRepo, notificationSvc, validate, logr, requestOpts...)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Requests:      requestRepo,
		Notifications: notificationSvc,
		Cache:         cacheSvc,
		Logger:        logr,
		Config:        service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	readiness := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if cacheRepo != nil {
		readiness["redis"] = cacheRepo.Ping
	}
	metricsHandler := handler.NewMetricsHandler(metrics, readiness)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.WithResponseMeta())
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.Register(r, router.Handlers{
		Auth:          handler.NewAuthHandler(authSvc, userSvc),
		Requests:      handler.NewRequestHandler(requestSvc),
		Letters:       handler.NewLetterHandler(requestSvc, exportSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc, cfg.Notifications.DefaultPageSize, cfg.Notifications.RetentionDays),
		Users:         handler.NewUserHandler(userSvc),
		Dashboards:    handler.NewDashboardHandler(dashboardSvc),
	}, router.Options{
		APIPrefix:      cfg.APIPrefix,
		TokenValidator: authSvc,
		AuditWriter:    userRepo,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
