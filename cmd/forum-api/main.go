package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lms-forum-api/api/swagger"
	"github.com/noah-isme/lms-forum-api/internal/events"
	"github.com/noah-isme/lms-forum-api/internal/handler"
	"github.com/noah-isme/lms-forum-api/internal/middleware"
	"github.com/noah-isme/lms-forum-api/internal/models"
	"github.com/noah-isme/lms-forum-api/internal/repository"
	"github.com/noah-isme/lms-forum-api/internal/service"
	"github.com/noah-isme/lms-forum-api/pkg/cache"
	"github.com/noah-isme/lms-forum-api/pkg/config"
	"github.com/noah-isme/lms-forum-api/pkg/database"
	"github.com/noah-isme/lms-forum-api/pkg/export"
	"github.com/noah-isme/lms-forum-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-forum-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-forum-api/pkg/middleware/requestid"
)

// @title LMS Forum API
// @version 0.1.0
// @description Threaded discussion service for the learning platform
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional: without it the API serves uncached and events
	// fall back to the no-op bus.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and events degraded", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()

	var bus events.Bus = events.NopBus{}
	if cfg.Events.Enabled && redisClient != nil {
		bus = events.NewMeteredBus(events.NewRedisBus(redisClient, cfg.Events.ChannelPrefix), metrics.RecordEventPublished)
	}

	categoryRepo := repository.NewCategoryRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	postRepo := repository.NewPostRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	userRepo := repository.NewUserRepository(db)

	// NewCacheRepository tolerates a nil client; every call degrades to a
	// miss or a no-op.
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	policy := service.NewPolicyService(categoryRepo, threadRepo, courseRepo, logr)

	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "lms-forum-api",
	})

	categoryService := service.NewCategoryService(categoryRepo, cacheRepo, bus, nil, logr).
		WithDefaultVisibility(cfg.Forum.DefaultVisibility).
		WithCacheTTL(cfg.Forum.CategoryCacheTTL).
		WithMetrics(metrics)

	threadService := service.NewThreadService(threadRepo, categoryRepo, postRepo, subscriptionRepo, policy, bus, nil, logr)
	postService := service.NewPostService(postRepo, threadRepo, subscriptionRepo, bus, nil, logr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Notifications.Enabled {
		notifications := service.NewNotificationService(subscriptionRepo, bus, logr, service.NotificationConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
		})
		notifications.Start(ctx)
		defer notifications.Stop()
		postService.WithNotifier(notifications)
	}

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		exportService = service.NewExportService(threadRepo, postRepo, policy, logr, export.NewCSVExporter(), export.NewPDFExporter())
	}

	authHandler := handler.NewAuthHandler(authService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	threadHandler := handler.NewThreadHandler(threadService, exportService)
	postHandler := handler.NewPostHandler(postService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", middleware.JWT(authService), authHandler.Me)

		api.GET("/categories", categoryHandler.List)
		api.GET("/categories/:id", categoryHandler.Get)
		api.POST("/categories", middleware.JWT(authService), categoryHandler.Create)
		api.PUT("/categories/:id", middleware.JWT(authService), categoryHandler.Update)
		api.DELETE("/categories/:id", middleware.JWT(authService), categoryHandler.Delete)

		api.GET("/categories/:id/threads", threadHandler.List)
		api.POST("/categories/:id/threads", middleware.JWT(authService), threadHandler.Create)

		api.GET("/threads/:id", middleware.OptionalJWT(authService), threadHandler.Get)
		api.PUT("/threads/:id", middleware.JWT(authService), threadHandler.Update)
		api.DELETE("/threads/:id", middleware.JWT(authService), threadHandler.Delete)

		api.POST("/threads/:id/pin", middleware.JWT(authService), threadHandler.Pin)
		api.DELETE("/threads/:id/pin", middleware.JWT(authService), threadHandler.Unpin)
		api.POST("/threads/:id/lock", middleware.JWT(authService), threadHandler.Lock)
		api.DELETE("/threads/:id/lock", middleware.JWT(authService), threadHandler.Unlock)

		api.PUT("/threads/:id/subscription", middleware.JWT(authService), threadHandler.Subscribe)
		api.DELETE("/threads/:id/subscription", middleware.JWT(authService), threadHandler.Unsubscribe)

		if exportService != nil {
			api.GET("/threads/:id/transcript", middleware.JWT(authService), threadHandler.Transcript)
		}

		api.POST("/threads/:id/posts", middleware.JWT(authService), postHandler.Add)
		api.PUT("/posts/:id", middleware.JWT(authService), postHandler.Update)
		api.DELETE("/posts/:id", middleware.JWT(authService), postHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
