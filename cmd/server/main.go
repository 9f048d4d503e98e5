package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/infrastructure/auth"
	"github.com/orderbridge/backend/internal/infrastructure/cache"
	"github.com/orderbridge/backend/internal/infrastructure/config"
	"github.com/orderbridge/backend/internal/infrastructure/event"
	"github.com/orderbridge/backend/internal/infrastructure/logger"
	"github.com/orderbridge/backend/internal/infrastructure/persistence"
	"github.com/orderbridge/backend/internal/infrastructure/platform"
	"github.com/orderbridge/backend/internal/infrastructure/scheduler"
	"github.com/orderbridge/backend/internal/interfaces/http/handler"
	"github.com/orderbridge/backend/internal/interfaces/http/middleware"
	"github.com/orderbridge/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting OrderBridge Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	configRepo := persistence.NewGormPlatformConfigRepository(db.DB)
	orderRepo := persistence.NewGormDeliveryOrderRepository(db.DB)
	mappingRepo := persistence.NewGormMenuItemMappingRepository(db.DB)
	logRepo := persistence.NewGormOperationLogRepository(db.DB)

	// Token cache: Redis with in-memory fallback outside production
	cacheFactory := cache.NewTokenCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	tokenCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to initialize token cache", zap.Error(err))
	}

	// Platform adapters share one HTTP client
	platformClient := platform.NewClient(log)
	registry := platform.NewDefaultRegistry(platformClient, log)

	// Initialize application services
	tokenService := appdelivery.NewTokenService(configRepo, registry, tokenCache, log)
	logService := appdelivery.NewLogService(logRepo, log)
	broadcaster := event.NewInMemoryOrderBroadcaster(log)
	orderService := appdelivery.NewOrderService(orderRepo, mappingRepo, configRepo, registry, tokenService, logService, broadcaster, log)
	statusSyncService := appdelivery.NewStatusSyncService(orderRepo, configRepo, registry, tokenService, logService, broadcaster, log)
	configService := appdelivery.NewConfigService(configRepo, registry, tokenService, logService, log)
	menuService := appdelivery.NewMenuService(mappingRepo, configRepo, registry, tokenService, logService, log)
	retryService := appdelivery.NewRetryService(logRepo, orderRepo, statusSyncService, log)

	webhookAuth := appdelivery.NewWebhookAuthenticator(appdelivery.WebhookSecrets{
		Getir:       cfg.Delivery.WebhookSecrets.Getir,
		Yemeksepeti: cfg.Delivery.WebhookSecrets.Yemeksepeti,
		Trendyol:    cfg.Delivery.WebhookSecrets.Trendyol,
	}, log)

	// JWT for the admin API
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist
	if redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		log.Warn("Token blacklist unavailable, revoked tokens are not tracked", zap.Error(err))
	} else {
		blacklist = redisBlacklist
	}

	// Background schedulers
	if cfg.Delivery.Poll.Enabled {
		pollScheduler, err := scheduler.NewOrderPollScheduler(scheduler.OrderPollSchedulerConfig{
			Enabled:            cfg.Delivery.Poll.Enabled,
			TickInterval:       cfg.Delivery.Poll.TickInterval,
			MaxConcurrentPolls: cfg.Delivery.Poll.MaxConcurrentPolls,
			PollTimeout:        cfg.Delivery.Poll.PollTimeout,
		}, configRepo, registry, tokenService, orderService, logService, log)
		if err != nil {
			log.Fatal("Failed to create order poll scheduler", zap.Error(err))
		}
		if err := pollScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start order poll scheduler", zap.Error(err))
		}
		defer func() {
			if err := pollScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping order poll scheduler", zap.Error(err))
			}
		}()
		log.Info("Order poll scheduler started",
			zap.Duration("tick_interval", cfg.Delivery.Poll.TickInterval),
			zap.Int("max_concurrent_polls", cfg.Delivery.Poll.MaxConcurrentPolls),
		)
	}

	if cfg.Delivery.Retry.Enabled {
		retryScheduler, err := scheduler.NewRetryScheduler(scheduler.RetrySchedulerConfig{
			Enabled:   cfg.Delivery.Retry.Enabled,
			Interval:  cfg.Delivery.Retry.Interval,
			BatchSize: cfg.Delivery.Retry.BatchSize,
		}, retryService, log)
		if err != nil {
			log.Fatal("Failed to create retry scheduler", zap.Error(err))
		}
		if err := retryScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start retry scheduler", zap.Error(err))
		}
		defer func() {
			if err := retryScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping retry scheduler", zap.Error(err))
			}
		}()
		log.Info("Retry scheduler started",
			zap.Duration("interval", cfg.Delivery.Retry.Interval),
			zap.Int("batch_size", cfg.Delivery.Retry.BatchSize),
		)
	}

	if cfg.Delivery.TokenRefresh.Enabled {
		tokenScheduler, err := scheduler.NewTokenRefreshScheduler(scheduler.TokenRefreshSchedulerConfig{
			Enabled:  cfg.Delivery.TokenRefresh.Enabled,
			Interval: cfg.Delivery.TokenRefresh.Interval,
		}, tokenService, log)
		if err != nil {
			log.Fatal("Failed to create token refresh scheduler", zap.Error(err))
		}
		if err := tokenScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start token refresh scheduler", zap.Error(err))
		}
		defer func() {
			if err := tokenScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping token refresh scheduler", zap.Error(err))
			}
		}()
		log.Info("Token refresh scheduler started",
			zap.Duration("interval", cfg.Delivery.TokenRefresh.Interval),
		)
	}

	// Initialize HTTP handlers
	platformConfigHandler := handler.NewPlatformConfigHandler(configService)
	menuMappingHandler := handler.NewMenuMappingHandler(menuService)
	deliveryOrderHandler := handler.NewDeliveryOrderHandler(orderService, statusSyncService)
	operationLogHandler := handler.NewOperationLogHandler(logService)
	webhookHandler := handler.NewWebhookHandler(webhookAuth, configRepo, registry, orderService, log)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// Marketplace webhook endpoint. The platforms call this directly, so it
	// sits outside the authenticated API surface; signature verification
	// happens in the handler.
	engine.POST("/webhooks/delivery/:platform/:restaurantId", webhookHandler.Receive)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.SkipPaths = append(tenantConfig.SkipPaths, "/api/v1/ping", "/api/v1/system/info")
	tenantConfig.Logger = log
	r.Use(middleware.TenantMiddlewareWithConfig(tenantConfig))

	// Delivery domain (platform configs, menu mappings, orders, operation log)
	deliveryRoutes := router.NewDomainGroup("delivery", "/delivery")
	deliveryRoutes.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "delivery service ready"})
	})

	// Platform configuration routes
	deliveryRoutes.GET("/configs", platformConfigHandler.List)
	deliveryRoutes.POST("/configs", platformConfigHandler.Create)
	deliveryRoutes.GET("/configs/:platform", platformConfigHandler.Get)
	deliveryRoutes.PUT("/configs/:platform", platformConfigHandler.Update)
	deliveryRoutes.DELETE("/configs/:platform", platformConfigHandler.Delete)
	deliveryRoutes.POST("/configs/:platform/test", platformConfigHandler.TestConnection)
	deliveryRoutes.POST("/configs/:platform/reset-errors", platformConfigHandler.ResetErrors)
	deliveryRoutes.PUT("/configs/:platform/restaurant", platformConfigHandler.ToggleRestaurant)

	// Menu item mapping routes
	deliveryRoutes.GET("/mappings", menuMappingHandler.List)
	deliveryRoutes.POST("/mappings", menuMappingHandler.Create)
	deliveryRoutes.GET("/mappings/:id", menuMappingHandler.Get)
	deliveryRoutes.PUT("/mappings/:id", menuMappingHandler.Update)
	deliveryRoutes.DELETE("/mappings/:id", menuMappingHandler.Delete)
	deliveryRoutes.PUT("/mappings/:id/availability", menuMappingHandler.UpdateAvailability)

	// Menu push
	deliveryRoutes.POST("/menu/:platform/sync", menuMappingHandler.SyncMenu)

	// Ingested order routes
	deliveryRoutes.GET("/orders/:id", deliveryOrderHandler.Get)
	deliveryRoutes.PUT("/orders/:id/status", deliveryOrderHandler.UpdateStatus)

	// Operation log routes
	deliveryRoutes.GET("/logs", operationLogHandler.List)
	deliveryRoutes.GET("/logs/:id", operationLogHandler.Get)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)

	r.Register(deliveryRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
