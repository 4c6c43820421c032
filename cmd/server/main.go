package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	config "github.com/kayendev-lutech/ecommerce/configs"
	"github.com/kayendev-lutech/ecommerce/internal/application/cache"
	"github.com/kayendev-lutech/ecommerce/internal/application/services"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/db"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/health"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/httpserver"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/logging"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/memory"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/queue"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/redis"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.New(cfg.Log)
	logger.Info("Starting ecommerce API...")

	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	if err := database.Migrate(); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	var backend ports.CacheBackend
	switch cfg.Cache.Backend {
	case "memory":
		backend = memory.NewCache()
		logger.Warn("Using in-process cache backend; entries are not shared between instances")
	default:
		backend = redis.NewRedisCache(redisClient, cfg.Cache.KeyPrefix)
	}

	cacheManager := cache.NewManager(backend, cache.ProductCacheConfig{
		MetaTTL:     cfg.Cache.MetaTTL,
		PriceTTL:    cfg.Cache.PriceTTL,
		VariantsTTL: cfg.Cache.VariantsTTL,
		ListTTL:     cfg.Cache.ListTTL,
		GetOrSetTTL: cfg.Cache.GetOrSetTTL,
	}, logger, cache.NewMetrics(prometheus.DefaultRegisterer))

	productRepo := repositories.NewProductRepository(database, logger)
	jobQueue := queue.NewRedisQueue(redisClient, &cfg.Queue, logger)

	productService := services.NewProductService(productRepo, cacheManager.ProductCache(), jobQueue, services.ProductServiceConfig{
		ImageUploadQueue: cfg.Queue.ImageUploadQueue,
		MaxRetries:       cfg.Queue.MaxRetries,
	}, logger)

	rateLimiterConfig := &services.RateLimiterConfig{
		DefaultRequestsPerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
		BurstMultiplier:          cfg.RateLimit.BurstMultiplier,
		Window:                   cfg.RateLimit.Window,
		KeyPrefix:                cfg.RateLimit.KeyPrefix,
	}
	rateLimiterService := services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(redisClient), rateLimiterConfig, logger)

	hcSlice := []ports.HealthChecker{
		health.NewDBHealthChecker(database),
		health.NewRedisHealthChecker(redisClient),
		health.NewCacheHealthChecker(cacheManager),
	}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
		UploadsDir:     cfg.Storage.Dir,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		ProductService:     productService,
		RateLimiterService: rateLimiterService,
		HealthCheckers:     hcSlice,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
