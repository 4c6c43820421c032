package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	config "github.com/kayendev-lutech/ecommerce/configs"
	"github.com/kayendev-lutech/ecommerce/internal/application/cache"
	"github.com/kayendev-lutech/ecommerce/internal/application/jobs"
	"github.com/kayendev-lutech/ecommerce/internal/application/services"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/db"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/logging"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/memory"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/queue"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/redis"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/repositories"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/storage"
)

// The worker consumes image upload jobs queued by the API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.New(cfg.Log)
	logger.Info("Starting image upload worker...")

	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	var backend ports.CacheBackend = redis.NewRedisCache(redisClient, cfg.Cache.KeyPrefix)
	if cfg.Cache.Backend == "memory" {
		backend = memory.NewCache()
	}
	cacheManager := cache.NewManager(backend, cache.ProductCacheConfig{
		MetaTTL:     cfg.Cache.MetaTTL,
		PriceTTL:    cfg.Cache.PriceTTL,
		VariantsTTL: cfg.Cache.VariantsTTL,
		ListTTL:     cfg.Cache.ListTTL,
		GetOrSetTTL: cfg.Cache.GetOrSetTTL,
	}, logger, cache.NewMetrics(prometheus.DefaultRegisterer))

	imageStore, err := storage.NewFilesystemStore(&cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to initialize image storage:", err)
	}

	jobQueue := queue.NewRedisQueue(redisClient, &cfg.Queue, logger)
	productService := services.NewProductService(repositories.NewProductRepository(database, logger), cacheManager.ProductCache(), jobQueue, services.ProductServiceConfig{
		ImageUploadQueue: cfg.Queue.ImageUploadQueue,
		MaxRetries:       cfg.Queue.MaxRetries,
	}, logger)
	processor := jobs.NewImageUploadProcessor(productService, imageStore, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := jobQueue.Consume(ctx, cfg.Queue.ImageUploadQueue, processor.Handle); err != nil {
		logger.WithError(err).Error("worker stopped with error")
		return
	}
	logger.Info("Worker exited")
}
