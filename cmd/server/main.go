package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"photolog-backend/internal/config"
	"photolog-backend/internal/handlers"
	"photolog-backend/internal/logging"
	"photolog-backend/internal/metadata"
	"photolog-backend/internal/middleware"
	"photolog-backend/internal/services"
	"photolog-backend/internal/storage"
	"photolog-backend/internal/thumbnail"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Backends are selected once at startup; everything downstream sees only
	// the two store interfaces.
	blobStore, err := newBlobStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize blob store", zap.String("type", cfg.StorageType), zap.Error(err))
	}
	metaStore, err := newMetadataStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize metadata store", zap.String("type", cfg.DatabaseType), zap.Error(err))
	}
	defer metaStore.Close()

	photoService := services.NewPhotoService(
		blobStore,
		metaStore,
		thumbnail.NewGenerator(),
		thumbnail.DefaultSpecs(),
		cfg.MaxFileSize,
		cfg.StorageType,
		logger,
	)

	staleThreshold := time.Duration(cfg.StaleUploadHours) * time.Hour
	reconciler := services.NewReconciler(metaStore, staleThreshold, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reconciler.Run(ctx, time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute)

	photosHandler := handlers.NewPhotosHandler(photoService, reconciler)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", handlers.HealthHandler)
	if cfg.StorageType == "local" {
		// Serve local blobs so the filesystem backend's URLs resolve.
		router.Static("/storage", cfg.LocalStoragePath)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.POST("/photos", photosHandler.Upload)
	api.GET("/photos", photosHandler.List)
	api.GET("/photos/search", photosHandler.Search)
	api.GET("/photos/stats", photosHandler.Stats)
	api.POST("/photos/cleanup", photosHandler.Cleanup)
	api.GET("/photos/:photo_id", photosHandler.Get)
	api.DELETE("/photos/:photo_id", photosHandler.Delete)

	logger.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("storage_type", cfg.StorageType),
		zap.String("database_type", cfg.DatabaseType))
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	if cfg.StorageType == "supabase" {
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	}
	return storage.NewLocalStore(cfg.LocalStoragePath, cfg.LocalStorageBaseURL)
}

func newMetadataStore(cfg *config.Config) (metadata.Store, error) {
	if cfg.DatabaseType == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		return metadata.NewRedisStore(client)
	}
	return metadata.NewSQLiteStore(cfg.SQLitePath)
}
