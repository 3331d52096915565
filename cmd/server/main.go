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

	appingest "github.com/forecast/ingestion/internal/application/ingest"
	"github.com/forecast/ingestion/internal/infrastructure/cache"
	"github.com/forecast/ingestion/internal/infrastructure/config"
	"github.com/forecast/ingestion/internal/infrastructure/crypto"
	"github.com/forecast/ingestion/internal/infrastructure/logger"
	"github.com/forecast/ingestion/internal/infrastructure/persistence"
	"github.com/forecast/ingestion/internal/interfaces/http/handler"
	"github.com/forecast/ingestion/internal/interfaces/http/middleware"
	"github.com/forecast/ingestion/internal/interfaces/http/router"
)

const version = "1.0.0"

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
		_ = log.Sync()
	}()

	log.Info("Starting ingestion service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
		log.Info("Schema migration completed")
	}

	// Reference data cache over the warehouse repository
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	refCache := cache.NewWarehouseCodeCache(warehouseRepo, cfg.Ingest.StalenessBoundary, cfg.Ingest.SourceTimeout, log)

	// Ingestion pipeline
	sink := persistence.NewGormIngestSink(db.DB)
	pipeline := appingest.NewPipeline(refCache, cfg.Ingest.RejectionSampleSize, log)
	coordinator := appingest.NewCoordinator(sink, cfg.Ingest.PersistRetries, cfg.Ingest.PersistBackoff, cfg.Ingest.PersistTimeout, log)
	ingestService := appingest.NewService(pipeline, coordinator, refCache, log)

	// Payload encryption (optional outside production)
	var envelope *crypto.Envelope
	if cfg.Security.EncryptionKey != "" {
		envelope, err = crypto.NewEnvelope(cfg.Security.EncryptionKey)
		if err != nil {
			log.Fatal("Failed to initialize payload encryption", zap.Error(err))
		}
		log.Info("Payload encryption enabled")
	} else {
		log.Warn("No encryption key configured, accepting clear-text batches")
	}

	// Initialize HTTP handlers
	ingestHandler := handler.NewIngestHandler(ingestService, envelope)
	systemHandler := handler.NewSystemHandler(db, cfg.App.Name, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID(log))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning, no authentication)
	engine.GET("/health", func(c *gin.Context) { systemHandler.Health(c) })

	// Routes registered from here on require the agent API key
	engine.Use(middleware.APIKeyAuth(cfg.Security.APIKey))

	// Duplicate-delivery protection
	var responseStore cache.ResponseStore
	if cfg.Idempotency.Enabled {
		factory := cache.NewResponseStoreFactory(cfg.Redis, cache.WithLogger(log))
		responseStore, err = factory.CreateStore(cfg.Idempotency.Backend)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := responseStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		engine.Use(middleware.Idempotency(responseStore, cfg.Idempotency.TTL))
		log.Info("Idempotency enabled",
			zap.String("backend", cfg.Idempotency.Backend),
			zap.Duration("ttl", cfg.Idempotency.TTL),
		)
	}

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(ingestHandler).
		Register(systemHandler)
	r.Setup()

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
