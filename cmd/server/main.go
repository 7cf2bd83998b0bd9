package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"ragstore/internal/config"
	"ragstore/internal/domain/repositories"
	"ragstore/internal/handler"
	"ragstore/internal/middleware"
	"ragstore/internal/repository/memory"
	"ragstore/internal/repository/postgres"
	"ragstore/internal/resource"
	"ragstore/internal/session"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	// LOG_DIR switches logging from stdout to timestamped files
	var logWriter io.Writer = os.Stdout
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		logFile, err := config.SetupLogFile(dir, 10)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logWriter = logFile
	}

	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.Storage,
	)

	// Scope the database per tenant before any storage handle exists
	configurator := session.NewConfigurator(cfg, logger)
	if database, applied := configurator.Apply(); applied {
		logger.Info("session scoping active", "database", database)
	}

	ctx := context.Background()

	var factory repositories.StorageFactory
	switch cfg.Storage {
	case "memory":
		factory = memory.NewFactory(logger)
	default:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()
		logger.Info("database connected")
		factory = postgres.NewFactory(pool, cfg.TablePrefix, logger)
	}

	store := resource.NewStore(cfg, factory, logger)
	if err := store.InitializeStorage(ctx); err != nil {
		log.Fatalf("Failed to initialize resource storage: %v", err)
	}
	defer func() {
		if err := store.FinalizeStorage(ctx); err != nil {
			logger.Error("finalize resource storage", "error", err)
		}
	}()

	resourceHandler := handler.NewResourceHandler(store, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", resourceHandler.HealthCheck)
	mux.HandleFunc("GET /api/resources/stats", resourceHandler.GetStats)
	mux.HandleFunc("GET /api/resources/{collection}/{id}", resourceHandler.GetResource)

	// Apply middleware in reverse order (they wrap each other)
	var h http.Handler = mux
	h = middleware.Recovery(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("audit API listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
