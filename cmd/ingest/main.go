// Command ingest stores one input file and its parsed results: the raw
// file bytes, the parser's content list, extracted images, and the
// markdown rendering, all keyed by content hash.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"ragstore/internal/config"
	"ragstore/internal/domain/repositories"
	"ragstore/internal/repository/memory"
	"ragstore/internal/repository/postgres"
	"ragstore/internal/resource"
	"ragstore/internal/session"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	filePath := flag.String("file", "", "input file to store (required)")
	outputDir := flag.String("output-dir", "", "parser output directory (default from config)")
	method := flag.String("method", "", "parse method partition (default from config)")
	backend := flag.String("backend", "", "parser backend hint; vlm-* forces the vlm partition")
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	logger = logger.With("run_id", uuid.NewString())

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
		factory = postgres.NewFactory(pool, cfg.TablePrefix, logger)
	}

	store := resource.NewStore(cfg, factory, logger)
	if err := store.InitializeStorage(ctx); err != nil {
		log.Fatalf("Failed to initialize resource storage: %v", err)
	}

	if err := store.StoreInputFile(ctx, *filePath); err != nil {
		log.Fatalf("Failed to store input file: %v", err)
	}

	err := store.ImportParsedResult(ctx, *filePath, resource.ImportOptions{
		OutputDir:   *outputDir,
		ParseMethod: *method,
		Backend:     *backend,
	})
	if err != nil {
		log.Fatalf("Failed to import parsed result: %v", err)
	}

	if err := store.FinalizeStorage(ctx); err != nil {
		log.Fatalf("Failed to finalize resource storage: %v", err)
	}

	logger.Info("ingest complete", "file", *filePath)
}
