// Command partsbuddy-seed loads the bundled catalog into the configured stores:
// the embedded chromem index on disk and, when DATABASE_URL is set, Postgres
// with pgvector embeddings.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/config"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/vectorsearch"
	"github.com/joho/godotenv"
)

const module = "seed"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	appLogger := logger.NewZapLogger(cfg.LogFile, cfg.IsProd)
	defer func() { _ = appLogger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := seed(ctx, cfg, appLogger); err != nil {
		appLogger.Error(module, "seeding failed", map[string]interface{}{"error": err.Error()})
		_ = appLogger.Sync()
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg *config.Config, appLogger logger.ILogger) error {
	products, guides, err := catalog.LoadSeed()
	if err != nil {
		return err
	}

	embed, err := vectorsearch.NewEmbeddingFunc(vectorsearch.EmbeddingConfig{
		Provider:   cfg.EmbeddingProvider,
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return err
	}

	if cfg.DatabaseURL != "" {
		db, err := catalog.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		store := catalog.NewGormCatalog(db)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if err := store.UpsertProducts(ctx, products, catalog.EmbedFunc(embed)); err != nil {
			return fmt.Errorf("failed to store products: %w", err)
		}
		if err := store.UpsertGuides(ctx, guides, catalog.EmbedFunc(embed)); err != nil {
			return fmt.Errorf("failed to store guides: %w", err)
		}
		appLogger.Info(module, "postgres catalog seeded", map[string]interface{}{
			"products": len(products),
			"guides":   len(guides),
		})
	}

	if cfg.VectorBackend == "pgvector" {
		return nil
	}

	searcher, err := vectorsearch.NewChromemSearcher(vectorsearch.ChromemConfig{PersistPath: cfg.VectorDBPath, Compress: true}, embed, appLogger)
	if err != nil {
		return err
	}
	if err := searcher.IndexProducts(ctx, products); err != nil {
		return err
	}
	if err := searcher.IndexGuides(ctx, guides); err != nil {
		return err
	}

	indexedProducts, indexedGuides := searcher.Counts()
	appLogger.Info(module, "vector index built", map[string]interface{}{
		"path":     cfg.VectorDBPath,
		"products": indexedProducts,
		"guides":   indexedGuides,
	})
	return nil
}
