package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/agent"
	"github.com/avvvet/partsbuddy-agent/internal/cache"
	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/config"
	"github.com/avvvet/partsbuddy-agent/internal/conversation"
	"github.com/avvvet/partsbuddy-agent/internal/handlers"
	"github.com/avvvet/partsbuddy-agent/internal/intent"
	"github.com/avvvet/partsbuddy-agent/internal/llm"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/metrics"
	"github.com/avvvet/partsbuddy-agent/internal/response"
	"github.com/avvvet/partsbuddy-agent/internal/scope"
	"github.com/avvvet/partsbuddy-agent/internal/tools"
	"github.com/avvvet/partsbuddy-agent/internal/transport"
	"github.com/avvvet/partsbuddy-agent/internal/vectorsearch"
	"github.com/joho/godotenv"
	"github.com/philippgille/chromem-go"
)

const module = "main"

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	appLogger := logger.NewZapLogger(cfg.LogFile, cfg.IsProd)
	defer func() { _ = appLogger.Sync() }()

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error(module, "service stopped with error", map[string]interface{}{"error": err.Error()})
		_ = appLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger logger.ILogger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	appLogger.Info(module, "starting PartsBuddy agent", map[string]interface{}{
		"service":        cfg.ServiceName,
		"llm_provider":   cfg.LLMProvider,
		"llm_model":      cfg.LLMModel,
		"vector_backend": cfg.VectorBackend,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(cfg, appLogger)
	if err != nil {
		return err
	}

	// Conversation store and tool cache share one Redis client when configured
	var (
		store     conversation.Store
		toolCache cache.Cache
	)
	if cfg.RedisURL != "" {
		redisStore, err := conversation.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store = redisStore
		toolCache = cache.NewRedisCache(redisStore.Client())
		appLogger.Info(module, "using Redis for conversations and cache", nil)
	} else {
		store = conversation.NewMemoryStore(cfg.SessionTTL)
		toolCache = cache.NewMemoryCache(cfg.CacheTTL, 10*time.Minute)
		appLogger.Warn(module, "REDIS_URL not set, conversations live in process memory", nil)
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

	partsCatalog, searcher, err := newCatalog(ctx, cfg, embed, appLogger)
	if err != nil {
		return err
	}

	conversations := conversation.NewManager(store, cfg.SessionTTL, appLogger)
	defer conversations.Close()
	conversations.StartSweeper(ctx, cfg.SweepInterval)

	agentMetrics := metrics.New(conversations.ActiveSessions)

	orchestrator := tools.NewOrchestrator(partsCatalog, searcher, toolCache, tools.Config{
		Timeout:  cfg.ToolTimeout,
		CacheTTL: cfg.CacheTTL,
		TopK:     cfg.SearchTopK,
	}, appLogger).WithObserver(agentMetrics)

	partsAgent := agent.New(
		conversations,
		intent.NewClassifier(provider, appLogger),
		scope.NewValidator(cfg.SupportedAppliances),
		orchestrator,
		response.NewAssembler(provider, cfg.LLMTimeout, appLogger),
		appLogger,
	).WithRecorder(agentMetrics).WithHistoryExcerpt(cfg.HistoryExcerpt)

	chatHandler := handlers.NewChatHandler(partsAgent, appLogger)

	natsTransport, err := transport.NewNATSTransport(cfg, chatHandler, appLogger)
	if err != nil {
		return err
	}
	defer natsTransport.Close()
	if err := natsTransport.Start(); err != nil {
		return err
	}

	httpServer := transport.NewHTTPServer(cfg.HTTPAddr, chatHandler, agentMetrics.Handler(), appLogger)
	httpErr := make(chan error, 1)
	go func() { httpErr <- httpServer.Start() }()

	appLogger.Info(module, "PartsBuddy agent is running", map[string]interface{}{
		"subject":   cfg.NatsRequestSubject,
		"http_addr": cfg.HTTPAddr,
	})

	select {
	case <-ctx.Done():
		appLogger.Info(module, "shutting down gracefully", map[string]interface{}{
			"active_sessions": conversations.ActiveSessions(),
		})
	case err := <-httpErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		appLogger.Warn(module, "error stopping HTTP server", map[string]interface{}{"error": err.Error()})
	}

	appLogger.Info(module, "PartsBuddy agent stopped", nil)
	return nil
}

func newProvider(cfg *config.Config, appLogger logger.ILogger) (llm.Provider, error) {
	var (
		provider *llm.LangChainProvider
		err      error
	)
	switch cfg.LLMProvider {
	case "anthropic":
		provider, err = llm.NewAnthropicProvider(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, appLogger)
	default:
		provider, err = llm.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout, appLogger)
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// newCatalog prefers Postgres when DATABASE_URL is set and falls back to the
// embedded seed catalog. The vector index is built from whichever is used.
func newCatalog(ctx context.Context, cfg *config.Config, embed chromem.EmbeddingFunc, appLogger logger.ILogger) (catalog.Catalog, vectorsearch.Searcher, error) {
	var partsCatalog catalog.Catalog
	var gormCatalog *catalog.GormCatalog

	if cfg.DatabaseURL != "" {
		db, err := catalog.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		gormCatalog = catalog.NewGormCatalog(db)
		partsCatalog = gormCatalog
		appLogger.Info(module, "using Postgres catalog", nil)
	} else {
		seed, err := catalog.NewSeedCatalog()
		if err != nil {
			return nil, nil, err
		}
		partsCatalog = seed
		appLogger.Info(module, "using embedded seed catalog", nil)
	}

	if cfg.VectorBackend == "pgvector" {
		return partsCatalog, vectorsearch.NewPgvectorSearcher(gormCatalog, catalog.EmbedFunc(embed)), nil
	}

	searcher, err := vectorsearch.NewChromemSearcher(vectorsearch.ChromemConfig{PersistPath: cfg.VectorDBPath, Compress: true}, embed, appLogger)
	if err != nil {
		return nil, nil, err
	}
	if products, guides := searcher.Counts(); products == 0 || guides == 0 {
		if err := indexCatalog(ctx, partsCatalog, searcher); err != nil {
			return nil, nil, err
		}
	}
	return partsCatalog, searcher, nil
}

func indexCatalog(ctx context.Context, c catalog.Catalog, searcher *vectorsearch.ChromemSearcher) error {
	products, err := c.Products(ctx)
	if err != nil {
		return fmt.Errorf("failed to read products: %w", err)
	}
	guides, err := c.Guides(ctx)
	if err != nil {
		return fmt.Errorf("failed to read guides: %w", err)
	}
	if err := searcher.IndexProducts(ctx, products); err != nil {
		return err
	}
	return searcher.IndexGuides(ctx, guides)
}
