package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kgtext/backend/internal/config"
	"github.com/kgtext/backend/internal/server"
	mid "github.com/kgtext/backend/internal/server/middleware"
	"github.com/kgtext/backend/internal/storage"
	"github.com/kgtext/backend/internal/util"
	"github.com/kgtext/backend/pkg/ai"
	oai "github.com/kgtext/backend/pkg/ai/ollama"
	gai "github.com/kgtext/backend/pkg/ai/openai"
	"github.com/kgtext/backend/pkg/graph"
	"github.com/kgtext/backend/pkg/logger"
	"github.com/kgtext/backend/pkg/logger/console"
	"github.com/kgtext/backend/pkg/store"
	"github.com/kgtext/backend/pkg/store/memory"
	neo4jstore "github.com/kgtext/backend/pkg/store/neo4j"
	pgstore "github.com/kgtext/backend/pkg/store/pgx"
	"github.com/kgtext/backend/pkg/store/rediscache"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	graphStore, cleanup := newGraphStore(ctx, cfg)
	defer cleanup()
	defer func() {
		if err := graphStore.Close(context.Background()); err != nil {
			logger.Error("Failed to close graph store", "err", err)
		}
	}()

	aiClient, err := newAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Failed to create AI client", "adapter", cfg.AI.Adapter, "err", err)
	}

	extractor := graph.NewAIExtractor(graph.NewAIExtractorParams{
		Client:           aiClient,
		EntityTypes:      cfg.AI.EntityTypes,
		MaxRetries:       cfg.AI.MaxRetries,
		ParallelRequests: cfg.AI.ParallelRequests,
	})

	params := graph.NewGraphClientParams{
		Extractor:      extractor,
		Store:          graphStore,
		MaxInputTokens: cfg.MaxInputTokens,
	}
	archive, err := storage.NewS3Archive(ctx, cfg.S3)
	if err != nil {
		logger.Fatal("Failed to create source archive", "err", err)
	}
	if archive != nil {
		params.Archive = archive
	}

	graphClient, err := graph.NewGraphClient(params)
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	e := server.New(&mid.App{Graphs: graphClient})
	if err := server.Run(ctx, e, cfg.Port); err != nil {
		logger.Error("Server failed", "err", err)
	}
}

// newGraphStore opens the configured backend, optionally behind the Redis
// catalog cache. The returned cleanup releases resources the store does not
// own.
func newGraphStore(ctx context.Context, cfg *config.Config) (store.GraphStore, func()) {
	var (
		graphStore store.GraphStore
		cleanup    = func() {}
	)

	switch cfg.StoreAdapter {
	case config.StoreNeo4j:
		client, err := neo4jstore.NewClient(ctx, cfg.Neo4j)
		if err != nil {
			logger.Fatal("Failed to connect to Neo4j", "err", err)
		}
		graphStore = neo4jstore.NewGraphDBStorage(ctx, client)
	case config.StorePostgres:
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		cleanup = pool.Close
		graphStore = pgstore.NewGraphDBStorageWithConnection(pool)
	default:
		logger.Warn("Using the in-memory graph store, graphs are lost on restart")
		graphStore = memory.New()
	}

	if cfg.RedisURL == "" {
		return graphStore, cleanup
	}
	redisClient, err := rediscache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "err", err)
	}
	logger.Info("Catalog cache enabled", "ttl", cfg.CatalogCacheTTL)
	return rediscache.New(graphStore, redisClient, cfg.CatalogCacheTTL), cleanup
}

func newAIClient(cfg config.AIConfig) (ai.GraphAIClient, error) {
	switch cfg.Adapter {
	case config.AIOllama:
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ExtractionModel:       cfg.ExtractModel,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.ChatKey,
			MaxConcurrentRequests: int64(cfg.ParallelRequests),
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ExtractionModel: cfg.ExtractModel,
			ChatURL:         cfg.ChatURL,
			ChatKey:         cfg.ChatKey,
		}), nil
	}
}
