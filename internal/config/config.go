package config

import (
	"fmt"
	"time"

	"github.com/kgtext/backend/internal/storage"
	"github.com/kgtext/backend/internal/util"
	"github.com/kgtext/backend/pkg/graph"
	"github.com/kgtext/backend/pkg/store/neo4j"
)

const (
	StoreNeo4j    = "neo4j"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	AIOpenAI = "openai"
	AIOllama = "ollama"
)

type AIConfig struct {
	Adapter          string
	ExtractModel     string
	ChatURL          string
	ChatKey          string
	ParallelRequests int
	MaxRetries       int
	EntityTypes      []string
}

// Config is read once at startup. Components receive only the part they
// need.
type Config struct {
	Port  string
	Debug bool

	StoreAdapter string
	Neo4j        neo4j.Config
	DatabaseURL  string

	RedisURL        string
	CatalogCacheTTL time.Duration

	AI             AIConfig
	MaxInputTokens int

	S3 storage.S3Config
}

// Load reads the configuration from the environment. Call util.LoadEnv
// first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:  util.GetEnvString("PORT", "8080"),
		Debug: util.GetEnvBool("DEBUG", false),

		StoreAdapter: util.GetEnvString("STORE_ADAPTER", StoreNeo4j),
		Neo4j: neo4j.Config{
			URI:         util.GetEnv("NEO4J_URI"),
			User:        util.GetEnvString("NEO4J_USER", "neo4j"),
			Password:    util.GetEnv("NEO4J_PASSWORD"),
			Database:    util.GetEnv("NEO4J_DATABASE"),
			MaxPoolSize: util.GetEnvInt("NEO4J_MAX_POOL_SIZE", 50),
			Timeout:     util.GetEnvSeconds("NEO4J_TIMEOUT_SECONDS", 10*time.Second),
		},
		DatabaseURL: util.GetEnv("DATABASE_URL"),

		RedisURL:        util.GetEnv("REDIS_URL"),
		CatalogCacheTTL: util.GetEnvSeconds("CATALOG_CACHE_TTL_SECONDS", 5*time.Minute),

		AI: AIConfig{
			Adapter:          util.GetEnvString("AI_ADAPTER", AIOpenAI),
			ExtractModel:     util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			ChatURL:          util.GetEnv("AI_CHAT_URL"),
			ChatKey:          util.GetEnv("AI_CHAT_KEY"),
			ParallelRequests: util.GetEnvInt("AI_PARALLEL_REQ", 15),
			MaxRetries:       util.GetEnvInt("AI_MAX_RETRIES", 3),
			EntityTypes:      util.GetEnvList("AI_ENTITY_TYPES", graph.DefaultEntityTypes),
		},
		MaxInputTokens: util.GetEnvInt("MAX_INPUT_TOKENS", 0),

		S3: storage.S3Config{
			Region:    util.GetEnv("AWS_REGION"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			Bucket:    util.GetEnv("AWS_BUCKET"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreAdapter {
	case StoreNeo4j:
		if c.Neo4j.URI == "" {
			return fmt.Errorf("NEO4J_URI is required for the %s store", StoreNeo4j)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_ADAPTER %q", c.StoreAdapter)
	}

	switch c.AI.Adapter {
	case AIOpenAI, AIOllama:
	default:
		return fmt.Errorf("unknown AI_ADAPTER %q", c.AI.Adapter)
	}
	if c.AI.ExtractModel == "" {
		return fmt.Errorf("AI_CHAT_EXTRACT_MODEL is required")
	}
	if c.MaxInputTokens < 0 {
		return fmt.Errorf("MAX_INPUT_TOKENS must not be negative")
	}
	return nil
}
