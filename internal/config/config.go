package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// NATS configuration
	NatsURL            string
	NatsRequestSubject string
	NatsTimeout        time.Duration

	// HTTP configuration
	HTTPAddr string

	// LLM configuration
	LLMProvider string // "openai" (any OpenAI-compatible endpoint) or "anthropic"
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	LLMTimeout  time.Duration

	// Embedding configuration
	EmbeddingProvider   string // "hash" (offline), "openai" or "ollama"
	EmbeddingBaseURL    string
	EmbeddingAPIKey     string
	EmbeddingModel      string
	EmbeddingDimensions int

	// Storage configuration
	RedisURL      string
	DatabaseURL   string
	VectorBackend string // "chromem" or "pgvector"
	VectorDBPath  string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	CacheTTL      time.Duration

	// Agent configuration
	ToolTimeout         time.Duration
	SearchTopK          int
	HistoryExcerpt      int
	SupportedAppliances []string

	// Logging
	LogFile string
	IsProd  bool

	// Service configuration
	ServiceName string
}

func Load() *Config {
	return &Config{
		// NATS settings
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsRequestSubject: getEnv("NATS_REQUEST_SUBJECT", "partsbuddy.chat"),
		NatsTimeout:        getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		// LLM settings (OpenRouter + DeepSeek by default)
		LLMProvider: getEnv("LLM_PROVIDER", "openai"),
		LLMAPIKey:   getEnv("LLM_API_KEY", getEnv("OPENROUTER_API_KEY", "")),
		LLMBaseURL:  getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:    getEnv("LLM_MODEL", "deepseek/deepseek-chat"),
		LLMTimeout:  getDurationEnv("LLM_TIMEOUT", 20*time.Second),

		EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "hash"),
		EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: getIntEnv("EMBEDDING_DIMENSIONS", 256),

		// Storage settings
		RedisURL:      getEnv("REDIS_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		VectorBackend: getEnv("VECTOR_BACKEND", "chromem"),
		VectorDBPath:  getEnv("VECTOR_DB_PATH", "./data/chromem"),
		SessionTTL:    getDurationEnv("SESSION_TTL", 30*time.Minute),
		SweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", time.Minute),
		CacheTTL:      getDurationEnv("CACHE_TTL", time.Hour),

		// Agent settings
		ToolTimeout:         getDurationEnv("TOOL_TIMEOUT", 10*time.Second),
		SearchTopK:          getIntEnv("SEARCH_TOP_K", 5),
		HistoryExcerpt:      getIntEnv("HISTORY_EXCERPT", 10),
		SupportedAppliances: getListEnv("SUPPORTED_APPLIANCES", []string{"refrigerator", "dishwasher"}),

		LogFile: getEnv("LOG_FILE", "./logs/partsbuddy.log"),
		IsProd:  getEnv("APP_ENV", "development") == "production",

		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "partsbuddy-agent"),
	}
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY environment variable is required")
	}
	switch c.LLMProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.EmbeddingProvider {
	case "hash", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}
	if c.VectorBackend == "pgvector" && c.DatabaseURL == "" {
		return fmt.Errorf("VECTOR_BACKEND=pgvector requires DATABASE_URL")
	}
	if c.SearchTopK <= 0 {
		return fmt.Errorf("SEARCH_TOP_K must be positive, got %d", c.SearchTopK)
	}
	if len(c.SupportedAppliances) == 0 {
		return fmt.Errorf("SUPPORTED_APPLIANCES must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(strings.ToLower(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}
