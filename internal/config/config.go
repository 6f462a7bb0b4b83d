package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docchat-ai/internal/attribution"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	DBPath             string
	StagingDir         string
	QdrantURL          string
	QdrantCollection   string
	QdrantVectorSize   int
	APIPort            string
	LogLevel           string
	LogFormat          string

	Attribution AttributionConfig
}

// AttributionConfig holds the per-deployment attribution defaults, loaded
// from an optional YAML file.
type AttributionConfig struct {
	CitationStyle string  `yaml:"citation_style"`
	MaxSources    int     `yaml:"max_sources"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// Load reads configuration from environment variables and returns a Config
// struct. It applies defaults for optional fields and validates required
// fields. If a .env file exists in the current directory or project root, it
// is loaded automatically; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Walk up from the working directory to find a project-root .env
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:             getEnv("DB_PATH", "./data/docchat-ai.db"),
		StagingDir:         getEnv("STAGING_DIR", ""),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// Must match the output vector size of the embeddings model. If it
	// changes, the Qdrant collection has to be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	attribution, err := loadAttribution(getEnv("ATTRIBUTION_CONFIG_PATH", ""))
	if err != nil {
		return nil, err
	}
	cfg.Attribution = attribution

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// loadAttribution reads the attribution defaults from a YAML file. A missing
// path (or missing file) yields the built-in defaults.
func loadAttribution(path string) (AttributionConfig, error) {
	cfg := AttributionConfig{
		CitationStyle: string(attribution.StyleAPA),
		MaxSources:    5,
		MinConfidence: 0.3,
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read attribution config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse attribution config: %w", err)
	}

	if _, err := attribution.ParseCitationStyle(cfg.CitationStyle); err != nil {
		return cfg, fmt.Errorf("invalid attribution config: %w", err)
	}
	if cfg.MaxSources < 1 || cfg.MaxSources > 10 {
		return cfg, fmt.Errorf("invalid attribution config: max_sources must be between 1 and 10, got %d", cfg.MaxSources)
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return cfg, fmt.Errorf("invalid attribution config: min_confidence must be between 0 and 1, got %v", cfg.MinConfidence)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
