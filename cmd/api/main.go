package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"

	"docchat-ai/internal/attribution"
	"docchat-ai/internal/config"
	"docchat-ai/internal/history"
	"docchat-ai/internal/http"
	"docchat-ai/internal/ingest"
	"docchat-ai/internal/llm"
	"docchat-ai/internal/rag"
	"docchat-ai/internal/storage"
	"docchat-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	documentRepo := storage.NewDocumentRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Attribution manager and session history tracker
	manager := attribution.NewManager()
	tracker := history.NewTracker(manager)
	slog.Info("Session started", "session_id", tracker.SessionID())

	// Ingestion pipeline
	pipeline := ingest.NewPipeline(
		documentRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		manager,
		cfg.StagingDir,
	)

	// Attributed query engine
	retriever := rag.NewVectorRetriever(embedder, vectorStore, cfg.QdrantCollection)
	engine := rag.NewEngine(retriever, llmClient, manager, tracker, cfg.LLMModelName)
	slog.Info("Query engine initialized", "model", cfg.LLMModelName)

	deps := &http.Deps{
		Engine:              engine,
		Tracker:             tracker,
		Pipeline:            pipeline,
		Documents:           documentRepo,
		VectorStore:         vectorStore,
		Collection:          cfg.QdrantCollection,
		AttributionDefaults: cfg.Attribution,
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
