package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"talkingbird/internal/answer"
	"talkingbird/internal/config"
	"talkingbird/internal/handlers"
	"talkingbird/internal/http"
	"talkingbird/internal/ingest"
	"talkingbird/internal/llm"
	"talkingbird/internal/retrieval"
	"talkingbird/internal/storage"
	"talkingbird/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

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

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	queryRepo := storage.NewQueryRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Model service clients are constructed once here and shared; nothing
	// downstream constructs its own.
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	rerankClient := llm.NewRerankClient(cfg.RerankBaseURL, cfg.LLMAPIKey, cfg.RerankModelName)

	// Validate embedding client vector size (fail-fast)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Ingestion pipeline
	pipeline := ingest.NewPipeline(
		docRepo,
		chunkRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		cfg.ChunkSize,
		cfg.ChunkOverlap,
	)

	// Retrieval pipeline
	expander := retrieval.NewExpander(llmClient)
	retriever := retrieval.NewRetriever(expander, embedder, vectorStore, cfg.QdrantCollection, retrieval.Options{
		TopK:                cfg.TopKChunks,
		SimilarityThreshold: cfg.SimilarityThreshold,
		RRFK:                cfg.RRFK,
		CandidatePoolSize:   cfg.CandidatePoolSize,
		FusedScoreScale:     cfg.FusedScoreScale,
	})
	reranker := retrieval.NewReranker(rerankClient, cfg.TopKChunks)
	generator := answer.NewGenerator(llmClient)
	slog.Info("Retrieval pipeline initialized", "top_k", cfg.TopKChunks, "pool_size", cfg.CandidatePoolSize)

	deps := &http.Deps{
		QueryHandler:     handlers.NewQueryHandler(retriever, reranker, generator, queryRepo),
		HistoryHandler:   handlers.NewHistoryHandler(queryRepo),
		DocumentsHandler: handlers.NewDocumentsHandler(docRepo, pipeline, cfg.UploadDir, cfg.MaxFileSizeMB),
		HealthHandler:    handlers.NewHealthHandler(vectorStore, cfg.QdrantCollection, db),
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
