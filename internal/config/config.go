package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	// Storage
	DBPath        string
	UploadDir     string
	MaxFileSizeMB int

	// Vector index
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	// Model services
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	RerankBaseURL      string
	RerankModelName    string

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	TopKChunks          int
	SimilarityThreshold float64
	RRFK                int
	CandidatePoolSize   int
	FusedScoreScale     float64
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates numeric fields.
// If a .env file exists in the current directory or an ancestor, it is loaded
// first; environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if wd, err := os.Getwd(); err == nil {
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
		APIPort:   getEnv("API_PORT", "9000"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		DBPath:    getEnv("DB_PATH", "./data/talkingbird.db"),
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),

		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "documents"),

		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "all-MiniLM-L6-v2"),
		RerankBaseURL:      getEnv("RERANK_BASE_URL", "http://localhost:8082"),
		RerankModelName:    getEnv("RERANK_MODEL_NAME", "ms-marco-MiniLM-L-6-v2"),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	intFields := []struct {
		dst      *int
		key      string
		fallback int
		min      int
	}{
		{&cfg.MaxFileSizeMB, "MAX_FILE_SIZE_MB", 50, 1},
		{&cfg.ChunkSize, "CHUNK_SIZE", 512, 1},
		{&cfg.ChunkOverlap, "CHUNK_OVERLAP", 128, 0},
		{&cfg.TopKChunks, "TOP_K_CHUNKS", 5, 1},
		{&cfg.RRFK, "RRF_K", 60, 1},
		{&cfg.CandidatePoolSize, "CANDIDATE_POOL_SIZE", 10, 1},
	}
	for _, f := range intFields {
		v, err := getEnvInt(f.key, f.fallback)
		if err != nil {
			return nil, err
		}
		if v < f.min {
			return nil, fmt.Errorf("%s must be >= %d", f.key, f.min)
		}
		*f.dst = v
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	threshold, err := getEnvFloat("SIMILARITY_THRESHOLD", 0.35)
	if err != nil {
		return nil, err
	}
	cfg.SimilarityThreshold = threshold

	scale, err := getEnvFloat("FUSED_SCORE_SCALE", 30)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("FUSED_SCORE_SCALE must be greater than 0")
	}
	cfg.FusedScoreScale = scale

	// Must match the output size of the embedding model; the Qdrant
	// collection is created with this dimension.
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

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL: %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}
