package config

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("QDRANT_VECTOR_SIZE", "384")
	t.Setenv("DB_PATH", filepath.Join(dir, "data", "app.db"))
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != "9000" {
		t.Errorf("unexpected default port: %s", cfg.APIPort)
	}
	if cfg.ChunkSize != 512 || cfg.ChunkOverlap != 128 {
		t.Errorf("unexpected chunking defaults: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopKChunks != 5 || cfg.CandidatePoolSize != 10 || cfg.RRFK != 60 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg)
	}
	if cfg.SimilarityThreshold != 0.35 || cfg.FusedScoreScale != 30 {
		t.Errorf("unexpected score defaults: %v/%v", cfg.SimilarityThreshold, cfg.FusedScoreScale)
	}
	if cfg.QdrantVectorSize != 384 {
		t.Errorf("unexpected vector size: %d", cfg.QdrantVectorSize)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("unexpected log level: %v", cfg.LogLevel)
	}
}

func TestLoadRequiresVectorSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QDRANT_VECTOR_SIZE", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when QDRANT_VECTOR_SIZE is missing")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric vector size", "QDRANT_VECTOR_SIZE", "large"},
		{"zero vector size", "QDRANT_VECTOR_SIZE", "0"},
		{"invalid log level", "LOG_LEVEL", "verbose"},
		{"non-numeric chunk size", "CHUNK_SIZE", "big"},
		{"zero chunk size", "CHUNK_SIZE", "0"},
		{"negative scale", "FUSED_SCORE_SCALE", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadRejectsOverlapNotSmallerThanChunkSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when overlap is not smaller than chunk size")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "8123")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TOP_K_CHUNKS", "8")
	t.Setenv("SIMILARITY_THRESHOLD", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIPort != "8123" || cfg.TopKChunks != 8 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected log level: %v", cfg.LogLevel)
	}
	if cfg.SimilarityThreshold != 0.5 {
		t.Errorf("unexpected threshold: %v", cfg.SimilarityThreshold)
	}
}
