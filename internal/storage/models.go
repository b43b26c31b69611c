package storage

import "time"

// Processing status values for a document.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// DocumentRecord represents an uploaded document in the database.
type DocumentRecord struct {
	ID            string // UUID
	Filename      string
	FileType      string // "pdf", "docx", "md", "txt"
	FileSizeBytes int64
	NumPages      int // 0 when unknown (non-paginated formats)
	StoragePath   string
	Status        string // pending, processed, failed
	UploadedAt    time.Time
}

// ChunkRecord represents a sentence-aligned segment of document text,
// indexed for vector search. The ID doubles as the vector point ID.
type ChunkRecord struct {
	ID           string // UUID (same as vector point ID)
	DocumentID   string // UUID (foreign key to documents.id)
	DocumentName string
	ChunkIndex   int    // Position within document (starts at 0)
	PageNumber   int    // 1-indexed; 0 when unknown
	TextContent  string // Never empty
	TokenCount   int    // Approximate word count
}

// QueryRecord represents an answered query in the history log.
type QueryRecord struct {
	ID               string // UUID
	QueryText        string
	AnswerText       string
	Confidence       string // HIGH, MEDIUM, LOW
	NumChunks        int
	AvgSimilarity    float64
	ProcessingTimeMs int64
	CreatedAt        time.Time
}
