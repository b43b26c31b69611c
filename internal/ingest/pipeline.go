package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"talkingbird/internal/contextutil"
	"talkingbird/internal/metrics"
	"talkingbird/internal/storage"
	"talkingbird/internal/vectorstore"
)

// Embedder generates embedding vectors for a batch of texts.
// Implementations must return one vector per input text, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline orchestrates document ingestion: text extraction, chunking,
// batched embedding, and persistence into SQLite and the vector index.
type Pipeline struct {
	extractor   *Extractor
	chunker     *Chunker
	docRepo     storage.DocumentStore
	chunkRepo   storage.ChunkStore
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	logger      *slog.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	docRepo storage.DocumentStore,
	chunkRepo storage.ChunkStore,
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunkSize, chunkOverlap int,
) *Pipeline {
	return &Pipeline{
		extractor:   NewExtractor(),
		chunker:     NewChunker(chunkSize, chunkOverlap),
		docRepo:     docRepo,
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		logger:      slog.Default(),
	}
}

// ProcessDocument extracts, chunks, embeds and indexes one uploaded
// document, then marks it processed. Any failure marks the document failed
// and returns the error; writes committed before a failure are not rolled
// back (the failed document can be deleted and re-uploaded).
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *storage.DocumentRecord) error {
	logger := contextutil.LoggerFromContext(ctx)

	extracted, err := p.extractor.Extract(doc.StoragePath, doc.FileType)
	if err != nil {
		p.markFailed(ctx, doc.ID)
		return fmt.Errorf("failed to extract text: %w", err)
	}

	numPages := len(extracted.PageEnds)

	chunks := p.chunker.Chunk(extracted.Text)
	if len(chunks) == 0 {
		// No usable text means no indexed content for this document;
		// surfaced as a processing failure, not a silent success.
		p.markFailed(ctx, doc.ID)
		return fmt.Errorf("document produced no chunks: %s", doc.Filename)
	}

	chunkTexts := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkTexts[i] = chunk.Text
	}

	// One batched call keeps a stable 1:1 ordering between texts and
	// vectors.
	embeddings, err := p.embedder.EmbedTexts(ctx, chunkTexts)
	if err != nil {
		p.markFailed(ctx, doc.ID)
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		p.markFailed(ctx, doc.ID)
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	records := make([]*storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))

	for i, chunk := range chunks {
		chunkID := uuid.New().String()
		pageNumber := PageForOffset(extracted.PageEnds, chunk.Start)

		records[i] = &storage.ChunkRecord{
			ID:           chunkID,
			DocumentID:   doc.ID,
			DocumentName: doc.Filename,
			ChunkIndex:   i,
			PageNumber:   pageNumber,
			TextContent:  chunk.Text,
			TokenCount:   ApproxTokenCount(chunk.Text),
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: embeddings[i],
			Meta: map[string]any{
				"document_id":   doc.ID,
				"document_name": doc.Filename,
				"chunk_index":   i,
				"page_number":   pageNumber,
				"text_content":  chunk.Text,
			},
		}
	}

	for _, record := range records {
		if err := p.chunkRepo.Insert(ctx, record); err != nil {
			p.markFailed(ctx, doc.ID)
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		p.markFailed(ctx, doc.ID)
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}

	if err := p.docRepo.UpdateStatus(ctx, doc.ID, storage.StatusProcessed, numPages); err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}

	metrics.DocumentsProcessed.WithLabelValues(storage.StatusProcessed).Inc()
	metrics.ChunksIndexed.Add(float64(len(chunks)))

	logger.InfoContext(ctx, "document processed",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"chunks", len(chunks),
		"pages", numPages,
	)
	return nil
}

// RemoveDocument deletes a document's vectors, rows and stored file.
// Vector deletion happens first so that a partial failure never leaves
// searchable vectors pointing at deleted rows.
func (p *Pipeline) RemoveDocument(ctx context.Context, doc *storage.DocumentRecord) error {
	logger := contextutil.LoggerFromContext(ctx)

	chunkIDs, err := p.chunkRepo.ListIDsByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list chunk IDs: %w", err)
	}

	if len(chunkIDs) > 0 {
		if err := p.vectorStore.Delete(ctx, p.collection, chunkIDs); err != nil {
			return fmt.Errorf("failed to delete vectors: %w", err)
		}
	}

	if err := p.docRepo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
		logger.WarnContext(ctx, "failed to remove stored file", "path", doc.StoragePath, "error", err)
	}

	logger.InfoContext(ctx, "document removed", "document_id", doc.ID, "chunks", len(chunkIDs))
	return nil
}

func (p *Pipeline) markFailed(ctx context.Context, documentID string) {
	logger := contextutil.LoggerFromContext(ctx)
	metrics.DocumentsProcessed.WithLabelValues(storage.StatusFailed).Inc()
	if err := p.docRepo.UpdateStatus(ctx, documentID, storage.StatusFailed, 0); err != nil {
		logger.ErrorContext(ctx, "failed to mark document failed", "document_id", documentID, "error", err)
	}
}
