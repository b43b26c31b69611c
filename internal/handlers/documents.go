package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"talkingbird/internal/contextutil"
	"talkingbird/internal/ingest"
	"talkingbird/internal/storage"
)

var allowedFileTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
	"md":   true,
	"txt":  true,
}

// DocumentsHandler handles HTTP requests for document management.
type DocumentsHandler struct {
	docRepo      storage.DocumentStore
	pipeline     *ingest.Pipeline
	uploadDir    string
	maxFileBytes int64
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(docRepo storage.DocumentStore, pipeline *ingest.Pipeline, uploadDir string, maxFileSizeMB int) *DocumentsHandler {
	return &DocumentsHandler{
		docRepo:      docRepo,
		pipeline:     pipeline,
		uploadDir:    uploadDir,
		maxFileBytes: int64(maxFileSizeMB) << 20,
	}
}

// DocumentResponse is one document in API responses.
type DocumentResponse struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	FileType      string `json:"file_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	NumPages      int    `json:"num_pages,omitempty"`
	Status        string `json:"status"`
	UploadedAt    string `json:"uploaded_at"`
}

// Upload accepts a multipart file, stores it and queues ingestion.
// Processing runs in the background; the document is returned immediately
// with pending status.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes)
	if err := r.ParseMultipartForm(h.maxFileBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart upload", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid or too large upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if !allowedFileTypes[fileType] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported file type: %q", fileType))
		return
	}

	doc := &storage.DocumentRecord{
		ID:       uuid.New().String(),
		Filename: filepath.Base(header.Filename),
		FileType: fileType,
		Status:   storage.StatusPending,
	}
	doc.StoragePath = filepath.Join(h.uploadDir, doc.ID+"."+fileType)

	size, err := h.saveFile(file, doc.StoragePath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to store upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}
	doc.FileSizeBytes = size

	if err := h.docRepo.Insert(ctx, doc); err != nil {
		logger.ErrorContext(ctx, "failed to insert document", "error", err)
		_ = os.Remove(doc.StoragePath)
		writeError(w, http.StatusInternalServerError, "Failed to register document")
		return
	}

	// Ingestion outlives the request; the client polls document status.
	go h.processInBackground(doc)

	logger.InfoContext(ctx, "document uploaded", "document_id", doc.ID, "filename", doc.Filename, "bytes", size)
	writeJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

// List returns all documents, newest first.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.docRepo.ListAll(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

// Delete removes a document, its chunks, its vectors and its stored file.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.docRepo.GetByID(ctx, id)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load document")
		return
	}

	if err := h.pipeline.RemoveDocument(ctx, doc); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete document")
		return
	}

	logger.InfoContext(ctx, "document deleted", "document_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentsHandler) saveFile(src multipart.File, path string) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = dst.Close()
	}()
	return io.Copy(dst, src)
}

// processInBackground runs ingestion detached from the request context. A
// fresh context carries the request-scoped logger fields forward.
func (h *DocumentsHandler) processInBackground(doc *storage.DocumentRecord) {
	logger := slog.Default().With("document_id", doc.ID, "filename", doc.Filename)
	ctx := contextutil.WithLogger(context.Background(), logger)

	if err := h.pipeline.ProcessDocument(ctx, doc); err != nil {
		logger.ErrorContext(ctx, "document processing failed", "error", err)
	}
}

func toDocumentResponse(doc *storage.DocumentRecord) DocumentResponse {
	resp := DocumentResponse{
		ID:            doc.ID,
		Filename:      doc.Filename,
		FileType:      doc.FileType,
		FileSizeBytes: doc.FileSizeBytes,
		NumPages:      doc.NumPages,
		Status:        doc.Status,
	}
	if !doc.UploadedAt.IsZero() {
		resp.UploadedAt = doc.UploadedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
