package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func insertTestDocument(t *testing.T, repo *DocumentRepo, id string) *DocumentRecord {
	t.Helper()
	doc := &DocumentRecord{
		ID:            id,
		Filename:      "handbook.pdf",
		FileType:      "pdf",
		FileSizeBytes: 1024,
		StoragePath:   "/uploads/" + id + ".pdf",
		Status:        StatusPending,
	}
	if err := repo.Insert(context.Background(), doc); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}
	return doc
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestDocumentRepoRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	insertTestDocument(t, repo, "doc-1")

	got, err := repo.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Filename != "handbook.pdf" || got.Status != StatusPending {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.UploadedAt.IsZero() {
		t.Fatal("expected uploaded_at to be set by the database")
	}
}

func TestDocumentRepoGetByIDNotFound(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	if _, err := repo.GetByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentRepoUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	insertTestDocument(t, repo, "doc-1")

	if err := repo.UpdateStatus(ctx, "doc-1", StatusProcessed, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := repo.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusProcessed || got.NumPages != 12 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := repo.UpdateStatus(ctx, "missing", StatusFailed, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing document, got %v", err)
	}
}

func TestDocumentRepoListAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepo(db)

	insertTestDocument(t, repo, "doc-1")
	insertTestDocument(t, repo, "doc-2")

	docs, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
}

func TestDocumentDeleteCascadesToChunks(t *testing.T) {
	db := newTestDB(t)
	docRepo := NewDocumentRepo(db)
	chunkRepo := NewChunkRepo(db)
	ctx := context.Background()

	insertTestDocument(t, docRepo, "doc-1")
	for i, id := range []string{"c1", "c2"} {
		err := chunkRepo.Insert(ctx, &ChunkRecord{
			ID:           id,
			DocumentID:   "doc-1",
			DocumentName: "handbook.pdf",
			ChunkIndex:   i,
			PageNumber:   i + 1,
			TextContent:  "chunk text",
			TokenCount:   2,
		})
		if err != nil {
			t.Fatalf("failed to insert chunk: %v", err)
		}
	}

	if err := docRepo.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids, err := chunkRepo.ListIDsByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected cascade to remove chunks, got %v", ids)
	}

	if err := docRepo.Delete(ctx, "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestChunkRepoListIDsOrderedByIndex(t *testing.T) {
	db := newTestDB(t)
	docRepo := NewDocumentRepo(db)
	chunkRepo := NewChunkRepo(db)
	ctx := context.Background()

	insertTestDocument(t, docRepo, "doc-1")

	// Insert out of order to verify the ordering clause.
	for _, c := range []struct {
		id    string
		index int
	}{{"c2", 2}, {"c0", 0}, {"c1", 1}} {
		err := chunkRepo.Insert(ctx, &ChunkRecord{
			ID:           c.id,
			DocumentID:   "doc-1",
			DocumentName: "handbook.pdf",
			ChunkIndex:   c.index,
			TextContent:  "text",
			TokenCount:   1,
		})
		if err != nil {
			t.Fatalf("failed to insert chunk: %v", err)
		}
	}

	ids, err := chunkRepo.ListIDsByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"c0", "c1", "c2"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestChunkRepoGetByID(t *testing.T) {
	db := newTestDB(t)
	docRepo := NewDocumentRepo(db)
	chunkRepo := NewChunkRepo(db)
	ctx := context.Background()

	insertTestDocument(t, docRepo, "doc-1")
	rec := &ChunkRecord{
		ID:           "c1",
		DocumentID:   "doc-1",
		DocumentName: "handbook.pdf",
		ChunkIndex:   0,
		PageNumber:   3,
		TextContent:  "the text",
		TokenCount:   2,
	}
	if err := chunkRepo.Insert(ctx, rec); err != nil {
		t.Fatalf("failed to insert chunk: %v", err)
	}

	got, err := chunkRepo.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TextContent != "the text" || got.PageNumber != 3 {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := chunkRepo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryRepoInsertAndListRecent(t *testing.T) {
	db := newTestDB(t)
	repo := NewQueryRepo(db)
	ctx := context.Background()

	for i, id := range []string{"q1", "q2", "q3"} {
		err := repo.Insert(ctx, &QueryRecord{
			ID:               id,
			QueryText:        "question",
			AnswerText:       "answer",
			Confidence:       "MEDIUM",
			NumChunks:        i,
			AvgSimilarity:    0.5,
			ProcessingTimeMs: 100,
		})
		if err != nil {
			t.Fatalf("failed to insert query: %v", err)
		}
	}

	records, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Confidence != "MEDIUM" || rec.AnswerText != "answer" {
			t.Fatalf("unexpected record: %+v", rec)
		}
		if rec.CreatedAt.IsZero() {
			t.Fatal("expected created_at to be populated")
		}
	}
}

func TestQueryRepoListRecentEmpty(t *testing.T) {
	repo := NewQueryRepo(newTestDB(t))
	records, err := repo.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty history, got %d", len(records))
	}
}
