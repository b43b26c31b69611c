package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// QueryStore defines the interface for query history operations.
type QueryStore interface {
	// Insert records an answered query. The record ID must be set.
	Insert(ctx context.Context, rec *QueryRecord) error
	// ListRecent returns the most recent queries, newest first.
	ListRecent(ctx context.Context, limit int) ([]*QueryRecord, error)
}

// QueryRepo provides methods for the query history log.
// It implements the QueryStore interface.
type QueryRepo struct {
	db *sql.DB
}

// NewQueryRepo creates a new QueryRepo.
func NewQueryRepo(db *sql.DB) *QueryRepo {
	return &QueryRepo{db: db}
}

// Insert records an answered query.
func (r *QueryRepo) Insert(ctx context.Context, rec *QueryRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queries (id, query_text, answer_text, confidence_level, num_chunks_retrieved, avg_similarity_score, processing_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.QueryText, rec.AnswerText, rec.Confidence, rec.NumChunks, rec.AvgSimilarity, rec.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}
	return nil
}

// ListRecent returns the most recent queries, newest first.
func (r *QueryRepo) ListRecent(ctx context.Context, limit int) ([]*QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, query_text, answer_text, confidence_level, num_chunks_retrieved, avg_similarity_score, processing_time_ms, created_at
		 FROM queries ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*QueryRecord
	for rows.Next() {
		var rec QueryRecord
		var answer, confidence sql.NullString
		if err := rows.Scan(&rec.ID, &rec.QueryText, &answer, &confidence, &rec.NumChunks, &rec.AvgSimilarity, &rec.ProcessingTimeMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		rec.AnswerText = answer.String
		rec.Confidence = confidence.String
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
