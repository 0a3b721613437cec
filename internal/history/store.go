// Package history provides an append-only PostgreSQL transcript of chat
// commands. The pipeline works without it; recording failures are the
// caller's to log and ignore.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded command/response pair.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sentence       string    `json:"sentence"`
	ResponseKind   string    `json:"response_kind"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store wraps a PostgreSQL connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database and verifies it.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Record appends one transcript entry. Implements command.TranscriptRecorder.
func (s *Store) Record(ctx context.Context, conversationID, sentence, responseKind, errMessage string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_transcript (conversation_id, sentence, response_kind, error_message)
		 VALUES ($1, $2, $3, $4)`,
		conversationID, sentence, responseKind, errMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record transcript entry: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, sentence, response_kind, error_message, created_at
		 FROM chat_transcript
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Sentence, &e.ResponseKind, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Schema is the DDL for the transcript table, applied by deployment tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS chat_transcript (
    id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    conversation_id TEXT NOT NULL DEFAULT '',
    sentence        TEXT NOT NULL,
    response_kind   TEXT NOT NULL DEFAULT '',
    error_message   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
