package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			session_id TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS session_ends (
			session_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			agent_id TEXT,
			started_at TEXT,
			ended_at TEXT,
			duration_ms INTEGER,
			transcript TEXT,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_ends_conversation ON session_ends(conversation_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendMessages appends messages to their conversation histories.
func (s *SQLiteStore) AppendMessages(ctx context.Context, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, conversation_id, session_id, role, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			m.MessageID, m.ConversationID, m.SessionID, m.Role, m.Content, m.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", m.MessageID, err)
		}
	}

	return tx.Commit()
}

// GetMessages returns a conversation's history in insertion order.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, session_id, role, content, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, message_id ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var sessionID sql.NullString
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &sessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.SessionID = sessionID.String
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// RecordSessionEnd upserts a finished session's summary. The platform
// retries failed deliveries, so replays must not error.
func (s *SQLiteStore) RecordSessionEnd(ctx context.Context, end *SessionEnd) error {
	var transcript any
	if end.Transcript != nil {
		data, err := json.Marshal(end.Transcript)
		if err != nil {
			return fmt.Errorf("failed to marshal transcript: %w", err)
		}
		transcript = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_ends (session_id, conversation_id, agent_id, started_at, ended_at, duration_ms, transcript, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			agent_id = excluded.agent_id,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			duration_ms = excluded.duration_ms,
			transcript = excluded.transcript,
			recorded_at = excluded.recorded_at`,
		end.SessionID, end.ConversationID, end.AgentID, end.StartedAt, end.EndedAt,
		end.DurationMs, transcript, end.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to record session end: %w", err)
	}
	return nil
}

// GetSessionEnd returns a session summary, or nil if none is recorded.
func (s *SQLiteStore) GetSessionEnd(ctx context.Context, sessionID string) (*SessionEnd, error) {
	var end SessionEnd
	var agentID, startedAt, endedAt, transcript sql.NullString
	var durationMs sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, conversation_id, agent_id, started_at, ended_at, duration_ms, transcript, recorded_at
		 FROM session_ends WHERE session_id = ?`, sessionID).
		Scan(&end.SessionID, &end.ConversationID, &agentID, &startedAt, &endedAt, &durationMs, &transcript, &end.RecordedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session end: %w", err)
	}

	end.AgentID = agentID.String
	end.StartedAt = startedAt.String
	end.EndedAt = endedAt.String
	end.DurationMs = durationMs.Int64
	if transcript.Valid {
		if err := json.Unmarshal([]byte(transcript.String), &end.Transcript); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
		}
	}

	return &end, nil
}
