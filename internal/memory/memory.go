// Package memory persists conversation history so a logging session
// can span multiple requests. Messages round-trip losslessly,
// including assistant tool calls and tool results, because the model
// needs the full exchange to stay coherent across turns.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mcnewcp/phda-logger/internal/llm"
)

// DefaultWindow is how many recent messages are replayed to the model
// when no limit is configured.
const DefaultWindow = 40

// Store is a SQLite-backed conversation store.
type Store struct {
	db     *sql.DB
	window int
}

// Open creates or opens a conversation store. window caps how many
// recent messages Recent returns; zero or negative means DefaultWindow.
func Open(dbPath string, window int) (*Store, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open conversation database: %w", err)
	}

	s := &Store{db: db, window: window}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate conversation schema: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls TEXT,
		tool_call_id TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure makes sure the conversation row exists.
func (s *Store) Ensure(ctx context.Context, conversationID, ownerID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO conversations (id, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, conversationID, ownerID, now, now)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	return nil
}

// Append stores messages at the tail of a conversation, preserving
// order. Tool calls and tool-call ids survive the round trip.
func (s *Store) Append(ctx context.Context, conversationID string, msgs ...llm.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i, m := range msgs {
		var toolCalls any
		if len(m.ToolCalls) > 0 {
			encoded, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("encode tool calls: %w", err)
			}
			toolCalls = string(encoded)
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("mint message id: %w", err)
		}

		// Nudge created_at per message so batch inserts keep order
		// under the index even within one clock tick.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, tool_calls, tool_call_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id.String(), conversationID, m.Role, m.Content, toolCalls, nullable(m.ToolCallID), now.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, now, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	return tx.Commit()
}

// Recent returns the most recent messages of a conversation in
// chronological order, bounded by the store's window. The returned
// history never starts with a tool result: a window cut mid tool-group
// would orphan tool messages from the assistant message that issued
// them, and the model rejects a tool result with no matching call.
func (s *Store) Recent(ctx context.Context, conversationID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, tool_calls, tool_call_id
		FROM (
			SELECT role, content, tool_calls, tool_call_id, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		)
		ORDER BY created_at ASC
	`, conversationID, s.window)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []llm.Message
	for rows.Next() {
		var m llm.Message
		var toolCalls, toolCallID sql.NullString
		if err := rows.Scan(&m.Role, &m.Content, &toolCalls, &toolCallID); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}
		m.ToolCallID = toolCallID.String
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Drop tool results whose issuing assistant message fell outside
	// the window.
	for len(msgs) > 0 && msgs[0].Role == "tool" {
		msgs = msgs[1:]
	}

	return msgs, nil
}

// Clear removes a conversation and its messages.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		return err
	}

	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
