package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tohum-ai/tohum/internal/model"
	"github.com/tohum-ai/tohum/internal/store"
)

// sqliteStore implements store.Store on a single SQLite connection.
//
// Every multi-statement operation runs under mu inside one transaction, so
// concurrent turns never observe each other's partial writes and a crash
// leaves either the pre- or post-state.
type sqliteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wires the adapter onto an existing connection (used by the
// factory and by tests with in-memory databases).
func NewWithDB(db *sql.DB) (store.Store, error) {
	for _, stmt := range store.DDLStatements() {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Sessions() store.Sessions       { return (*sessions)(s) }
func (s *sqliteStore) Messages() store.Messages       { return (*messages)(s) }
func (s *sqliteStore) MemoryItems() store.MemoryItems { return (*memoryItems)(s) }

func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteStore) Close() error { return s.db.Close() }

// --- Sessions ---

type sessions sqliteStore

func (s *sessions) Ensure(ctx context.Context, sessionID string, userID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if userID != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (id, created_at) VALUES (?, ?)`,
			*userID, now); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, started_at, last_activity_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_activity_at = excluded.last_activity_at`,
		sessionID, userID, now, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sessions) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, started_at, last_activity_at FROM sessions WHERE id = ?`,
		sessionID)
	var out model.Session
	if err := row.Scan(&out.ID, &out.UserID, &out.StartedAt, &out.LastActivityAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", sessionID, model.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

// --- Messages ---

type messages sqliteStore

func (s *messages) Append(ctx context.Context, sessionID, role string, text, audioURL *string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	// Touching the session doubles as the existence check.
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = ? WHERE id = ?`, now, sessionID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, model.ErrNotFound)
	}

	msg := &model.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		AudioURL:  audioURL,
		CreatedAt: now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, text, audio_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Text, msg.AudioURL, msg.CreatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messages) List(ctx context.Context, sessionID string, limit int) ([]*model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, text, audio_url, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Text, &m.AudioURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Memory items ---

type memoryItems sqliteStore

func (s *memoryItems) Insert(ctx context.Context, item *model.MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	metaJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_items (id, session_id, text, tags, source, trust_score, metadata, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.SessionID, item.Text, string(tagsJSON),
		item.Source, item.TrustScore, string(metaJSON), item.AddedAt)
	return err
}

func (s *memoryItems) List(ctx context.Context, sessionID *string, limit int) ([]*model.MemoryItem, error) {
	q := `SELECT id, session_id, text, tags, source, trust_score, metadata, added_at FROM memory_items`
	args := []interface{}{}
	if sessionID != nil {
		q += ` WHERE session_id = ?`
		args = append(args, *sessionID)
	}
	q += ` ORDER BY added_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.MemoryItem
	for rows.Next() {
		var it model.MemoryItem
		var tagsJSON, metaJSON sql.NullString
		if err := rows.Scan(&it.ID, &it.SessionID, &it.Text, &tagsJSON,
			&it.Source, &it.TrustScore, &metaJSON, &it.AddedAt); err != nil {
			return nil, err
		}
		if err := rehydrate(&it, tagsJSON, metaJSON); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func rehydrate(it *model.MemoryItem, tagsJSON, metaJSON sql.NullString) error {
	it.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &it.Tags); err != nil {
			return fmt.Errorf("unmarshal tags for %s: %w", it.ID, err)
		}
	}
	if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
		if err := json.Unmarshal([]byte(metaJSON.String), &it.Metadata); err != nil {
			return fmt.Errorf("unmarshal metadata for %s: %w", it.ID, err)
		}
	}
	return nil
}
