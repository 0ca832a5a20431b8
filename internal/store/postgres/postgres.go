// Package postgres provides the managed-database store driver. The schema is
// owned by deployment migrations; Bootstrap only verifies connectivity.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tohum-ai/tohum/internal/model"
	"github.com/tohum-ai/tohum/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

// Bootstrap performs a connectivity check to ensure Postgres is reachable.
func Bootstrap(ctx context.Context, dsn string) error {
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return db.PingContext(ctx)
}

type pgStore struct{ db *sql.DB }

func (s *pgStore) Sessions() store.Sessions       { return &pgSessions{db: s.db} }
func (s *pgStore) Messages() store.Messages       { return &pgMessages{db: s.db} }
func (s *pgStore) MemoryItems() store.MemoryItems { return &pgMemoryItems{db: s.db} }

func (s *pgStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *pgStore) Close() error                         { return s.db.Close() }

// --- Sessions ---

type pgSessions struct{ db *sql.DB }

func (p *pgSessions) Ensure(ctx context.Context, sessionID string, userID *string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if userID != nil {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO users (id, created_at) VALUES ($1, $2)
            ON CONFLICT (id) DO NOTHING
        `, *userID, now); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO sessions (id, user_id, started_at, last_activity_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET last_activity_at = EXCLUDED.last_activity_at
    `, sessionID, userID, now, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *pgSessions) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	var out model.Session
	row := p.db.QueryRowContext(ctx, `
        SELECT id, user_id, started_at, last_activity_at FROM sessions WHERE id = $1
    `, sessionID)
	if err := row.Scan(&out.ID, &out.UserID, &out.StartedAt, &out.LastActivityAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", sessionID, model.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

// --- Messages ---

type pgMessages struct{ db *sql.DB }

func (p *pgMessages) Append(ctx context.Context, sessionID, role string, text, audioURL *string) (*model.Message, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
        UPDATE sessions SET last_activity_at = $1 WHERE id = $2
    `, now, sessionID)
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
        VALUES ($1, $2, $3, $4, $5, $6)
    `, msg.ID, msg.SessionID, msg.Role, msg.Text, msg.AudioURL, msg.CreatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (p *pgMessages) List(ctx context.Context, sessionID string, limit int) ([]*model.Message, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT id, session_id, role, text, audio_url, created_at
        FROM messages WHERE session_id = $1
        ORDER BY created_at ASC LIMIT $2
    `, sessionID, limit)
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

type pgMemoryItems struct{ db *sql.DB }

func (p *pgMemoryItems) Insert(ctx context.Context, item *model.MemoryItem) error {
	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	metaJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO memory_items (id, session_id, text, tags, source, trust_score, metadata, added_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, item.ID, item.SessionID, item.Text, string(tagsJSON),
		item.Source, item.TrustScore, string(metaJSON), item.AddedAt)
	return err
}

func (p *pgMemoryItems) List(ctx context.Context, sessionID *string, limit int) ([]*model.MemoryItem, error) {
	q := `SELECT id, session_id, text, tags, source, trust_score, metadata, added_at FROM memory_items`
	args := []interface{}{}
	if sessionID != nil {
		q += ` WHERE session_id = $1 ORDER BY added_at DESC LIMIT $2`
		args = append(args, *sessionID, limit)
	} else {
		q += ` ORDER BY added_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
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
		it.Tags = []string{}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &it.Tags); err != nil {
				return nil, fmt.Errorf("unmarshal tags for %s: %w", it.ID, err)
			}
		}
		if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
			if err := json.Unmarshal([]byte(metaJSON.String), &it.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for %s: %w", it.ID, err)
			}
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}
