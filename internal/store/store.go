// Package store defines the relational persistence contract for sessions,
// messages, and memory item metadata. It is the single source of truth for
// structured fields and ordering; semantic retrieval lives in searchindex.
package store

import (
	"context"

	"github.com/tohum-ai/tohum/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (sqlite, postgres).
type Store interface {
	Sessions() Sessions
	Messages() Messages
	MemoryItems() MemoryItems

	// HealthPing returns nil when the backing database is reachable.
	HealthPing(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Sessions manages session rows and their lazily created user rows.
type Sessions interface {
	// Ensure inserts the session if absent, else touches last_activity_at.
	// When userID is given, the user row is inserted with ignore-if-exists
	// semantics. Repeated calls with the same id never error and never
	// duplicate the row.
	Ensure(ctx context.Context, sessionID string, userID *string) error

	// Get returns the session or model.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*model.Session, error)
}

// Messages manages immutable conversation turns.
type Messages interface {
	// Append inserts a message with a fresh id and touches the session's
	// last_activity_at in the same transaction. Returns model.ErrNotFound
	// when the session does not exist.
	Append(ctx context.Context, sessionID, role string, text, audioURL *string) (*model.Message, error)

	// List returns up to limit messages ascending by created_at.
	List(ctx context.Context, sessionID string, limit int) ([]*model.Message, error)
}

// MemoryItems manages long-term memory metadata rows.
type MemoryItems interface {
	// Insert stores the item; tags and metadata are serialized to JSON blobs.
	Insert(ctx context.Context, item *model.MemoryItem) error

	// List returns up to limit items descending by added_at, filtered to a
	// session when sessionID is non-nil.
	List(ctx context.Context, sessionID *string, limit int) ([]*model.MemoryItem, error)
}
