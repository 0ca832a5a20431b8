// Package searchindex provides approximate nearest-neighbor retrieval over
// memory text. Backends: chromem (embedded, default) and weaviate (server).
package searchindex

import (
	"context"

	"github.com/tohum-ai/tohum/internal/model"
)

// IndexRecord is the vector-store projection of a memory item. Its lifecycle
// mirrors the relational row one-to-one; the id is the join key.
type IndexRecord struct {
	ID       string
	Text     string
	Metadata map[string]interface{}
}

// SearchRequest describes one top-k similarity query. SessionID and Tags
// form a conjunctive filter; Tags means "hit carries all of these".
type SearchRequest struct {
	Query     string
	TopK      int
	SessionID *string
	Tags      []string
}

// Index is the vector index contract.
//
// Search returns hits ascending by distance; an empty slice means zero
// matches. Backend or embedding failures wrap model.ErrIndexUnavailable and
// are never collapsed into an empty result set. Implementations enforce a
// per-call timeout and surface expiry the same way.
type Index interface {
	// Upsert stores the record keyed by id; re-upserting replaces prior content.
	Upsert(ctx context.Context, rec IndexRecord) error

	// Search runs a filtered top-k similarity query.
	Search(ctx context.Context, req SearchRequest) ([]model.MemoryHit, error)

	// HealthPing returns nil when the backend is reachable.
	HealthPing(ctx context.Context) error
}
