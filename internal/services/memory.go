// Package services contains the use-case layer: MemoryService keeps the
// relational store and the vector index in sync, ChatService turns
// utterances into recorded turns and recalled context.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tohum-ai/tohum/internal/model"
	"github.com/tohum-ai/tohum/internal/searchindex"
	"github.com/tohum-ai/tohum/internal/store"
)

// Reserved metadata keys projected onto every index record. They always win
// over caller-supplied extension keys of the same name.
const (
	metaKeySession = "session_id"
	metaKeyTags    = "tags"
	metaKeyTrust   = "trust_score"
	metaKeySource  = "source"
)

const defaultSource = "user"

// MemoryService orchestrates the relational store and the vector index.
//
// Writes go to the relational store first: it is the durable system of
// record, so a failed index upsert leaves the item listable while the
// error still propagates to the caller. There is no compensating rollback
// across the two stores; that availability trade-off is deliberate.
type MemoryService struct {
	store store.Store
	idx   searchindex.Index
	log   zerolog.Logger

	defaultTopK  int
	defaultLimit int
}

// NewMemoryService wires the dual-store orchestrator. defaultTopK bounds
// searches with an unspecified limit; defaultLimit bounds listings.
func NewMemoryService(st store.Store, idx searchindex.Index, log zerolog.Logger, defaultTopK, defaultLimit int) *MemoryService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &MemoryService{
		store:        st,
		idx:          idx,
		log:          log,
		defaultTopK:  defaultTopK,
		defaultLimit: defaultLimit,
	}
}

// EnsureSession creates the session (and its user row) or touches its
// activity timestamp. Safe to repeat.
func (s *MemoryService) EnsureSession(ctx context.Context, sessionID string, userID *string) error {
	if sessionID == "" {
		return fmt.Errorf("ensure_session: empty session id: %w", model.ErrValidation)
	}
	return wrapStoreErr(fmt.Sprintf("ensure_session %s", sessionID),
		s.store.Sessions().Ensure(ctx, sessionID, userID))
}

// AppendMessage records one immutable conversation turn.
func (s *MemoryService) AppendMessage(ctx context.Context, sessionID, role string, text, audioURL *string) (*model.Message, error) {
	if role != model.RoleUser && role != model.RoleAssistant {
		return nil, fmt.Errorf("append_message: invalid role %q: %w", role, model.ErrValidation)
	}
	msg, err := s.store.Messages().Append(ctx, sessionID, role, text, audioURL)
	if err != nil {
		return nil, wrapStoreErr(fmt.Sprintf("append_message session=%s", sessionID), err)
	}
	return msg, nil
}

// ListMessages replays a session ascending by creation time.
func (s *MemoryService) ListMessages(ctx context.Context, sessionID string, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	msgs, err := s.store.Messages().List(ctx, sessionID, limit)
	if err != nil {
		return nil, wrapStoreErr(fmt.Sprintf("list_messages session=%s", sessionID), err)
	}
	return msgs, nil
}

// RememberRequest carries one long-term memory write.
type RememberRequest struct {
	Text      string
	Tags      []string
	Metadata  map[string]interface{}
	SessionID *string
	// TrustScore defaults to 1.0 when nil.
	TrustScore *float64
}

// Remember validates the request, writes the MemoryItem to the relational
// store, then upserts the matching VectorRecord under the same id.
//
// An index failure after a successful relational write is surfaced to the
// caller: the item is already findable via ListMemoryItems but not via
// SearchMemory until a retried upsert succeeds.
func (s *MemoryService) Remember(ctx context.Context, req RememberRequest) (*model.MemoryItem, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("remember: empty text: %w", model.ErrValidation)
	}
	trust := 1.0
	if req.TrustScore != nil {
		trust = *req.TrustScore
	}
	if trust < 0 || trust > 1 {
		return nil, fmt.Errorf("remember: trust score %v out of [0,1]: %w", trust, model.ErrValidation)
	}

	if req.SessionID != nil && *req.SessionID == "" {
		req.SessionID = nil
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	source := defaultSource
	if v, ok := req.Metadata[metaKeySource].(string); ok && v != "" {
		source = v
	}

	item := &model.MemoryItem{
		ID:         uuid.New().String(),
		SessionID:  req.SessionID,
		Text:       req.Text,
		Tags:       tags,
		Source:     source,
		TrustScore: trust,
		Metadata:   req.Metadata,
		AddedAt:    time.Now().UTC(),
	}

	if err := s.store.MemoryItems().Insert(ctx, item); err != nil {
		return nil, wrapStoreErr(fmt.Sprintf("remember insert %s", item.ID), err)
	}

	if err := s.idx.Upsert(ctx, searchindex.IndexRecord{
		ID:       item.ID,
		Text:     item.Text,
		Metadata: indexMetadata(item),
	}); err != nil {
		// The relational row stayed; the caller decides whether to retry
		// the index side.
		s.log.Error().Stack().Str("memoryId", item.ID).Err(err).
			Msg("memory stored but index upsert failed")
		return nil, fmt.Errorf("remember index %s: %w", item.ID, err)
	}
	return item, nil
}

// ListMemoryItems lists stored memories descending by added_at, with tags
// and metadata rehydrated into native values.
func (s *MemoryService) ListMemoryItems(ctx context.Context, sessionID *string, limit int) ([]*model.MemoryItem, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	items, err := s.store.MemoryItems().List(ctx, sessionID, limit)
	if err != nil {
		return nil, wrapStoreErr("list_memory_items", err)
	}
	return items, nil
}

// SearchRequest carries one semantic memory query.
type SearchRequest struct {
	Query     string
	Limit     int
	SessionID *string
	Tags      []string
}

// SearchMemory runs a filtered top-k similarity query. Zero matches yield
// an empty slice; an unreachable index yields model.ErrIndexUnavailable.
func (s *MemoryService) SearchMemory(ctx context.Context, req SearchRequest) ([]model.MemoryHit, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("search_memory: empty query: %w", model.ErrValidation)
	}
	topK := req.Limit
	if topK <= 0 {
		topK = s.defaultTopK
	}
	hits, err := s.idx.Search(ctx, searchindex.SearchRequest{
		Query:     req.Query,
		TopK:      topK,
		SessionID: req.SessionID,
		Tags:      req.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("search_memory: %w", err)
	}
	if hits == nil {
		hits = []model.MemoryHit{}
	}
	return hits, nil
}

// indexMetadata builds the vector-store metadata projection: reserved keys
// from the item, then caller extension keys that do not collide.
func indexMetadata(item *model.MemoryItem) map[string]interface{} {
	meta := map[string]interface{}{
		metaKeyTags:   item.Tags,
		metaKeyTrust:  item.TrustScore,
		metaKeySource: item.Source,
	}
	if item.SessionID != nil {
		meta[metaKeySession] = *item.SessionID
	}
	for k, v := range item.Metadata {
		if _, reserved := meta[k]; !reserved && k != metaKeySession {
			meta[k] = v
		}
	}
	return meta
}

// wrapStoreErr keeps sentinel errors recognizable and classifies everything
// else as a store failure.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
