// Package storetest provides a driver-agnostic conformance suite for
// store.Store implementations. The sqlite adapter runs it hermetically;
// other drivers can run it against a provisioned database.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tohum-ai/tohum/internal/model"
	"github.com/tohum-ai/tohum/internal/store"
)

// Factory returns a fresh, empty store for one test.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against the given driver.
func Run(t *testing.T, newStore Factory) {
	t.Run("EnsureSessionIsIdempotent", func(t *testing.T) { testEnsureIdempotent(t, newStore(t)) })
	t.Run("EnsureSessionCreatesUserLazily", func(t *testing.T) { testEnsureUser(t, newStore(t)) })
	t.Run("AppendAndListMessages", func(t *testing.T) { testMessages(t, newStore(t)) })
	t.Run("AppendToMissingSession", func(t *testing.T) { testAppendMissing(t, newStore(t)) })
	t.Run("MemoryItemRoundTrip", func(t *testing.T) { testMemoryItems(t, newStore(t)) })
}

func testEnsureIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()

	if err := s.Sessions().Ensure(ctx, "s1", nil); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	first, err := s.Sessions().Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}

	if err := s.Sessions().Ensure(ctx, "s1", nil); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	second, err := s.Sessions().Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get session again: %v", err)
	}

	if second.StartedAt != first.StartedAt {
		t.Fatalf("ensure must not recreate the session row")
	}
	if second.LastActivityAt.Before(first.LastActivityAt) {
		t.Fatalf("last_activity_at went backwards: %v -> %v", first.LastActivityAt, second.LastActivityAt)
	}
}

func testEnsureUser(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := "u1"

	if err := s.Sessions().Ensure(ctx, "s1", &uid); err != nil {
		t.Fatalf("ensure with user: %v", err)
	}
	// Repeating with the same user must not conflict.
	if err := s.Sessions().Ensure(ctx, "s2", &uid); err != nil {
		t.Fatalf("ensure second session same user: %v", err)
	}
	sess, err := s.Sessions().Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.UserID == nil || *sess.UserID != uid {
		t.Fatalf("session not linked to user: %+v", sess)
	}
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.Sessions().Ensure(ctx, "s1", nil); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	texts := []string{"merhaba", "selam", "nasılsın"}
	for _, txt := range texts {
		v := txt
		if _, err := s.Messages().Append(ctx, "s1", model.RoleUser, &v, nil); err != nil {
			t.Fatalf("append %q: %v", txt, err)
		}
	}

	msgs, err := s.Messages().List(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("limit not applied, got %d messages", len(msgs))
	}
	all, err := s.Messages().List(ctx, "s1", 50)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
			t.Fatalf("messages out of order at %d", i)
		}
	}

	// Appending must bump session activity.
	sess, err := s.Sessions().Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.LastActivityAt.Before(all[len(all)-1].CreatedAt) {
		t.Fatalf("append did not touch last_activity_at")
	}
}

func testAppendMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	txt := "hello"
	_, err := s.Messages().Append(ctx, "nope", model.RoleUser, &txt, nil)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testMemoryItems(t *testing.T, s store.Store) {
	ctx := context.Background()
	sid := "s1"
	if err := s.Sessions().Ensure(ctx, sid, nil); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	item := &model.MemoryItem{
		ID:         "m1",
		SessionID:  &sid,
		Text:       "kahve siparişi",
		Tags:       []string{"ev", "iş"},
		Source:     "user",
		TrustScore: 0.9,
		Metadata:   map[string]interface{}{"mode": "text"},
		AddedAt:    nowUTC(),
	}
	if err := s.MemoryItems().Insert(ctx, item); err != nil {
		t.Fatalf("insert: %v", err)
	}
	time.Sleep(5 * time.Millisecond) // keep added_at ordering unambiguous
	global := &model.MemoryItem{
		ID:      "m2",
		Text:    "global fact",
		Tags:    []string{},
		Source:  "user",
		AddedAt: nowUTC(),
	}
	global.TrustScore = 1.0
	if err := s.MemoryItems().Insert(ctx, global); err != nil {
		t.Fatalf("insert global: %v", err)
	}

	got, err := s.MemoryItems().List(ctx, &sid, 100)
	if err != nil {
		t.Fatalf("list by session: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("unexpected session-scoped list: %+v", got)
	}
	if got[0].Text != "kahve siparişi" {
		t.Fatalf("text mangled: %q", got[0].Text)
	}
	if len(got[0].Tags) != 2 || got[0].Tags[0] != "ev" || got[0].Tags[1] != "iş" {
		t.Fatalf("tags not rehydrated in order: %v", got[0].Tags)
	}
	if got[0].Metadata["mode"] != "text" {
		t.Fatalf("metadata not rehydrated: %v", got[0].Metadata)
	}
	if got[0].TrustScore != 0.9 {
		t.Fatalf("trust score mangled: %v", got[0].TrustScore)
	}

	all, err := s.MemoryItems().List(ctx, nil, 100)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}
	// Descending by added_at: the global item was inserted last.
	if all[0].ID != "m2" {
		t.Fatalf("expected newest first, got %s", all[0].ID)
	}
}

func nowUTC() time.Time { return time.Now().UTC() }
