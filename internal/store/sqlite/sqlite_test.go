package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tohum-ai/tohum/internal/store"
	"github.com/tohum-ai/tohum/internal/store/storetest"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "mem.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSqliteStore_Conformance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestSqliteStore_SchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.db")
	s1, err := New(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Reopening applies CREATE IF NOT EXISTS over an existing schema.
	s2, err := New(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer func() { _ = s2.Close() }()

	if err := s2.HealthPing(context.Background()); err != nil {
		t.Fatalf("health ping: %v", err)
	}
}

func TestSqliteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mem.db")

	s1, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s1.Sessions().Ensure(ctx, "s1", nil); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	txt := "kalıcı mı"
	if _, err := s1.Messages().Append(ctx, "s1", "user", &txt, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	msgs, err := s2.Messages().List(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text == nil || *msgs[0].Text != txt {
		t.Fatalf("message did not survive reopen: %+v", msgs)
	}
}
