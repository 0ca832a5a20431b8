package searchindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tohum-ai/tohum/internal/embeddings/mock"
	"github.com/tohum-ai/tohum/internal/model"
)

func newTestIndex(t *testing.T) Index {
	t.Helper()
	idx, err := NewChromemIndex(t.TempDir(), "test_memory", mock.New(), 5*time.Second)
	if err != nil {
		t.Fatalf("open chromem index: %v", err)
	}
	return idx
}

func TestChromem_UpsertAndSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	rec := IndexRecord{
		ID:   "m1",
		Text: "kahve siparişi",
		Metadata: map[string]interface{}{
			"tags":        []string{"ev"},
			"trust_score": 1.0,
			"source":      "user",
			"session_id":  "s1",
		},
	}
	if err := idx.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := idx.Search(ctx, SearchRequest{Query: "kahve siparişi", TopK: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "m1" {
		t.Fatalf("expected the upserted record, got %+v", hits)
	}
	if hits[0].Text != "kahve siparişi" {
		t.Fatalf("document text mangled: %q", hits[0].Text)
	}
	tags, _ := hits[0].Metadata["tags"].([]string)
	if len(tags) != 1 || tags[0] != "ev" {
		t.Fatalf("tags not round-tripped: %v", hits[0].Metadata["tags"])
	}
	if ts, _ := hits[0].Metadata["trust_score"].(float64); ts != 1.0 {
		t.Fatalf("trust score not round-tripped: %v", hits[0].Metadata["trust_score"])
	}
}

func TestChromem_ReupsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	rec := IndexRecord{ID: "m1", Text: "first version"}
	if err := idx.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec.Text = "second version"
	if err := idx.Upsert(ctx, rec); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	hits, err := idx.Search(ctx, SearchRequest{Query: "second version", TopK: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("re-upsert duplicated the record: %d hits", len(hits))
	}
	if hits[0].Text != "second version" {
		t.Fatalf("re-upsert did not replace content: %q", hits[0].Text)
	}
}

func TestChromem_SessionFilter(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	for id, sid := range map[string]string{"m1": "s1", "m2": "s2"} {
		if err := idx.Upsert(ctx, IndexRecord{
			ID:       id,
			Text:     "ortak içerik " + id,
			Metadata: map[string]interface{}{"session_id": sid},
		}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	sid := "s1"
	hits, err := idx.Search(ctx, SearchRequest{Query: "ortak içerik", TopK: 5, SessionID: &sid})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "m1" {
		t.Fatalf("session filter failed: %+v", hits)
	}
}

func TestChromem_TagFilterIsConjunctive(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	items := []struct {
		id   string
		tags []string
	}{
		{"m1", []string{"iş", "takip"}},
		{"m2", []string{"iş"}},
		{"m3", nil},
	}
	for _, it := range items {
		meta := map[string]interface{}{}
		if it.tags != nil {
			meta["tags"] = it.tags
		}
		if err := idx.Upsert(ctx, IndexRecord{ID: it.id, Text: "proje teslim tarihi " + it.id, Metadata: meta}); err != nil {
			t.Fatalf("upsert %s: %v", it.id, err)
		}
	}

	hits, err := idx.Search(ctx, SearchRequest{Query: "proje teslim", TopK: 5, Tags: []string{"iş", "takip"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "m1" {
		t.Fatalf("tag conjunction failed: %+v", hits)
	}
}

func TestChromem_EmptyIndexReturnsEmptySlice(t *testing.T) {
	idx := newTestIndex(t)
	hits, err := idx.Search(context.Background(), SearchRequest{Query: "anything", TopK: 5})
	if err != nil {
		t.Fatalf("search on empty index: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Fatalf("expected empty slice, got %v", hits)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedder down")
}

func TestChromem_EmbedderFailureIsIndexUnavailable(t *testing.T) {
	idx, err := NewChromemIndex(t.TempDir(), "test_memory", failingEmbedder{}, time.Second)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	if err := idx.Upsert(context.Background(), IndexRecord{ID: "m1", Text: "x"}); !errors.Is(err, model.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}
