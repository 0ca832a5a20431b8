package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/tohum-ai/tohum/internal/embeddings"
	"github.com/tohum-ai/tohum/internal/model"
)

// Reserved metadata keys carried on every record.
const (
	metaKeySession = "session_id"
	metaKeyTags    = "tags"
	metaKeyTrust   = "trust_score"
	metaKeySource  = "source"
)

// chromemIndex is the embedded default backend. chromem-go is a pure Go
// vector database persisted to a local directory, so "unavailable" here
// means the embedding provider failed or the call timed out.
type chromemIndex struct {
	col     *chromem.Collection
	timeout time.Duration
}

// NewChromemIndex opens (or creates) a persistent chromem collection at path.
// Embeddings for both upserts and queries are computed through emb.
func NewChromemIndex(path, collection string, emb embeddings.Provider, timeout time.Duration) (Index, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	embedFn := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return emb.Embed(ctx, text)
	})
	col, err := db.GetOrCreateCollection(collection, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("open chromem collection %s: %w", collection, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &chromemIndex{col: col, timeout: timeout}, nil
}

func (c *chromemIndex) Upsert(ctx context.Context, rec IndexRecord) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	doc := chromem.Document{
		ID:       rec.ID,
		Content:  rec.Text,
		Metadata: flattenMetadata(rec.Metadata),
	}
	// AddDocument replaces an existing id, which gives upsert semantics.
	if err := c.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem upsert %s: %w: %w", rec.ID, model.ErrIndexUnavailable, err)
	}
	return nil
}

func (c *chromemIndex) Search(ctx context.Context, req SearchRequest) ([]model.MemoryHit, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	count := c.col.Count()
	if count == 0 {
		return []model.MemoryHit{}, nil
	}

	var where map[string]string
	if req.SessionID != nil {
		where = map[string]string{metaKeySession: *req.SessionID}
	}

	// chromem caps nResults at the candidate set size. When a tag filter is
	// present we score every candidate and trim after filtering, because
	// chromem metadata filters are exact-match only. The shrink loop covers
	// where-filters matching fewer documents than requested.
	n := req.TopK
	if len(req.Tags) > 0 || n > count {
		n = count
	}
	var results []chromem.Result
	for ; n >= 1; n-- {
		var err error
		results, err = c.col.Query(ctx, req.Query, n, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return []model.MemoryHit{}, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w: %w", model.ErrIndexUnavailable, err)
	}

	hits := make([]model.MemoryHit, 0, len(results))
	for _, res := range results {
		meta := expandMetadata(res.Metadata)
		if !carriesAllTags(meta, req.Tags) {
			continue
		}
		hits = append(hits, model.MemoryHit{
			ID:       res.ID,
			Text:     res.Content,
			Metadata: meta,
			// chromem reports cosine similarity; the contract is distance.
			Score: 1 - float64(res.Similarity),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score < hits[j].Score })
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return hits, nil
}

// HealthPing embeds a probe string through the collection's embedding func.
// The index itself is in-process; the embedder is the part that can fail.
func (c *chromemIndex) HealthPing(ctx context.Context) error {
	if c.col.Count() == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.col.Query(ctx, "ping", 1, nil, nil)
	return err
}

// flattenMetadata stringifies values for chromem, which stores string-only
// metadata. Non-strings are JSON encoded.
func flattenMetadata(meta map[string]interface{}) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			if b, err := json.Marshal(v); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

// expandMetadata restores native types for the reserved keys; extension keys
// stay as stored strings.
func expandMetadata(meta map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		switch k {
		case metaKeyTags:
			var tags []string
			if err := json.Unmarshal([]byte(v), &tags); err == nil {
				out[k] = tags
				continue
			}
			out[k] = v
		case metaKeyTrust:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				out[k] = f
				continue
			}
			out[k] = v
		default:
			out[k] = v
		}
	}
	return out
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "nResults must be") ||
		strings.Contains(err.Error(), "number of documents")
}

func carriesAllTags(meta map[string]interface{}, want []string) bool {
	if len(want) == 0 {
		return true
	}
	tags, _ := meta[metaKeyTags].([]string)
	have := make(map[string]bool, len(tags))
	for _, tg := range tags {
		have[tg] = true
	}
	for _, tg := range want {
		if !have[tg] {
			return false
		}
	}
	return true
}
