package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/tohum-ai/tohum/internal/embeddings"
	"github.com/tohum-ai/tohum/internal/model"
)

// memoryClass is the Weaviate class holding one object per memory item,
// keyed by the memory id.
const memoryClass = "TohumMemory"

// weaviateIndex is the server-backed Index implementation. Vectors are
// computed client-side through the embeddings provider; the class is
// created with Vectorizer "none".
type weaviateIndex struct {
	client  *weaviate.Client
	emb     embeddings.Provider
	baseURL string // host:port without scheme
	timeout time.Duration
}

// NewWeaviateIndex constructs an Index backed by Weaviate at baseURL
// (host:port, no scheme).
func NewWeaviateIndex(baseURL string, emb embeddings.Provider, timeout time.Duration) (Index, error) {
	cl, err := weaviate.NewClient(weaviate.Config{Scheme: "http", Host: baseURL})
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &weaviateIndex{client: cl, emb: emb, baseURL: baseURL, timeout: timeout}, nil
}

func (w *weaviateIndex) Upsert(ctx context.Context, rec IndexRecord) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	vec, err := w.emb.Embed(ctx, rec.Text)
	if err != nil {
		return fmt.Errorf("weaviate upsert %s: embed: %w: %w", rec.ID, model.ErrIndexUnavailable, err)
	}

	props := map[string]interface{}{
		"text":     rec.Text,
		"source":   "",
		"metadata": "",
	}
	var tags []string
	for k, v := range rec.Metadata {
		switch k {
		case metaKeySession:
			props["sessionId"] = v
		case metaKeyTags:
			tags, _ = v.([]string)
		case metaKeyTrust:
			props["trustScore"] = v
		case metaKeySource:
			props["source"] = v
		}
	}
	props["tags"] = tags
	if extras := extensionMetadata(rec.Metadata); len(extras) > 0 {
		if b, err := json.Marshal(extras); err == nil {
			props["metadata"] = string(b)
		}
	}

	// Delete-then-create gives replace semantics; the Data Creator alone
	// rejects an existing id.
	_ = w.client.Data().Deleter().WithClassName(memoryClass).WithID(rec.ID).Do(ctx)
	_, err = w.client.Data().Creator().
		WithClassName(memoryClass).
		WithID(rec.ID).
		WithProperties(props).
		WithVector(vec).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate upsert %s: %w: %w", rec.ID, model.ErrIndexUnavailable, err)
	}
	return nil
}

func (w *weaviateIndex) Search(ctx context.Context, req SearchRequest) ([]model.MemoryHit, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	vec, err := w.emb.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: embed: %w: %w", model.ErrIndexUnavailable, err)
	}

	near := w.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	var operands []*filters.WhereBuilder
	if req.SessionID != nil {
		operands = append(operands, filters.Where().
			WithPath([]string{"sessionId"}).
			WithOperator(filters.Equal).
			WithValueText(*req.SessionID))
	}
	if len(req.Tags) > 0 {
		operands = append(operands, filters.Where().
			WithPath([]string{"tags"}).
			WithOperator(filters.ContainsAll).
			WithValueText(req.Tags...))
	}

	get := w.client.GraphQL().Get().
		WithClassName(memoryClass).
		WithNearVector(near).
		WithLimit(req.TopK).
		WithFields(
			gql.Field{Name: "text"},
			gql.Field{Name: "sessionId"},
			gql.Field{Name: "tags"},
			gql.Field{Name: "source"},
			gql.Field{Name: "trustScore"},
			gql.Field{Name: "metadata"},
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "id"}, {Name: "distance"}}},
		)
	switch len(operands) {
	case 0:
	case 1:
		get = get.WithWhere(operands[0])
	default:
		get = get.WithWhere(filters.Where().WithOperator(filters.And).WithOperands(operands))
	}

	resp, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w: %w", model.ErrIndexUnavailable, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate graphql: %w: %s", model.ErrIndexUnavailable, formatGraphQLErrors(resp.Errors))
	}

	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return []model.MemoryHit{}, nil
	}
	raw, ok := getData[memoryClass].([]interface{})
	if !ok {
		return []model.MemoryHit{}, nil
	}

	hits := make([]model.MemoryHit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		hit := model.MemoryHit{Metadata: map[string]interface{}{}}
		hit.Text, _ = m["text"].(string)
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			hit.ID, _ = add["id"].(string)
			if d, ok := add["distance"].(float64); ok {
				hit.Score = d
			}
		}
		if sid, ok := m["sessionId"].(string); ok && sid != "" {
			hit.Metadata[metaKeySession] = sid
		}
		if src, ok := m["source"].(string); ok && src != "" {
			hit.Metadata[metaKeySource] = src
		}
		if ts, ok := m["trustScore"].(float64); ok {
			hit.Metadata[metaKeyTrust] = ts
		}
		if rawTags, ok := m["tags"].([]interface{}); ok {
			tags := make([]string, 0, len(rawTags))
			for _, tg := range rawTags {
				if s, ok := tg.(string); ok {
					tags = append(tags, s)
				}
			}
			hit.Metadata[metaKeyTags] = tags
		}
		if metaStr, ok := m["metadata"].(string); ok && metaStr != "" {
			var extras map[string]interface{}
			if err := json.Unmarshal([]byte(metaStr), &extras); err == nil {
				for k, v := range extras {
					if _, reserved := hit.Metadata[k]; !reserved {
						hit.Metadata[k] = v
					}
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// HealthPing calls GET /v1/meta and expects 200 OK.
func (w *weaviateIndex) HealthPing(ctx context.Context) error {
	url := w.baseURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/meta", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weaviate status %d", resp.StatusCode)
	}
	return nil
}

// extensionMetadata returns caller-supplied keys that are not reserved.
func extensionMetadata(meta map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range meta {
		switch k {
		case metaKeySession, metaKeyTags, metaKeyTrust, metaKeySource:
		default:
			out[k] = v
		}
	}
	return out
}

func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
