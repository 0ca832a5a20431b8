package searchindex

import (
	"context"
	"fmt"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// BootstrapWeaviate ensures the TohumMemory class exists. Vectorizer is
// "none": vectors are always supplied by the embeddings provider.
func BootstrapWeaviate(ctx context.Context, baseURL string) error {
	cl, err := weaviate.NewClient(weaviate.Config{Scheme: "http", Host: baseURL})
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	class := &models.Class{
		Class:      memoryClass,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "sessionId", DataType: []string{"text"}},
			{Name: "text", DataType: []string{"text"}},
			{Name: "tags", DataType: []string{"text[]"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "trustScore", DataType: []string{"number"}},
			{Name: "metadata", DataType: []string{"text"}},
		},
	}

	exists, err := cl.Schema().ClassExistenceChecker().WithClassName(memoryClass).Do(cctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", memoryClass, err)
	}
	if exists {
		return nil
	}
	if err := cl.Schema().ClassCreator().WithClass(class).Do(cctx); err != nil {
		return fmt.Errorf("create class %s: %w", memoryClass, err)
	}
	return nil
}
