package mock

import (
	"context"
	"math"
	"testing"
)

func TestEmbed_Deterministic(t *testing.T) {
	p := New()
	a, err := p.Embed(context.Background(), "kahve siparişi")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := p.Embed(context.Background(), "kahve siparişi")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(a) != p.Dimensions() {
		t.Fatalf("unexpected dimensionality %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at %d", i)
		}
	}
}

func TestEmbed_UnitVector(t *testing.T) {
	p := New()
	vec, err := p.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-3 {
		t.Fatalf("expected unit vector, norm=%f", math.Sqrt(norm))
	}
}

func TestEmbed_DistinctTextsDiffer(t *testing.T) {
	p := New()
	a, _ := p.Embed(context.Background(), "a")
	b, _ := p.Embed(context.Background(), "b")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("distinct texts produced identical embeddings")
	}
}
