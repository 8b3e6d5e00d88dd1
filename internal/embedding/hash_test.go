package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/kiku/internal/vector"
)

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	normalize(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v", v)
	}
	zero := []float32{0, 0}
	normalize(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()
	a, err := e.Embed(ctx, "The fox won 3 awards.")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "the FOX won 3 awards")
	if len(a) != 64 {
		t.Fatalf("dimensions: got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_SimilarityFollowsOverlap(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "how many awards did the fox win")
	related, _ := e.Embed(ctx, "The fox won 3 awards.")
	unrelated, _ := e.Embed(ctx, "Quarterly revenue grew in Europe.")
	if vector.InnerProduct(q, related) <= vector.InnerProduct(q, unrelated) {
		t.Errorf("related text should score higher: related=%f unrelated=%f",
			vector.InnerProduct(q, related), vector.InnerProduct(q, unrelated))
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	emb, err := NewHashEmbedder(8).Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range emb {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v", emb)
		}
	}
}

func TestHashEmbedder_Batch(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("default dimensions: %d", e.Dimensions())
	}
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Errorf("batch size: %d", len(out))
	}
}

func TestHashEmbedder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).Embed(ctx, "text"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func BenchmarkHashEmbedder_Embed(b *testing.B) {
	e := NewHashEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark question about the uploaded document")
	}
}
