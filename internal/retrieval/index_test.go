package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/embedding"
)

func testConfigs() (config.RetrievalConfig, config.EmbeddingConfig) {
	return config.RetrievalConfig{
			ChunkSize:     50,
			ChunkOverlap:  5,
			KeywordWeight: 0.5,
		}, config.EmbeddingConfig{
			Provider:   config.EmbeddingHash,
			Dimensions: 1024,
			CacheSize:  100,
		}
}

// indexes runs fn against each index kind.
func indexes(t *testing.T, fn func(t *testing.T, idx Index)) {
	for _, kind := range []string{config.IndexKeyword, config.IndexSemantic, config.IndexHybrid} {
		t.Run(kind, func(t *testing.T) {
			rcfg, ecfg := testConfigs()
			rcfg.Index = kind
			idx, err := New(rcfg, ecfg)
			if err != nil {
				t.Fatalf("New(%s): %v", kind, err)
			}
			t.Cleanup(func() { _ = idx.Close() })
			fn(t, idx)
		})
	}
}

func TestIndex_RoundTrip(t *testing.T) {
	indexes(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		if err := idx.Add(ctx, "fox", "The fox won 3 awards."); err != nil {
			t.Fatal(err)
		}
		passages, err := idx.Query(ctx, "How many awards did the fox win?", QueryOptions{AssetID: "fox", TopK: 4})
		if err != nil {
			t.Fatal(err)
		}
		if len(passages) != 1 {
			t.Fatalf("expected 1 passage, got %d", len(passages))
		}
		if passages[0].AssetID != "fox" || passages[0].Text != "The fox won 3 awards." {
			t.Errorf("unexpected passage %+v", passages[0])
		}
		if idx.Size() != 1 {
			t.Errorf("Size=%d", idx.Size())
		}
	})
}

func TestIndex_ScopedNeverReturnsOtherAsset(t *testing.T) {
	indexes(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		_ = idx.Add(ctx, "a", "Quarterly revenue grew in the northern region.")
		_ = idx.Add(ctx, "b", "Revenue revenue revenue. The quokka report covers revenue.")

		passages, err := idx.Query(ctx, "quokka revenue", QueryOptions{AssetID: "a", TopK: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(passages) == 0 {
			t.Fatal("expected passages from asset a")
		}
		for _, p := range passages {
			if p.AssetID != "a" {
				t.Errorf("scoped query returned passage of %s", p.AssetID)
			}
		}
	})
}

func TestIndex_GlobalRanksUniqueTermFirst(t *testing.T) {
	indexes(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		_ = idx.Add(ctx, "a", "Meeting notes about budgets and hiring.")
		_ = idx.Add(ctx, "b", "Field notes about the quokka population.")

		passages, err := idx.Query(ctx, "quokka", QueryOptions{TopK: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(passages) == 0 {
			t.Fatal("expected at least one passage")
		}
		if passages[0].AssetID != "b" {
			t.Errorf("expected asset b first, got %s", passages[0].AssetID)
		}
	})
}

func TestIndex_TopK(t *testing.T) {
	indexes(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		for _, id := range []string{"a", "b", "c", "d"} {
			_ = idx.Add(ctx, id, "shared words about lanterns")
		}
		passages, err := idx.Query(ctx, "lanterns", QueryOptions{TopK: 2})
		if err != nil {
			t.Fatal(err)
		}
		if len(passages) != 2 {
			t.Errorf("expected 2 passages, got %d", len(passages))
		}
		if none, _ := idx.Query(ctx, "lanterns", QueryOptions{TopK: 0}); len(none) != 0 {
			t.Errorf("TopK 0 should return nothing, got %d", len(none))
		}
	})
}

func TestIndex_EmptyTextAndRemove(t *testing.T) {
	indexes(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		if err := idx.Add(ctx, "empty", "   "); err != nil {
			t.Fatal(err)
		}
		passages, err := idx.Query(ctx, "anything", QueryOptions{AssetID: "empty", TopK: 4})
		if err != nil {
			t.Fatal(err)
		}
		if len(passages) != 0 {
			t.Errorf("empty document should yield no passages, got %d", len(passages))
		}

		_ = idx.Add(ctx, "x", "lighthouse keeper journal")
		if err := idx.Remove(ctx, "x"); err != nil {
			t.Fatal(err)
		}
		if err := idx.Remove(ctx, "never-added"); err != nil {
			t.Fatal(err)
		}
		if idx.Size() != 0 {
			t.Errorf("Size=%d after remove", idx.Size())
		}
		passages, _ = idx.Query(ctx, "lighthouse", QueryOptions{TopK: 4})
		if len(passages) != 0 {
			t.Errorf("removed asset still returned: %+v", passages)
		}
	})
}

func TestNew_UnknownIndex(t *testing.T) {
	rcfg, ecfg := testConfigs()
	rcfg.Index = "faiss"
	if _, err := New(rcfg, ecfg); err == nil {
		t.Error("expected error for unknown index")
	}
}

type failingEmbedder struct {
	*embedding.HashEmbedder
}

func (f failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func TestHybridIndex_AddRollsBackKeyword(t *testing.T) {
	chunker := NewChunker(50, 5)
	kw, err := NewKeywordIndex(chunker, 0)
	if err != nil {
		t.Fatal(err)
	}
	sem, err := NewSemanticIndex(failingEmbedder{embedding.NewHashEmbedder(16)}, chunker)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHybridIndex(kw, sem, 0.5)
	defer h.Close()

	if err := h.Add(context.Background(), "a", "some words"); err == nil {
		t.Fatal("expected add error")
	}
	if kw.Size() != 0 {
		t.Errorf("keyword passages left behind: %d", kw.Size())
	}
}
