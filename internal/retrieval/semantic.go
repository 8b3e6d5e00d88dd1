package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/vector"
)

// SemanticIndex ranks passages by cosine similarity of their embeddings.
// Passages with no similarity to the query (score <= 0) are not returned.
type SemanticIndex struct {
	embedder embedding.Embedder
	vectors  vector.Index
	chunker  *Chunker

	mu      sync.RWMutex
	chunks  map[string]Chunk    // passage id -> chunk
	byAsset map[string][]string // asset id -> passage ids
}

var _ Index = (*SemanticIndex)(nil)

// NewSemanticIndex creates a semantic index over an in-memory vector index sized for embedder.
func NewSemanticIndex(embedder embedding.Embedder, chunker *Chunker) (*SemanticIndex, error) {
	vectors, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	return &SemanticIndex{
		embedder: embedder,
		vectors:  vectors,
		chunker:  chunker,
		chunks:   make(map[string]Chunk),
		byAsset:  make(map[string][]string),
	}, nil
}

// Add embeds and indexes each chunk of text.
func (s *SemanticIndex) Add(ctx context.Context, assetID, text string) error {
	chunks := s.chunker.Chunk(assetID, text)
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = c.ID
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed passages: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.vectors.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("failed to add vectors: %w", err)
	}
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	s.byAsset[assetID] = append(s.byAsset[assetID], ids...)
	return nil
}

// Query embeds text and returns the nearest passages.
func (s *SemanticIndex) Query(ctx context.Context, text string, opts QueryOptions) ([]models.Passage, error) {
	hits, err := s.hitsByRank(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	passages := make([]models.Passage, len(hits))
	for i, h := range hits {
		passages[i] = h.Passage
	}
	return passages, nil
}

type rankedPassage struct {
	ID      string
	Passage models.Passage
}

func (s *SemanticIndex) hitsByRank(ctx context.Context, text string, opts QueryOptions) ([]rankedPassage, error) {
	if opts.TopK <= 0 {
		return nil, nil
	}
	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var filter vector.Filter
	if opts.AssetID != "" {
		filter = func(id string) bool { return s.chunks[id].AssetID == opts.AssetID }
	}
	results, err := s.vectors.Search(ctx, query, opts.TopK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	out := make([]rankedPassage, 0, len(results))
	for _, r := range results {
		if r.Score <= 0 {
			continue
		}
		c := s.chunks[r.ID]
		out = append(out, rankedPassage{
			ID:      r.ID,
			Passage: models.Passage{AssetID: c.AssetID, Text: c.Text, Score: r.Score},
		})
	}
	return out, nil
}

// hitsByID returns semantic hits keyed by passage id, used by hybrid fusion.
func (s *SemanticIndex) hitsByID(ctx context.Context, text string, opts QueryOptions) (map[string]models.Passage, error) {
	hits, err := s.hitsByRank(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Passage, len(hits))
	for _, h := range hits {
		out[h.ID] = h.Passage
	}
	return out, nil
}

// Remove deletes every passage of assetID.
func (s *SemanticIndex) Remove(ctx context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byAsset[assetID]
	if len(ids) == 0 {
		return nil
	}
	if err := s.vectors.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to remove vectors: %w", err)
	}
	for _, id := range ids {
		delete(s.chunks, id)
	}
	delete(s.byAsset, assetID)
	return nil
}

// Size returns the number of indexed passages.
func (s *SemanticIndex) Size() int {
	return s.vectors.Size()
}

// Close releases the vector index and the embedder.
func (s *SemanticIndex) Close() error {
	err := s.vectors.Close()
	if cerr := s.embedder.Close(); err == nil {
		err = cerr
	}
	return err
}
