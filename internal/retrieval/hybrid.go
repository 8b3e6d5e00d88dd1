package retrieval

import (
	"context"

	"github.com/hyperjump/kiku/internal/models"
)

// candidateFactor widens each sub-query so fusion sees passages ranked just below top-k.
const candidateFactor = 2

// HybridIndex fuses keyword and semantic rankings with a weighted sum.
type HybridIndex struct {
	keyword       *KeywordIndex
	semantic      *SemanticIndex
	keywordWeight float64
}

var _ Index = (*HybridIndex)(nil)

// NewHybridIndex combines kw and sem. keywordWeight is clamped to [0,1]; the semantic weight is 1-keywordWeight.
func NewHybridIndex(kw *KeywordIndex, sem *SemanticIndex, keywordWeight float64) *HybridIndex {
	if keywordWeight < 0 {
		keywordWeight = 0
	}
	if keywordWeight > 1 {
		keywordWeight = 1
	}
	return &HybridIndex{keyword: kw, semantic: sem, keywordWeight: keywordWeight}
}

// Add indexes text in both sub-indexes. The keyword passages are removed if the semantic add fails.
func (h *HybridIndex) Add(ctx context.Context, assetID, text string) error {
	if err := h.keyword.Add(ctx, assetID, text); err != nil {
		return err
	}
	if err := h.semantic.Add(ctx, assetID, text); err != nil {
		_ = h.keyword.Remove(ctx, assetID)
		return err
	}
	return nil
}

// Query runs both sub-queries and returns the top fused passages.
func (h *HybridIndex) Query(ctx context.Context, text string, opts QueryOptions) ([]models.Passage, error) {
	if opts.TopK <= 0 {
		return nil, nil
	}
	wide := QueryOptions{AssetID: opts.AssetID, TopK: opts.TopK * candidateFactor}
	kwHits, err := h.keyword.hitsByID(ctx, text, wide)
	if err != nil {
		return nil, err
	}
	semHits, err := h.semantic.hitsByID(ctx, text, wide)
	if err != nil {
		return nil, err
	}
	fused := fuse(kwHits, semHits, h.keywordWeight)
	if len(fused) > opts.TopK {
		fused = fused[:opts.TopK]
	}
	passages := make([]models.Passage, len(fused))
	for i, f := range fused {
		passages[i] = f.Passage
	}
	return passages, nil
}

// Remove deletes the asset from both sub-indexes.
func (h *HybridIndex) Remove(ctx context.Context, assetID string) error {
	kwErr := h.keyword.Remove(ctx, assetID)
	if err := h.semantic.Remove(ctx, assetID); err != nil {
		return err
	}
	return kwErr
}

// Size returns the number of indexed passages (each passage lives in both sub-indexes).
func (h *HybridIndex) Size() int {
	return h.keyword.Size()
}

// Close closes both sub-indexes.
func (h *HybridIndex) Close() error {
	kwErr := h.keyword.Close()
	if err := h.semantic.Close(); err != nil {
		return err
	}
	return kwErr
}
