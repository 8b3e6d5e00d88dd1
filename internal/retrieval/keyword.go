package retrieval

import (
	"context"
	"fmt"

	"github.com/hyperjump/kiku/internal/keyword"
	"github.com/hyperjump/kiku/internal/models"
)

// KeywordIndex ranks passages with Bleve BM25 scoring.
type KeywordIndex struct {
	index     keyword.Index
	chunker   *Chunker
	fuzziness int
}

var _ Index = (*KeywordIndex)(nil)

// NewKeywordIndex creates a keyword index over a fresh in-memory Bleve index.
func NewKeywordIndex(chunker *Chunker, fuzziness int) (*KeywordIndex, error) {
	idx, err := keyword.NewBleveIndex()
	if err != nil {
		return nil, err
	}
	return &KeywordIndex{index: idx, chunker: chunker, fuzziness: fuzziness}, nil
}

// Add indexes each chunk of text. Passages already written are removed if a later one fails.
func (k *KeywordIndex) Add(ctx context.Context, assetID, text string) error {
	for _, c := range k.chunker.Chunk(assetID, text) {
		if err := k.index.Index(ctx, c.ID, keyword.Passage{AssetID: assetID, Text: c.Text}); err != nil {
			_ = k.index.DeleteAsset(ctx, assetID)
			return err
		}
	}
	return nil
}

// Query returns the best keyword matches for text.
func (k *KeywordIndex) Query(ctx context.Context, text string, opts QueryOptions) ([]models.Passage, error) {
	hits, err := k.search(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	passages := make([]models.Passage, len(hits))
	for i, h := range hits {
		passages[i] = toPassage(h)
	}
	return passages, nil
}

func (k *KeywordIndex) search(ctx context.Context, text string, opts QueryOptions) ([]*keyword.Result, error) {
	hits, err := k.index.Search(ctx, text, opts.TopK, &keyword.SearchOptions{
		AssetID:   opts.AssetID,
		Fuzziness: k.fuzziness,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword query failed: %w", err)
	}
	return hits, nil
}

func toPassage(h *keyword.Result) models.Passage {
	return models.Passage{AssetID: h.AssetID, Text: h.Text, Score: h.Score}
}

// Remove deletes every passage of assetID.
func (k *KeywordIndex) Remove(ctx context.Context, assetID string) error {
	return k.index.DeleteAsset(ctx, assetID)
}

// Size returns the number of indexed passages.
func (k *KeywordIndex) Size() int {
	n, err := k.index.DocCount()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close releases the Bleve index.
func (k *KeywordIndex) Close() error {
	return k.index.Close()
}

// hitsByID returns keyword hits keyed by passage id, used by hybrid fusion.
func (k *KeywordIndex) hitsByID(ctx context.Context, text string, opts QueryOptions) (map[string]models.Passage, error) {
	hits, err := k.search(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Passage, len(hits))
	for _, h := range hits {
		out[h.ID] = toPassage(h)
	}
	return out, nil
}
