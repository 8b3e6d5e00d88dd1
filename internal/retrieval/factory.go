package retrieval

import (
	"fmt"

	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/embedding"
)

// New builds the index selected by rcfg.Index. The embedder described by ecfg is
// only constructed for the semantic and hybrid indexes.
func New(rcfg config.RetrievalConfig, ecfg config.EmbeddingConfig) (Index, error) {
	chunker := NewChunker(rcfg.ChunkSize, rcfg.ChunkOverlap)
	switch rcfg.Index {
	case config.IndexKeyword, "":
		kw, err := NewKeywordIndex(chunker, rcfg.Fuzziness)
		if err != nil {
			return nil, err
		}
		return kw, nil
	case config.IndexSemantic:
		emb, err := embedding.New(ecfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		sem, err := NewSemanticIndex(emb, chunker)
		if err != nil {
			_ = emb.Close()
			return nil, err
		}
		return sem, nil
	case config.IndexHybrid:
		kw, err := NewKeywordIndex(chunker, rcfg.Fuzziness)
		if err != nil {
			return nil, err
		}
		emb, err := embedding.New(ecfg)
		if err != nil {
			_ = kw.Close()
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		sem, err := NewSemanticIndex(emb, chunker)
		if err != nil {
			_ = kw.Close()
			_ = emb.Close()
			return nil, err
		}
		return NewHybridIndex(kw, sem, rcfg.KeywordWeight), nil
	default:
		return nil, fmt.Errorf("unknown retrieval index: %s (supported: keyword, semantic, hybrid)", rcfg.Index)
	}
}
