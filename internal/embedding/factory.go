package embedding

import (
	"fmt"

	"github.com/hyperjump/kiku/internal/config"
)

// New builds the embedder selected by cfg, wrapped in an LRU cache when cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var e Embedder
	switch cfg.Provider {
	case config.EmbeddingHash, "":
		e = NewHashEmbedder(cfg.Dimensions)
	case config.EmbeddingONNX:
		if cfg.ModelPath == "" {
			return nil, fmt.Errorf("embedding.model_path is required for the onnx provider")
		}
		onnx, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		e = onnx
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, onnx)", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}
