package rag

import (
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/config"
)

// OptionsFromConfig translates the retrieval, session and generation settings of cfg into Options.
func OptionsFromConfig(cfg *config.Config, logger *zap.Logger) ([]Option, error) {
	prompt, err := NewPrompt(cfg.Generation.PromptTemplate)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithLogger(logger),
		WithTopK(cfg.Retrieval.TopK),
		WithGlobalScope(cfg.Retrieval.Scope == config.ScopeGlobal),
		WithAssetValidation(cfg.Sessions.ValidateAsset),
		WithGenerationTimeout(cfg.Generation.Timeout()),
		WithPrompt(prompt),
	}, nil
}
