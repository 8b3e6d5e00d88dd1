// Package generate provides the language-model completion backends.
package generate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/config"
)

// ErrEmptyCompletion is returned when the backend answers without any choices.
var ErrEmptyCompletion = errors.New("empty completion")

// Generator produces a completion for a fully rendered prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the long-lived generator selected by cfg.Provider.
func New(cfg config.GenerationConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("generation.api_key (or OPENAI_API_KEY) is required for the openai provider")
		}
		return NewOpenAI(cfg.APIKey, cfg.Model,
			WithBaseURL(cfg.BaseURL),
			WithTemperature(cfg.Temperature),
			WithLogger(logger),
		), nil
	case config.ProviderOllama:
		return NewOllama(cfg.BaseURL, cfg.Model,
			WithTemperature(cfg.Temperature),
			WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}

type options struct {
	baseURL     string
	temperature float64
	logger      *zap.Logger
}

// Option configures a generator.
type Option func(*options)

// WithBaseURL overrides the API endpoint. Empty keeps the provider default.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = t }
}

// WithLogger sets the logger. Nil keeps a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{temperature: 0.7, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
