// Package rag implements the document chat pipeline: ingestion into the document
// store and similarity index, chat session binding, and retrieval-augmented replies.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/generate"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/retrieval"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/pkg/utils"
)

const (
	DefaultTopK              = 4
	DefaultGenerationTimeout = 60 * time.Second

	logMessageLen = 80
)

// Pipeline coordinates the stores, the similarity index and the generator.
// It is safe for concurrent use when its dependencies are.
type Pipeline struct {
	store     storage.Storage
	index     retrieval.Index
	generator generate.Generator
	extractor *extract.Extractor
	prompt    *Prompt

	topK          int
	globalScope   bool
	validateAsset bool
	timeout       time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Nil keeps a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = utils.OrNop(l) }
}

// WithTopK sets how many passages are retrieved per message.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithGlobalScope makes retrieval search every indexed document instead of only the session's asset.
func WithGlobalScope(global bool) Option {
	return func(p *Pipeline) { p.globalScope = global }
}

// WithAssetValidation makes StartSession reject asset ids that are not stored.
func WithAssetValidation(validate bool) Option {
	return func(p *Pipeline) { p.validateAsset = validate }
}

// WithGenerationTimeout bounds each generator call.
func WithGenerationTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPrompt replaces the default prompt.
func WithPrompt(prompt *Prompt) Option {
	return func(p *Pipeline) {
		if prompt != nil {
			p.prompt = prompt
		}
	}
}

// New creates a pipeline. The generator is shared by every call and never rebuilt.
func New(store storage.Storage, index retrieval.Index, generator generate.Generator, opts ...Option) *Pipeline {
	defaultPrompt, _ := NewPrompt(DefaultPromptTemplate)
	p := &Pipeline{
		store:     store,
		index:     index,
		generator: generator,
		extractor: extract.NewExtractor(),
		prompt:    defaultPrompt,
		topK:      DefaultTopK,
		timeout:   DefaultGenerationTimeout,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest extracts the text of content, stores it as a new asset and indexes it.
// The extension of filename selects the extractor.
func (p *Pipeline) Ingest(ctx context.Context, filename string, content []byte) (*models.Asset, error) {
	const op = "Ingest"
	if filename == "" {
		return nil, missing(op, "No file provided")
	}

	text, err := p.extractor.Extract(filename, content)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			return nil, newError(UnsupportedType, op, errors.New("Unsupported file type"))
		}
		return nil, newError(ExtractionError, op, err)
	}

	asset := &models.Asset{
		ID:        uuid.NewString(),
		Filename:  filename,
		Text:      text,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.CreateAsset(ctx, asset); err != nil {
		return nil, newError(StorageFailure, op, fmt.Errorf("failed to store asset: %w", err))
	}
	if err := p.index.Add(ctx, asset.ID, text); err != nil {
		if derr := p.store.DeleteAsset(ctx, asset.ID); derr != nil {
			p.logger.Error("failed to roll back asset", zap.String("asset_id", asset.ID), zap.Error(derr))
		}
		return nil, newError(IndexFailure, op, fmt.Errorf("failed to index asset: %w", err))
	}

	p.logger.Info("ingested document",
		zap.String("asset_id", asset.ID),
		zap.String("filename", filename),
		zap.Int("chars", len(text)))
	return asset, nil
}

// StartSession binds a fresh chat id to assetID.
func (p *Pipeline) StartSession(ctx context.Context, assetID string) (*models.ChatSession, error) {
	const op = "StartSession"
	if assetID == "" {
		return nil, missing(op, "Asset ID is required")
	}
	if p.validateAsset {
		if _, err := p.store.GetAsset(ctx, assetID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, newError(UnknownAsset, op, fmt.Errorf("Asset %s not found", assetID))
			}
			return nil, newError(StorageFailure, op, err)
		}
	}

	session := &models.ChatSession{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.CreateSession(ctx, session); err != nil {
		return nil, newError(StorageFailure, op, fmt.Errorf("failed to store session: %w", err))
	}
	p.logger.Info("started chat", zap.String("chat_id", session.ID), zap.String("asset_id", assetID))
	return session, nil
}

// SendMessage answers message within the chat's session and appends the exchange to its history.
// Nothing is recorded when any step fails.
func (p *Pipeline) SendMessage(ctx context.Context, chatID, message string) (*models.Reply, error) {
	const op = "SendMessage"
	question := strings.TrimSpace(message)
	if chatID == "" || question == "" {
		return nil, missing(op, "Chat ID and message are required")
	}

	session, err := p.session(ctx, op, chatID)
	if err != nil {
		return nil, err
	}

	opts := retrieval.QueryOptions{TopK: p.topK}
	if !p.globalScope {
		opts.AssetID = session.AssetID
	}
	passages, err := p.index.Query(ctx, question, opts)
	if err != nil {
		return nil, newError(IndexFailure, op, err)
	}

	prompt, err := p.prompt.Render(joinPassages(passages), question)
	if err != nil {
		return nil, newError(GenerationFailure, op, err)
	}

	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	response, err := p.generator.Complete(genCtx, prompt)
	if err != nil {
		p.logger.Warn("generation failed",
			zap.String("chat_id", chatID),
			zap.String("message", utils.Truncate(question, logMessageLen)),
			zap.Error(err))
		return nil, newError(GenerationFailure, op, err)
	}

	entry := &models.HistoryEntry{
		ChatID:    chatID,
		User:      message,
		Bot:       response,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.AppendHistory(ctx, entry); err != nil {
		return nil, newError(StorageFailure, op, fmt.Errorf("failed to append history: %w", err))
	}

	p.logger.Debug("answered message",
		zap.String("chat_id", chatID),
		zap.String("asset_id", session.AssetID),
		zap.Int("passages", len(passages)))
	return &models.Reply{ChatID: chatID, Response: response, Context: passages}, nil
}

// History returns the exchanges of chatID in the order they happened.
func (p *Pipeline) History(ctx context.Context, chatID string) ([]*models.HistoryEntry, error) {
	const op = "History"
	if chatID == "" {
		return nil, missing(op, "Chat ID is required")
	}
	if _, err := p.session(ctx, op, chatID); err != nil {
		return nil, err
	}
	entries, err := p.store.GetHistory(ctx, chatID)
	if err != nil {
		return nil, newError(StorageFailure, op, err)
	}
	return entries, nil
}

// Asset returns a stored asset.
func (p *Pipeline) Asset(ctx context.Context, assetID string) (*models.Asset, error) {
	const op = "Asset"
	if assetID == "" {
		return nil, missing(op, "Asset ID is required")
	}
	asset, err := p.store.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(UnknownAsset, op, fmt.Errorf("Asset %s not found", assetID))
		}
		return nil, newError(StorageFailure, op, err)
	}
	return asset, nil
}

// Stats counts stored records and indexed passages.
func (p *Pipeline) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "Stats"
	var (
		s   models.Stats
		err error
	)
	if s.Assets, err = p.store.CountAssets(ctx); err != nil {
		return nil, newError(StorageFailure, op, err)
	}
	if s.Sessions, err = p.store.CountSessions(ctx); err != nil {
		return nil, newError(StorageFailure, op, err)
	}
	if s.HistoryEntries, err = p.store.CountHistory(ctx); err != nil {
		return nil, newError(StorageFailure, op, err)
	}
	s.IndexedPassages = p.index.Size()
	return &s, nil
}

func (p *Pipeline) session(ctx context.Context, op, chatID string) (*models.ChatSession, error) {
	session, err := p.store.GetSession(ctx, chatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(UnknownSession, op, errors.New("Invalid Chat ID"))
		}
		return nil, newError(StorageFailure, op, err)
	}
	return session, nil
}

func joinPassages(passages []models.Passage) string {
	texts := make([]string, len(passages))
	for i, ps := range passages {
		texts[i] = ps.Text
	}
	return strings.Join(texts, "\n")
}
