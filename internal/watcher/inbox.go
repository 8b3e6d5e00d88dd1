package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/fileid"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/pkg/utils"
)

// Ingester stores and indexes a document.
type Ingester interface {
	Ingest(ctx context.Context, filename string, content []byte) (*models.Asset, error)
}

// Inbox ingests files delivered by a Watcher. A file whose content was already
// ingested is skipped, so rewriting or copying a file does not create a second asset.
type Inbox struct {
	ingester Ingester
	logger   *zap.Logger

	mu       sync.Mutex
	seen     map[string]string        // content digest -> asset id
	inflight map[string]chan struct{} // closed when that digest's ingest returns
}

// NewInbox creates an inbox that hands files to ingester.
func NewInbox(ingester Ingester, logger *zap.Logger) *Inbox {
	return &Inbox{
		ingester: ingester,
		logger:   utils.OrNop(logger),
		seen:     make(map[string]string),
		inflight: make(map[string]chan struct{}),
	}
}

// Ingest reads path and ingests it under its base name. It returns the asset id and
// whether a new asset was created.
func (in *Inbox) Ingest(ctx context.Context, path string) (string, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	digest := fileid.ContentDigest(content)

	for {
		in.mu.Lock()
		if id, ok := in.seen[digest]; ok {
			in.mu.Unlock()
			in.logger.Debug("inbox file already ingested", zap.String("path", path), zap.String("asset_id", id))
			return id, false, nil
		}
		wait, busy := in.inflight[digest]
		if !busy {
			break
		}
		in.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	done := make(chan struct{})
	in.inflight[digest] = done
	in.mu.Unlock()

	asset, err := in.ingester.Ingest(ctx, filepath.Base(path), content)

	in.mu.Lock()
	delete(in.inflight, digest)
	if err == nil {
		in.seen[digest] = asset.ID
	}
	in.mu.Unlock()
	close(done)
	if err != nil {
		return "", false, err
	}
	return asset.ID, true, nil
}

// Handler returns a Watcher callback that ingests each delivered file and logs the result.
func (in *Inbox) Handler(ctx context.Context) func(path string) {
	return func(path string) {
		id, created, err := in.Ingest(ctx, path)
		if err != nil {
			in.logger.Error("inbox ingestion failed", zap.String("filename", filepath.Base(path)), zap.Error(err))
			return
		}
		if created {
			in.logger.Info("inbox file ingested", zap.String("filename", filepath.Base(path)), zap.String("asset_id", id))
		}
	}
}
