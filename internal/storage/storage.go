// Package storage defines the stores behind the chat pipeline: assets, sessions and history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kiku/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a record with the same id already exists.
	ErrDuplicate = errors.New("duplicate id")
)

// AssetStore holds extracted document text keyed by asset id.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	// DeleteAsset exists only to roll back a failed ingestion.
	DeleteAsset(ctx context.Context, id string) error
	CountAssets(ctx context.Context) (int64, error)
}

// SessionStore maps chat ids to the asset they were started against.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.ChatSession) error
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	CountSessions(ctx context.Context) (int64, error)
}

// HistoryStore is an append-only log of exchanges per chat id.
// AppendHistory must be atomic per chat id.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	GetHistory(ctx context.Context, chatID string) ([]*models.HistoryEntry, error)
	CountHistory(ctx context.Context) (int64, error)
}

// Storage bundles every store the pipeline needs.
type Storage interface {
	AssetStore
	SessionStore
	HistoryStore
	Close() error
}
