package storage

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/hyperjump/kiku/internal/models"
)

const historyShards = 32

// MemoryStorage implements Storage with process-local maps.
type MemoryStorage struct {
	assetsMu sync.RWMutex
	assets   map[string]*models.Asset

	sessionsMu sync.RWMutex
	sessions   map[string]*models.ChatSession

	history [historyShards]historyShard
}

type historyShard struct {
	mu      sync.Mutex
	entries map[string][]*models.HistoryEntry
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	s := &MemoryStorage{
		assets:   make(map[string]*models.Asset),
		sessions: make(map[string]*models.ChatSession),
	}
	for i := range s.history {
		s.history[i].entries = make(map[string][]*models.HistoryEntry)
	}
	return s
}

// CreateAsset stores a copy of asset. The first write for an id wins.
func (s *MemoryStorage) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	s.assetsMu.Lock()
	defer s.assetsMu.Unlock()
	if _, ok := s.assets[asset.ID]; ok {
		return fmt.Errorf("asset %s: %w", asset.ID, ErrDuplicate)
	}
	cp := *asset
	s.assets[asset.ID] = &cp
	return nil
}

// GetAsset returns a copy of the asset with id.
func (s *MemoryStorage) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	s.assetsMu.RLock()
	defer s.assetsMu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// DeleteAsset removes the asset with id. Missing ids are not an error.
func (s *MemoryStorage) DeleteAsset(ctx context.Context, id string) error {
	s.assetsMu.Lock()
	defer s.assetsMu.Unlock()
	delete(s.assets, id)
	return nil
}

// CountAssets returns the number of stored assets.
func (s *MemoryStorage) CountAssets(ctx context.Context) (int64, error) {
	s.assetsMu.RLock()
	defer s.assetsMu.RUnlock()
	return int64(len(s.assets)), nil
}

// CreateSession stores a copy of session. The first write for an id wins.
func (s *MemoryStorage) CreateSession(ctx context.Context, session *models.ChatSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s: %w", session.ID, ErrDuplicate)
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// GetSession returns a copy of the session with id.
func (s *MemoryStorage) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

// CountSessions returns the number of sessions.
func (s *MemoryStorage) CountSessions(ctx context.Context) (int64, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return int64(len(s.sessions)), nil
}

func (s *MemoryStorage) shard(chatID string) *historyShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(chatID))
	return &s.history[h.Sum32()%historyShards]
}

// AppendHistory appends a copy of entry to its chat's log.
func (s *MemoryStorage) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	cp := *entry
	sh := s.shard(entry.ChatID)
	sh.mu.Lock()
	sh.entries[entry.ChatID] = append(sh.entries[entry.ChatID], &cp)
	sh.mu.Unlock()
	return nil
}

// GetHistory returns copies of the entries for chatID in append order.
// A chat without entries yields an empty slice.
func (s *MemoryStorage) GetHistory(ctx context.Context, chatID string) ([]*models.HistoryEntry, error) {
	sh := s.shard(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	src := sh.entries[chatID]
	out := make([]*models.HistoryEntry, len(src))
	for i, e := range src {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// CountHistory returns the total number of entries across all chats.
func (s *MemoryStorage) CountHistory(ctx context.Context) (int64, error) {
	var n int64
	for i := range s.history {
		sh := &s.history[i]
		sh.mu.Lock()
		for _, entries := range sh.entries {
			n += int64(len(entries))
		}
		sh.mu.Unlock()
	}
	return n, nil
}

// Close is a no-op for MemoryStorage.
func (s *MemoryStorage) Close() error {
	return nil
}
