package storage

import (
	"fmt"

	"github.com/hyperjump/kiku/internal/config"
)

// New opens the backend selected by cfg.
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStorage(), nil
	case config.BackendSQLite:
		if cfg.DatabasePath == "" {
			return nil, fmt.Errorf("sqlite backend requires database_path")
		}
		s, err := NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
