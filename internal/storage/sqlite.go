package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kiku/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers, which keeps history sequence numbers
	// race-free and is required for ":memory:" to be a single database.
	db.SetMaxOpenConns(1)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chat_history (
		chat_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		user_message TEXT NOT NULL,
		bot_response TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chat_id, seq)
	);
	`
	_, err := db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// CreateAsset inserts an asset.
func (s *SQLiteStorage) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (id, filename, text, created_at) VALUES (?, ?, ?, ?)`,
		asset.ID, asset.Filename, asset.Text, asset.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("asset %s: %w", asset.ID, ErrDuplicate)
	}
	return err
}

// GetAsset returns an asset by ID.
func (s *SQLiteStorage) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, text, created_at FROM assets WHERE id = ?`, id,
	).Scan(&a.ID, &a.Filename, &a.Text, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAsset removes an asset by ID.
func (s *SQLiteStorage) DeleteAsset(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	return err
}

// CountAssets returns the total number of assets.
func (s *SQLiteStorage) CountAssets(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM assets`)
}

// CreateSession inserts a chat session.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *models.ChatSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, asset_id, created_at) VALUES (?, ?, ?)`,
		session.ID, session.AssetID, session.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("session %s: %w", session.ID, ErrDuplicate)
	}
	return err
}

// GetSession returns a chat session by ID.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	var sess models.ChatSession
	err := s.db.QueryRowContext(ctx,
		`SELECT id, asset_id, created_at FROM chat_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.AssetID, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// CountSessions returns the total number of chat sessions.
func (s *SQLiteStorage) CountSessions(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM chat_sessions`)
}

// AppendHistory inserts entry after the last entry of its chat in a transaction.
func (s *SQLiteStorage) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM chat_history WHERE chat_id = ?`, entry.ChatID,
	).Scan(&seq); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_history (chat_id, seq, user_message, bot_response, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ChatID, seq, entry.User, entry.Bot, entry.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetHistory returns all entries for chatID ordered by sequence.
func (s *SQLiteStorage) GetHistory(ctx context.Context, chatID string) ([]*models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, user_message, bot_response, created_at
		 FROM chat_history WHERE chat_id = ? ORDER BY seq`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.HistoryEntry, 0)
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ChatID, &e.User, &e.Bot, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CountHistory returns the total number of history entries.
func (s *SQLiteStorage) CountHistory(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM chat_history`)
}

func (s *SQLiteStorage) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

// SizeBytes returns the on-disk size of the database including WAL files.
// In-memory databases report zero.
func (s *SQLiteStorage) SizeBytes() int64 {
	if s.path == ":memory:" {
		return 0
	}
	var total int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	return total
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
