// Package server provides the HTTP API for document chat.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/pkg/utils"
)

// ChatService is the pipeline behind the API.
type ChatService interface {
	Ingest(ctx context.Context, filename string, content []byte) (*models.Asset, error)
	StartSession(ctx context.Context, assetID string) (*models.ChatSession, error)
	SendMessage(ctx context.Context, chatID, message string) (*models.Reply, error)
	History(ctx context.Context, chatID string) ([]*models.HistoryEntry, error)
	Asset(ctx context.Context, assetID string) (*models.Asset, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// WatchService manages inbox directories at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// DiskUsager reports the bytes the storage backend occupies on disk.
type DiskUsager interface {
	SizeBytes() int64
}

// Server is the HTTP server for the chat API.
type Server struct {
	chat    ChatService
	cfg     *config.Config
	logger  *zap.Logger
	watch   WatchService
	disk    DiskUsager
	version string

	// configPath is where watch directory changes are persisted. Empty disables persistence.
	configPath string
	configMu   sync.Mutex

	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithWatch enables the inbox directory endpoints. configPath, when set, receives the updated directory list.
func WithWatch(w WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// WithDiskUsage adds disk_usage_bytes to /api/status.
func WithDiskUsage(d DiskUsager) Option {
	return func(s *Server) { s.disk = d }
}

// WithVersion sets the version reported by /api/status.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a server with the given dependencies.
func NewServer(chat ChatService, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		chat:   chat,
		cfg:    cfg,
		logger: utils.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with every route and middleware mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))

	r.Route("/api", func(r chi.Router) {
		r.Post("/documents/process", s.handleProcessDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Post("/chat/start", s.handleStartChat)
		r.Post("/chat/message", s.handleChatMessage)
		r.Get("/chat/{id}/history", s.handleChatHistory)
		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// requestTimeout leaves room for the generation timeout plus retrieval.
func (s *Server) requestTimeout() time.Duration {
	return s.cfg.Generation.Timeout() + 30*time.Second
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
