// Package server exposes edit sessions, the preset catalog and the media
// gallery over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/phonix/internal/catalog"
	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/media"
	"github.com/MeKo-Tech/phonix/internal/session"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

// Config configures the API server.
type Config struct {
	PreviewSize   int
	Quality       float64
	MaxUploadSize string
	// MaxPixels bounds the decoded size of uploaded and fetched images.
	MaxPixels     int
	CacheControl  string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	// Seed drives the random edit overlays; 0 uses the request time.
	Seed int64
}

// Server holds the API dependencies.
type Server struct {
	cfg       Config
	maxUpload int64
	catalog   *catalog.Catalog
	sessions  *session.Registry
	store     media.Store
	fetcher   *media.Fetcher
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time

	exports atomic.Int64
	saves   atomic.Int64
	edits   atomic.Int64
	failed  atomic.Int64
}

// Status summarizes server activity.
type Status struct {
	Sessions int   `json:"sessions"`
	Presets  int   `json:"presets"`
	Exports  int64 `json:"exports"`
	Saves    int64 `json:"saves"`
	Edits    int64 `json:"edits"`
	Failed   int64 `json:"failed"`
}

// New creates a server. store may be nil, in which case the gallery routes
// answer 503. fetcher may be nil, which disables loading images by URL.
func New(cfg Config, cat *catalog.Catalog, store media.Store, fetcher *media.Fetcher, logger *slog.Logger) (*Server, error) {
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.PreviewSize <= 0 {
		cfg.PreviewSize = composite.DefaultPreviewSize
	}
	if cfg.Quality <= 0 || cfg.Quality > 1 {
		cfg.Quality = composite.DefaultQuality
	}
	if cfg.MaxUploadSize == "" {
		cfg.MaxUploadSize = "25MB"
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = composite.DefaultMaxPixels
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	limit, err := humanize.ParseBytes(cfg.MaxUploadSize)
	if err != nil {
		return nil, fmt.Errorf("invalid max upload size %q: %w", cfg.MaxUploadSize, err)
	}

	return &Server{
		cfg:       cfg,
		maxUpload: int64(limit),
		catalog:   cat,
		sessions:  session.NewRegistry(cfg.SessionTTL, logger),
		store:     store,
		fetcher:   fetcher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Sessions returns the live session registry.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Status returns activity counters.
func (s *Server) Status() Status {
	return Status{
		Sessions: s.sessions.Len(),
		Presets:  s.catalog.Len(),
		Exports:  s.exports.Load(),
		Saves:    s.saves.Load(),
		Edits:    s.edits.Load(),
		Failed:   s.failed.Load(),
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/categories/{name}/presets", s.handlePresetPage)
	mux.HandleFunc("GET /api/presets/{name}", s.handlePreset)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDiscardSession)
	mux.HandleFunc("PUT /api/sessions/{id}/image", s.handleLoadImage)
	mux.HandleFunc("PATCH /api/sessions/{id}/parameters", s.handleSetParameters)
	mux.HandleFunc("POST /api/sessions/{id}/preset", s.handleApplyPreset)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("GET /api/sessions/{id}/chain", s.handleChain)
	mux.HandleFunc("GET /api/sessions/{id}/preview", s.handlePreview)
	mux.HandleFunc("POST /api/sessions/{id}/download", s.handleDownload)
	mux.HandleFunc("POST /api/sessions/{id}/save", s.handleSave)

	mux.HandleFunc("POST /api/edit", s.handleEdit)

	mux.HandleFunc("GET /api/media", s.handleListMedia)
	mux.HandleFunc("DELETE /api/media/{id}", s.handleDeleteMedia)
	mux.HandleFunc("GET /media/{id}", s.handleServeMedia)

	return withCORS(mux)
}

// RunSweeper expires idle sessions until ctx is done.
func (s *Server) RunSweeper(ctx context.Context) {
	if s.cfg.SessionTTL <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.Sweep(s.now())
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	s.writeJSON(w, http.StatusOK, s.Status())
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Filter-Chain, X-Preview-Glow")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
