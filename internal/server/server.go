// Package server serves the archive as the paged JSON feed the timeline
// reads, so a local checkout can be browsed without a static host.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pders01/feedline/internal/debuglog"
	"github.com/pders01/feedline/internal/feed"
	"github.com/pders01/feedline/internal/storage"
)

// FeedBuilder assembles the current feed from the archive.
type FeedBuilder interface {
	BuildFeed(limit int) (*storage.Feed, error)
}

type ShareSource interface {
	GetShares() ([]storage.ShareEntry, error)
}

type Server struct {
	feeds    FeedBuilder
	shares   ShareSource
	pageSize int
	limit    int
	router   chi.Router
}

// New creates a server. pageSize below 1 falls back to 20 entries per page.
func New(feeds FeedBuilder, shares ShareSource, pageSize, limit int) *Server {
	if pageSize < 1 {
		pageSize = 20
	}
	s := &Server{feeds: feeds, shares: shares, pageSize: pageSize, limit: limit}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/share_index.json", s.handleShareIndex)
	r.Route("/feed", func(r chi.Router) {
		r.Get("/index.json", s.handleIndex)
		r.Get("/page-{n:[0-9]+}.json", s.handlePage)
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		debuglog.Infof("page server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, feed.Index())
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		http.NotFound(w, r)
		return
	}

	f, err := s.feeds.BuildFeed(s.limit)
	if err != nil {
		debuglog.Errorf("building feed: %v", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}

	pages := feed.Paginate(f, s.pageSize)
	if n > len(pages) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, pages[n-1])
}

func (s *Server) handleShareIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := s.shares.GetShares()
	if err != nil {
		debuglog.Errorf("reading shares: %v", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []storage.ShareEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger sends access lines to the debug log instead of stderr,
// which the TUI owns when both run in one process.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		debuglog.WithFields(map[string]interface{}{
			"status":   ww.Status(),
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Debugf("%s %s", r.Method, r.URL.Path)
	})
}
