// Package server exposes dataset upload, chat and chart suggestions over HTTP.
package server

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/datalens-cli/internal/chat"
)

//go:embed web/index.html
var indexHTML []byte

const (
	defaultMaxUpload = 50 << 20
	previewRows      = 10
	shutdownTimeout  = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	// SessionSecret signs the session cookie; empty means a random key per process.
	SessionSecret string
	SessionIdle   time.Duration
	// Completer backs chat and chart suggestions. Nil disables chat and
	// limits charts to the type-driven fallback.
	Completer chat.Completer
}

// Server is the web front end.
type Server struct {
	opts     Options
	logger   *slog.Logger
	store    *sessions.CookieStore
	registry *Registry
	router   chi.Router
}

// New builds a Server. A nil logger discards output.
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = time.Hour
	}
	key := []byte(opts.SessionSecret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	s := &Server{
		opts:     opts,
		logger:   logger,
		store:    sessions.NewCookieStore(key),
		registry: NewRegistry(opts.SessionIdle),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/upload", s.handleUpload)
		r.Post("/chat", s.handleChat)
		r.Post("/clear", s.handleClear)
	})
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Registry exposes the workspace registry.
func (s *Server) Registry() *Registry { return s.registry }

// Serve listens on Options.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		// uploads wait on chart suggestions from the model
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.sweep(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sweep evicts idle workspaces until ctx is done.
func (s *Server) sweep(ctx context.Context) {
	every := s.opts.SessionIdle / 4
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.registry.Sweep(); n > 0 {
				s.logger.Debug("evicted idle sessions", "count", n, "live", s.registry.Len())
			}
		}
	}
}
