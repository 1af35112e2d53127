// Package ui serves the live execution graph: a chi HTTP server pushing
// reconciled graph updates over SSE and accepting the node interactions
// (highlight, drag, expand/collapse, run, cancel) that flow back into
// execution and visibility state.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/flowviz-labs/flowviz/internal/engine"
)

// Server is the live-graph UI server for one open flow.
type Server struct {
	engine       *engine.Engine
	flow         *engine.Flow
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	logger       *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	Engine        *engine.Engine
	Flow          *engine.Flow
	Port          int
	Watch         bool
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		engine:       cfg.Engine,
		flow:         cfg.Flow,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		logger:       cfg.Logger,
	}
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port), "flow", s.flow.ID())

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	handlers := NewHandlers(s.engine, s.flow, s.sessionStore, s.logger)
	handlers.SetupRoutes(r)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Watch the flow source for out-of-band edits; each change marks
	// the bubble map stale and revalidates.
	if s.watch {
		eg.Go(func() error {
			return s.flow.Source().Watch(egctx, func() {
				s.flow.MarkDirty()
				if err := s.flow.Validate(egctx); err != nil {
					s.logger.Error("revalidation after edit failed", "error", err)
				}
			})
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
