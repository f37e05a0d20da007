package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/modledger/modledger/internal/handler"
	"github.com/modledger/modledger/internal/identity"
	"github.com/modledger/modledger/internal/model"
	"github.com/modledger/modledger/internal/server/middleware"
	"github.com/modledger/modledger/internal/service"
	"github.com/modledger/modledger/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
	}
}

// Server is the HTTP boundary of the moderation backend. It owns the chi
// router and translates requests into calls on the ledger, key store, and
// identity resolver; all domain semantics live below it.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	httpServer *http.Server
	logger     *slog.Logger
}

// New wires up all routes and middleware and returns a server ready to
// listen.
func New(cfg Config, st *store.Store, ledger *service.Ledger, keys *service.KeyStore, resolver *identity.Resolver, logger *slog.Logger) *Server {
	s := &Server{cfg: cfg, store: st, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	mod := handler.NewModerationHandler(ledger, keys, resolver)
	key := handler.NewKeyHandler(keys)

	r.Route("/query", func(r chi.Router) {
		r.Get("/status/uid/{uid}", mod.QueryStatusByUID)
		r.Get("/status/key/{key}", mod.QueryStatusByKey)
		r.Get("/times/uid/{uid}", mod.QueryTimesByUID)
		r.Get("/times/key/{key}", mod.QueryTimesByKey)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/deny", mod.SetStatus(model.StatusDenylisted))
		r.Post("/allow", mod.SetStatus(model.StatusAllowlisted))
		r.Post("/clear", mod.SetStatus(model.StatusNone))
		r.Post("/last", mod.LastReason)
		r.Post("/statistics", mod.Statistics)
	})

	r.Route("/owner", func(r chi.Router) {
		r.Post("/keygen", key.Generate)
		r.Post("/keyrevoke", key.Revoke)
		r.Post("/keyregen", key.Regenerate)
	})

	s.router = r
	return s
}

// handleHealthz is a liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz reports 200 when the store is reachable, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe starts the server and blocks until SIGINT or SIGTERM, then
// drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
