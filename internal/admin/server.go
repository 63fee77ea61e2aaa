// Package admin serves the read-only operator HTTP surface: health,
// Prometheus metrics, live sessions, the session ledger and pending
// simulation events.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/net"
	"github.com/l1jgo/arena/internal/persist"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SessionLister is satisfied by *net.SessionTable.
type SessionLister interface {
	Snapshot() []net.ConnectionInfo
}

// EventSource is satisfied by *event.Queue.
type EventSource interface {
	PopForChannel(channel string) (event.Message, bool)
}

// History is satisfied by *persist.Recorder.
type History interface {
	Recent(ctx context.Context, limit int) ([]persist.SessionRow, error)
}

// Deps are the read sides the admin handlers use. Every one of them is
// safe to call from HTTP goroutines.
type Deps struct {
	Sessions  SessionLister
	Events    EventSource
	History   History
	StartTime time.Time
}

// NewRouter builds the admin router. It starts nothing.
func NewRouter(cfg config.AdminConfig, deps Deps, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}))
	}

	h := &handlers{deps: deps, log: log}

	r.Get("/healthz", h.handleHealth)
	r.Group(func(r chi.Router) {
		if cfg.User != "" {
			r.Use(basicAuth(cfg.User, []byte(cfg.PasswordHash)))
		}
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/sessions", h.handleSessions)
		r.Get("/sessions/history", h.handleHistory)
		r.Get("/events/{channel}", h.handleEvents)
	})
	return r
}

// Server runs the admin router on its own listener.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(cfg config.AdminConfig, deps Deps, log *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.BindAddress,
			Handler:           NewRouter(cfg, deps, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("admin listening", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("admin request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
