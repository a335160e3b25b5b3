// Package server exposes the HTTP API: health, provider status, raw bar queries,
// instrument metadata, and the signal endpoint. Every handler reads from an
// already-constructed dependency (bar store reader, supervisor, signal engine); the
// package performs no ingestion or analysis of its own.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/nrgio/marketpulse/internal/barstore"
	"github.com/nrgio/marketpulse/internal/ingest/supervisor"
	"github.com/nrgio/marketpulse/internal/signal"
)

// Config wires every dependency a handler needs.
type Config struct {
	Addr        string
	Log         zerolog.Logger
	Reader      barstore.Reader
	Supervisor  *supervisor.Supervisor
	Engine      *signal.Engine
	StartedAt   time.Time
	CORSOrigins []string
}

// Server wraps the chi router and the underlying http.Server.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// New builds a Server with every route registered.
func New(cfg Config) *Server {
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	log := cfg.Log.With().Str("component", "server").Logger()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogMiddleware(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &handlers{
		reader:     cfg.Reader,
		supervisor: cfg.Supervisor,
		engine:     cfg.Engine,
		startedAt:  cfg.StartedAt,
		log:        log,
	}

	r.Get("/health", h.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", h.handleProviders)
		r.Get("/bars", h.handleBars)
		r.Get("/meta/instruments", h.handleInstruments)
		r.Post("/signal", h.handleSignal)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		log: log,
	}
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Msg("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
