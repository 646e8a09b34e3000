package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/CTAG07/lipsum/pkg/corpus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API of lipsum.
type Server struct {
	config  *Config
	store   *corpus.Store
	chains  *registry
	logger  *slog.Logger
	metrics *metrics
	limiter *ipRateLimiter
	proxies *trustedProxies
	router  chi.Router
}

// NewServer wires the API around an open corpus store.
func NewServer(config *Config, store *corpus.Store, logger *slog.Logger) *Server {
	m := newMetrics()
	s := &Server{
		config:  config,
		store:   store,
		chains:  newRegistry(store, logger, m),
		logger:  logger,
		metrics: m,
		limiter: newIPRateLimiter(config.Server.RateLimitRPS, config.Server.RateLimitBurst),
		proxies: newTrustedProxies(config.Server.TrustedProxies, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api/corpora", func(r chi.Router) {
		r.Get("/", s.handleListCorpora)
		r.Post("/", s.handleCreateCorpus)
		r.Route("/{name}", func(r chi.Router) {
			r.Delete("/", s.handleRemoveCorpus)
			r.Post("/texts", s.handleAddText)
			r.Get("/stats", s.handleStats)
			r.With(s.rateLimit).Get("/generate", s.handleGenerate)
			r.With(s.rateLimit).Get("/stream", s.handleStream)
		})
	})
	r.With(s.rateLimit).Get("/api/lipsum", s.handleLipsum)

	s.router = r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server shut down gracefully.")
	return nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
