// Package server is the read-only HTTP gateway over an app.App: client-side
// search over the session corpus, reference data, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/michaekong/memocloud/pkg/app"
	"github.com/michaekong/memocloud/pkg/logging"
	"github.com/michaekong/memocloud/pkg/metrics"
	"github.com/michaekong/memocloud/pkg/search"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server serves the gateway routes.
type Server struct {
	app    *app.App
	logger zerolog.Logger
	mux    *http.ServeMux
}

// New registers every route for a.
func New(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: logging.NewLogger("server"),
		mux:    http.NewServeMux(),
	}

	s.handle("GET /health", healthHandler)
	s.handle("GET /ready", readyHandler(a))
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.handle("GET /api/search", s.searchHandler)
	s.handle("GET /api/stats", s.statsHandler)
	s.handle("GET /api/years", s.yearsHandler)
	s.handle("GET /api/domains", s.domainsHandler)
	s.handle("GET /api/analytics", s.analyticsHandler)
	s.handle("GET /api/corpus", s.corpusHandler)

	return s
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, instrument(pattern, h))
}

// Handler returns the gateway with request logging and request IDs applied.
func (s *Server) Handler() http.Handler {
	return requestID(accessLog(s.logger, s.mux))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Gateway listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("Gateway shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler pings Redis when one is configured.
func readyHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rdb := a.Redis(); rdb != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Items      []search.Card `json:"items"`
	Page       int           `json:"page"`
	Total      int           `json:"total"`
	HasMore    bool          `json:"has_more"`
	Incomplete bool          `json:"incomplete"`
}

// searchHandler filters the shared corpus without touching the app's view,
// so concurrent requests never see each other's filters.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	apiCfg := s.app.Config().API
	f, page, err := ParseQuery(r.URL.Query(), apiCfg.HomeInstitution, apiCfg.University)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	corpus := s.app.Corpus()
	_ = s.app.BuildCorpus()

	filtered := search.Apply(corpus.Documents(), f)
	window := search.Window(filtered, page)

	media := s.app.Config().API.MediaURL
	cards := make([]search.Card, 0, len(window))
	for _, d := range window {
		cards = append(cards, search.NewCard(d, media))
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Items:      cards,
		Page:       page,
		Total:      len(filtered),
		HasMore:    search.HasMore(filtered, page),
		Incomplete: !corpus.Complete(),
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.API().Stats(r.Context())
	writeFallback(w, stats, err)
}

func (s *Server) yearsHandler(w http.ResponseWriter, r *http.Request) {
	years, err := s.app.API().Years(r.Context())
	writeFallback(w, years, err)
}

func (s *Server) domainsHandler(w http.ResponseWriter, r *http.Request) {
	domains, err := s.app.API().Domains(r.Context())
	writeFallback(w, domains, err)
}

func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.app.BuildCorpus(); err != nil {
		s.logger.Warn().Err(err).Msg("Analytics over a partial corpus")
	}
	summary, err := s.app.Analytics(r.Context())
	writeFallback(w, summary, err)
}

func (s *Server) corpusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Corpus().Status())
}

// HeaderFallback marks a response built from defaults after an upstream failure.
const HeaderFallback = "X-Memocloud-Fallback"

// writeFallback always answers 200: reference data degrades to defaults.
func writeFallback(w http.ResponseWriter, v any, err error) {
	if err != nil {
		w.Header().Set(HeaderFallback, "true")
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
