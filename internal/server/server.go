// Package server implements the history service: it builds star histories
// from the GitHub API and serves them, and rendered cards, over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/naka-gawa/gitgraph/internal/chart"
	"github.com/naka-gawa/gitgraph/internal/domain"
	"github.com/naka-gawa/gitgraph/internal/exporter"
	"github.com/naka-gawa/gitgraph/internal/gateway"
	"github.com/naka-gawa/gitgraph/internal/usecase"
	"golang.org/x/sync/errgroup"
)

// FetcherFactory creates a GitHub fetcher authenticated with token ("" for anonymous access).
type FetcherFactory func(token string) (gateway.Fetcher, error)

// Options configures a Server.
type Options struct {
	Addr string
	// GitHubToken is used when a request carries no Authorization header.
	GitHubToken       string
	Aggregator        usecase.Options
	RequestsPerMinute int
	AllowedOrigins    []string
}

// Server is the history service.
type Server struct {
	opts       Options
	newFetcher FetcherFactory
	renderer   *chart.Renderer
	limiters   *limiterStore
	logger     *slog.Logger
}

// New creates a server. renderer draws the cards served by /card.png.
func New(opts Options, newFetcher FetcherFactory, renderer *chart.Renderer, logger *slog.Logger) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{opts: opts, newFetcher: newFetcher, renderer: renderer, logger: logger}
	if opts.RequestsPerMinute > 0 {
		s.limiters = newLimiterStore(opts.RequestsPerMinute, 10*time.Minute)
	}
	return s
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		requestID,
		accessLog(s.logger),
		middleware.Recoverer,
		rateLimit(s.limiters),
	)
	r.Get("/health", s.handleHealth)
	r.Get("/history", s.handleHistory)
	r.Get("/card.png", s.handleCard)

	return handlers.CORS(
		handlers.AllowCredentials(),
		handlers.AllowedOrigins(s.opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet}),
		handlers.AllowedHeaders([]string{"Authorization"}),
		handlers.ExposedHeaders([]string{RequestIDHeader, "Content-Disposition"}),
	)(r)
}

// Serve listens on Options.Addr and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.logger.Info("Listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("Shutting down history service...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	data, apiErr := s.history(r)
	if apiErr != nil {
		writeError(w, apiErr.Code, apiErr.Message)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// handleCard renders the history as a card and streams it as a PNG attachment
// named "<name>_gitgraph.png". name defaults to the repository with "/" replaced by "-".
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	data, apiErr := s.history(r)
	if apiErr != nil {
		writeError(w, apiErr.Code, apiErr.Message)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = strings.ReplaceAll(data.Name, "/", "-")
	}
	logger := s.logger.With("request_id", RequestID(r.Context()))
	card := s.renderer.Render(data)
	if err := exporter.New(exporter.HTTPSink{W: w}, logger).Export(r.Context(), card, name); err != nil {
		logger.Error("Failed to export card", "repo", data.Name, "error", err)
		var exportErr *domain.ExportError
		msg := domain.DefaultErrorMessage
		if errors.As(err, &exportErr) {
			msg = exportErr.Message
		}
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// history builds the chart data for the request's repo query parameter.
func (s *Server) history(r *http.Request) (*domain.ChartData, *domain.APIError) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		return nil, &domain.APIError{Code: http.StatusBadRequest, Message: "repository name required"}
	}
	logger := s.logger.With("request_id", RequestID(r.Context()))

	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = s.opts.GitHubToken
	}
	fetcher, err := s.newFetcher(token)
	if err != nil {
		logger.Error("Failed to create GitHub gateway", "error", err)
		return nil, &domain.APIError{Code: http.StatusInternalServerError, Message: "server error"}
	}

	data, err := usecase.NewAggregator(fetcher, s.opts.Aggregator, logger).Aggregate(r.Context(), repo)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			logger.Warn("History request failed", "repo", repo, "code", apiErr.Code, "message", apiErr.Message)
			return nil, apiErr
		}
		return nil, &domain.APIError{Code: http.StatusInternalServerError, Message: err.Error()}
	}
	return data, nil
}

// bearerToken accepts "Bearer x", "token x" or a raw token. Blank means none.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	for _, scheme := range []string{"bearer ", "token "} {
		if len(header) >= len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):])
		}
	}
	return header
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the service's error body: {"message": "...", "code": "<status>"}.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{
		"message": message,
		"code":    strconv.Itoa(code),
	})
}
