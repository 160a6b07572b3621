// Package server exposes the assistant, analytics and receipt services
// over HTTP with a small JSON envelope.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/spendlens/backend/internal/analytics"
	"github.com/spendlens/backend/internal/assistant"
	"github.com/spendlens/backend/internal/receipt"
	"github.com/spendlens/backend/internal/store"
)

// Server holds the request handlers and their collaborators.
type Server struct {
	orchestrator *assistant.Orchestrator
	analytics    *analytics.Service
	receipts     *receipt.Service
	store        store.Store
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a Server. receipts may be nil when no OCR client is
// configured; the receipts endpoint then returns 503.
func New(
	orchestrator *assistant.Orchestrator,
	analyticsService *analytics.Service,
	receipts *receipt.Service,
	st store.Store,
	logger *slog.Logger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		analytics:    analyticsService,
		receipts:     receipts,
		store:        st,
		logger:       logger,
		now:          time.Now,
	}
}

// Handler builds the full middleware chain: CORS on the outside, request
// logging, then the authenticated routes. The auth middleware is supplied
// by the caller so main can swap in the local-dev bypass.
func (s *Server) Handler(authn func(http.Handler) http.Handler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /interact", s.handleInteract)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /analytics/summary", s.handleSummary)
	mux.HandleFunc("GET /analytics/trends", s.handleTrends)
	mux.HandleFunc("GET /analytics/categories", s.handleCategories)
	mux.HandleFunc("POST /receipts", s.handleReceipt)

	protected := authn(mux)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	root.Handle("/", protected)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"User-Agent",
		},
		AllowCredentials: true,
	})

	return c.Handler(s.logRequests(root))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
