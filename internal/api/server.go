// Package api serves the admin HTTP API: suppression list management,
// reply routing for webhook callers, campaign health, and metrics. Routes
// under /api require an API key; /health and /metrics do not.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/health"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
)

var log = logger.Named("api")

// SuppressionList is the suppression gate as the API uses it.
type SuppressionList interface {
	IsSuppressed(email string) bool
	Add(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource) (bool, error)
	BulkAdd(ctx context.Context, entries []domain.Suppression) (int, error)
	Remove(ctx context.Context, email string) error
	Export() []domain.Suppression
	Stats() domain.SuppressionStats
}

// ReplyProcessor classifies and routes one reply.
type ReplyProcessor interface {
	Process(ctx context.Context, email, text string) (domain.RoutedAction, error)
}

// HealthChecker evaluates a campaign.
type HealthChecker interface {
	Check(ctx context.Context, campaignID string) health.Report
}

// Deps are the services behind the API. Replies and Health may be nil, in
// which case their routes answer 503.
type Deps struct {
	Suppression SuppressionList
	Replies     ReplyProcessor
	Health      HealthChecker
	Metrics     prometheus.Gatherer
	// AllowedOrigins for CORS; empty allows none.
	AllowedOrigins []string
	// APIKeys guard every /api route; empty rejects all of them.
	APIKeys []string
}

// Server holds the handlers.
type Server struct {
	deps    Deps
	started time.Time
}

// NewServer creates a Server. A nil Metrics gatherer uses the default registry.
func NewServer(deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = prometheus.DefaultGatherer
	}
	return &Server{deps: deps, started: time.Now()}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", APIKeyHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(requireAPIKey(s.deps.APIKeys))
		r.Route("/suppression", func(r chi.Router) {
			r.Post("/", s.handleSuppress)
			r.Post("/bulk", s.handleSuppressBulk)
			r.Get("/check/{email}", s.handleCheck)
			r.Delete("/{email}", s.handleRemove)
			r.Get("/export", s.handleExport)
			r.Get("/stats", s.handleStats)
		})
		r.Post("/replies", s.handleReply)
		r.Get("/campaigns/{id}/health", s.handleCampaignHealth)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
