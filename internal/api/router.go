// Package api exposes the recommendation service over HTTP using the chi
// router.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"remedy/internal/catalog"
	"remedy/internal/recommend"
)

// Recommender is the part of recommend.Service the handlers use.
type Recommender interface {
	Recommend(ctx context.Context, observations []string, withTrace bool) (*recommend.Recommendation, error)
}

// Catalog is the read side of the store the handlers use.
type Catalog interface {
	ListObservations(ctx context.Context) ([]catalog.Observation, error)
	ItemsByCategory(ctx context.Context, categories ...string) ([]catalog.Item, error)
}

type Handler struct {
	recommender Recommender
	catalog     Catalog
	logger      *zap.SugaredLogger
}

func NewHandler(r Recommender, c Catalog, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{recommender: r, catalog: c, logger: logger}
}

// Routes builds the HTTP handler tree.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/observations", h.ListObservations)
		r.Post("/recommendations", h.Recommend)
		r.Get("/categories/{code}/items", h.CategoryItems)
	})

	return r
}

type requestIDKey struct{}

// requestID reuses an incoming X-Request-ID or assigns a new UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debugw("HTTP request",
			"request_id", requestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
