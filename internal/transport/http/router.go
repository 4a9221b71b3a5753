package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register mounts the loader and query routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/loads", func(r chi.Router) {
		r.Post("/", h.handleSubmitLoad)
		r.Get("/", h.handleRecentLoads)
	})
	r.Get("/documents/current", h.handleCurrentDocument)
	r.Route("/items", func(r chi.Router) {
		r.Get("/current", h.handleCurrentDocument)
		r.Get("/as-of", h.handleItemAsOf)
		r.Get("/history", h.handleItemHistory)
	})
}

// NewRouter assembles the full HTTP surface: API routes, health, and the
// Prometheus scrape endpoint.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealth)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		h.Register(r)
	})
	return r
}
