// Package httptransport assembles the HTTP surface: shared middleware, health
// probes, the metrics endpoint and the verification routes.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idproxy/internal/platform/health"
	"idproxy/internal/platform/metrics"
	"idproxy/internal/platform/middleware"
)

// RouteRegistrar mounts a group of routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Deps are the collaborators the router wires together.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	APIKeys   map[string]string
	BodyLimit int64

	Health       *health.Handler
	Verification RouteRegistrar
}

// NewRouter wires all public endpoints. Health and metrics stay outside the
// API key check so probes and scrapers need no credentials.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(d.Logger, d.Metrics))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if d.BodyLimit > 0 {
			r.Use(middleware.BodyLimit(d.BodyLimit))
		}
		r.Use(middleware.RequireAPIKey(d.APIKeys, d.Logger))
		if d.Verification != nil {
			d.Verification.Register(r)
		}
	})
	return r
}
