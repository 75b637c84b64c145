// Package app wires the fulfillment service together.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/abgdnv/gofulfillment/internal/config"
	"github.com/abgdnv/gofulfillment/internal/inventory"
	"github.com/abgdnv/gofulfillment/internal/reservation"
	"github.com/abgdnv/gofulfillment/internal/service"
	"github.com/abgdnv/gofulfillment/internal/store"
	"github.com/abgdnv/gofulfillment/internal/transport/rest"
	"github.com/abgdnv/gofulfillment/pkg/auth"
	"github.com/abgdnv/gofulfillment/pkg/messaging"
	"github.com/abgdnv/gofulfillment/pkg/server"
	"github.com/abgdnv/gofulfillment/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ServiceName = "fulfillment"

type Dependencies struct {
	OrderService *service.Service
	StockService inventory.StockService
	// Verifier is nil when the IdP is disabled.
	Verifier auth.Verifier
	// Ready reports whether the dependencies needed to serve requests are reachable.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

// SetupDependencies builds the services on top of one store.
func SetupDependencies(st store.Store, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	coordinator := reservation.NewCoordinator(logger)
	return &Dependencies{
		OrderService: service.NewService(st, coordinator, publisher),
		StockService: inventory.NewService(st, st),
		Ready:        func(context.Context) error { return nil },
		Logger:       logger,
	}
}

// SetupHttpHandler creates the router with every route of the service.
// Used by tests to get the handler without a listening server.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	mux.Get("/healthz", rest.HealthCheck)
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Ready(r.Context()); err != nil {
			deps.Logger.ErrorContext(r.Context(), "Readiness probe failed", "error", err)
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.Group(func(r chi.Router) {
		r.Use(web.Identity(deps.Verifier))
		rest.NewHandler(deps.OrderService, deps.Logger).RegisterRoutes(r)
		rest.NewStockHandler(deps.StockService, deps.Logger).RegisterRoutes(r)
	})
}

// SetupHttpServer creates and configures the HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(ServiceName, cfg.HTTPServer, SetupHttpHandler(deps))
}
