package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/api-sage/moneytransfer/src/internal/adapter/http/controller"
	"github.com/api-sage/moneytransfer/src/internal/adapter/http/middleware"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
	"github.com/api-sage/moneytransfer/src/internal/sandbox"
)

type RouteRegistrar interface {
	RegisterRoutes(r *mux.Router)
}

// New mounts the login route publicly and every other controller behind
// authMiddleware, all under /api.
func New(
	authController RouteRegistrar,
	accountController RouteRegistrar,
	transferController RouteRegistrar,
	authMiddleware mux.MiddlewareFunc,
	metricsHandler http.Handler,
) *mux.Router {
	root := mux.NewRouter()
	registerSwaggerRoutes(root)
	if metricsHandler != nil {
		root.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	api := root.PathPrefix("/api").Subrouter()
	if authController != nil {
		authController.RegisterRoutes(api)
	}

	protected := api.NewRoute().Subrouter()
	if authMiddleware != nil {
		protected.Use(authMiddleware)
	}
	if accountController != nil {
		accountController.RegisterRoutes(protected)
	}
	if transferController != nil {
		transferController.RegisterRoutes(protected)
	}

	return root
}

// NewSandbox wires the in-memory ledger behind the full HTTP contract.
func NewSandbox(ledger *sandbox.Ledger, auth *middleware.BearerAuth, m *metrics.Metrics) *mux.Router {
	var metricsHandler http.Handler
	if m != nil {
		metricsHandler = m.Handler()
	}

	return New(
		controller.NewAuthController(ledger, auth),
		controller.NewAccountController(ledger),
		controller.NewTransferController(ledger),
		auth.Middleware,
		metricsHandler,
	)
}
