package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kitchenledger/kitchenledger/internal/auth"
	"github.com/kitchenledger/kitchenledger/internal/customers"
	"github.com/kitchenledger/kitchenledger/internal/dashboard"
	"github.com/kitchenledger/kitchenledger/internal/expenses"
	"github.com/kitchenledger/kitchenledger/internal/menu"
	"github.com/kitchenledger/kitchenledger/internal/observability"
	"github.com/kitchenledger/kitchenledger/internal/orders"
	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
	"github.com/kitchenledger/kitchenledger/internal/shared"
	"github.com/kitchenledger/kitchenledger/internal/suppliers"
	"github.com/kitchenledger/kitchenledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	CustomersHandler *customers.Handler
	OrdersHandler    *orders.Handler
	MenuHandler      *menu.Handler
	ExpensesHandler  *expenses.Handler
	SuppliersHandler *suppliers.Handler
	DashboardHandler *dashboard.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with the console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			params.AuthHandler.MountRoutes(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(RequireSession(params.Logger))
			if params.CustomersHandler != nil {
				params.CustomersHandler.MountRoutes(r)
			}
			if params.OrdersHandler != nil {
				params.OrdersHandler.MountRoutes(r)
			}
			if params.MenuHandler != nil {
				params.MenuHandler.MountRoutes(r)
			}
			if params.ExpensesHandler != nil {
				params.ExpensesHandler.MountRoutes(r)
			}
			if params.SuppliersHandler != nil {
				params.SuppliersHandler.MountRoutes(r)
			}
			if params.DashboardHandler != nil {
				params.DashboardHandler.MountRoutes(r)
			}
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no such endpoint")
		})
	})

	return r
}
