package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ekomart/ekomart-admin/internal/adjustments"
	"github.com/ekomart/ekomart-admin/internal/auth"
	"github.com/ekomart/ekomart-admin/internal/masterdata/products"
	"github.com/ekomart/ekomart-admin/internal/masterdata/warehouses"
	"github.com/ekomart/ekomart-admin/internal/observability"
	"github.com/ekomart/ekomart-admin/internal/shared"
	"github.com/ekomart/ekomart-admin/internal/stock"
	"github.com/ekomart/ekomart-admin/internal/users"
	"github.com/ekomart/ekomart-admin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	AuthHandler       *auth.Handler
	AdjustmentHandler *adjustments.Handler
	WarehouseHandler  *warehouses.Handler
	ProductHandler    *products.Handler
	StockHandler      *stock.Handler
	UsersHandler      *users.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with EkoMart defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.AdjustmentHandler != nil {
			r.Route("/adjustments", params.AdjustmentHandler.MountRoutes)
		}
		if params.WarehouseHandler != nil {
			r.Route("/warehouses", params.WarehouseHandler.MountRoutes)
		}
		if params.ProductHandler != nil {
			r.Route("/products", params.ProductHandler.MountRoutes)
		}
		if params.StockHandler != nil {
			r.Route("/stock", params.StockHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
