package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mdshared "github.com/ekomart/ekomart-admin/internal/masterdata/shared"
	"github.com/ekomart/ekomart-admin/internal/platform/httpx"
	"github.com/ekomart/ekomart-admin/internal/rbac"
	internalshared "github.com/ekomart/ekomart-admin/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers read-only stock routes. Levels only change through
// the adjustment workflow.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("inventory.view"))
		r.Get("/warehouses/{warehouseID}", h.ListByWarehouse)
		r.Get("/warehouses/{warehouseID}/products/{productID}", h.Show)
		r.Get("/warehouses/{warehouseID}/products/{productID}/movements", h.Movements)
	})
}

func (h *Handler) ListByWarehouse(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(chi.URLParam(r, "warehouseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid warehouse id")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := mdshared.ListFilters{Page: page, Limit: limit}

	levels, total, err := h.service.ListByWarehouse(r.Context(), warehouseID, filters)
	if err != nil {
		h.logger.Error("list stock levels failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if levels == nil {
		levels = []Level{}
	}
	if filters.Page < 1 {
		filters.Page = mdshared.DefaultPage
	}
	if filters.Limit < 1 {
		filters.Limit = mdshared.DefaultLimit
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"levels":     levels,
		"pagination": internalshared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	warehouseID, productID, ok := parsePair(w, r)
	if !ok {
		return
	}
	level, err := h.service.Get(r.Context(), warehouseID, productID)
	if errors.Is(err, ErrLevelNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "stock level not found")
		return
	}
	if err != nil {
		h.logger.Error("get stock level failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, level)
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	warehouseID, productID, ok := parsePair(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), warehouseID, productID, limit)
	if err != nil {
		h.logger.Error("list stock movements failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func parsePair(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	warehouseID, err := strconv.ParseInt(chi.URLParam(r, "warehouseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid warehouse id")
		return 0, 0, false
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return 0, 0, false
	}
	return warehouseID, productID, true
}
