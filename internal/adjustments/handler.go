package adjustments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ekomart/ekomart-admin/internal/observability"
	"github.com/ekomart/ekomart-admin/internal/platform/httpx"
	"github.com/ekomart/ekomart-admin/internal/rbac"
	"github.com/ekomart/ekomart-admin/internal/shared"
)

// Handler wires HTTP endpoints for the adjustment workflow.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbac,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers adjustment routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("inventory.view", "inventory.adjust", "inventory.approve"))
		r.Get("/", h.List)
		r.Get("/stats", h.ShowStats)
		r.Get("/{id}", h.Show)
		r.Get("/{id}/history", h.History)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("inventory.adjust"))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("inventory.approve"))
		r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
	})
}

type lineRequest struct {
	ProductID   int64 `json:"product_id" validate:"required,gt=0"`
	PreviousQty int64 `json:"previous_quantity" validate:"gte=0"`
	NewQty      int64 `json:"new_quantity" validate:"gte=0"`
}

type createRequest struct {
	WarehouseID int64         `json:"warehouse_id" validate:"required,gt=0"`
	Type        string        `json:"type" validate:"required"`
	Reason      string        `json:"reason" validate:"required"`
	Notes       string        `json:"notes"`
	Items       []lineRequest `json:"items" validate:"required,min=1,dive"`
}

type decisionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	input := CreateInput{
		WarehouseID: req.WarehouseID,
		Type:        Type(req.Type),
		Reason:      req.Reason,
		Notes:       req.Notes,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, LineInput{ProductID: item.ProductID, PreviousQty: item.PreviousQty, NewQty: item.NewQty})
	}

	actor := shared.ActorFromSession(shared.SessionFromContext(r.Context()))
	created, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, "create adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := parseListFilters(r)
	adjustments, total, stats, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list adjustments", err)
		return
	}
	if adjustments == nil {
		adjustments = []Adjustment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"adjustments": adjustments,
		"stats":       stats,
		"pagination":  shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) ShowStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.respondErr(w, "adjustment stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	adj, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondErr(w, "adjustment history", err)
		return
	}
	entries := make([]map[string]any, 0, len(history))
	for _, log := range history {
		entries = append(entries, map[string]any{
			"action":   log.Action,
			"actor_id": log.ActorID,
			"note":     log.Note,
			"at":       log.At,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approved")
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "rejected")
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, outcome string) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
			return
		}
	}

	actor := shared.ActorFromSession(shared.SessionFromContext(r.Context()))
	var (
		adj Adjustment
		err error
	)
	if outcome == "approved" {
		adj, err = h.service.Approve(r.Context(), actor, id, req.Note)
	} else {
		adj, err = h.service.Reject(r.Context(), actor, id, req.Note)
	}
	if err != nil {
		h.respondErr(w, outcome+" adjustment", err)
		return
	}
	if h.metrics != nil {
		h.metrics.CountDecision(outcome)
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyDecided):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrStockApply):
		httpx.Problem(w, http.StatusBadGateway, "Dependency Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid adjustment id")
		return uuid.Nil, false
	}
	return id, true
}

func parseListFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	warehouseID, _ := strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	return ListFilters{
		Page:        page,
		Limit:       limit,
		Status:      Status(q.Get("status")),
		Type:        Type(q.Get("type")),
		WarehouseID: warehouseID,
		Search:      q.Get("search"),
	}
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return "invalid field: " + fieldErrs[0].Namespace()
	}
	return "invalid request"
}
