package customers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cedarline-erp/cedarline-erp/internal/currency"
	"github.com/cedarline-erp/cedarline-erp/internal/platform/httpx"
	"github.com/cedarline-erp/cedarline-erp/internal/rbac"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

// AdjustBalanceRequest is the wire shape of one ledger entry.
type AdjustBalanceRequest struct {
	Kind      AdjustmentKind `json:"kind" validate:"required"`
	AmountUSD float64        `json:"amount_usd"`
	AmountLBP float64        `json:"amount_lbp"`
	Reason    string         `json:"reason" validate:"required,max=500"`
}

// Handler exposes customer endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermCustomersView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/adjustments", h.listAdjustments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermBalanceAdjust))
		r.Post("/{id}/adjustments", h.adjustBalance)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list customers", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	cust, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cust)
}

func (h *Handler) listAdjustments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	entries, err := h.service.ListAdjustments(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"adjustments": entries})
}

func (h *Handler) adjustBalance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	var req AdjustBalanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	adj, err := h.service.AdjustBalance(r.Context(), AdjustBalanceInput{
		CustomerID: id,
		Kind:       req.Kind,
		Amount:     currency.Amount{USD: req.AmountUSD, LBP: req.AmountLBP},
		Reason:     req.Reason,
	}, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adj)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "customer not found")
	case errors.Is(err, ErrInvalidAdjustmentKind):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrActorMissing):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
	default:
		h.logger.Error("customer operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
