package commission

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cedarline-erp/cedarline-erp/internal/platform/httpx"
	"github.com/cedarline-erp/cedarline-erp/internal/rbac"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

// Handler exposes commission endpoints.
type Handler struct {
	logger     *slog.Logger
	repo       Repository
	resolver   *Resolver
	calculator *Calculator
	payer      *Payer
	idem       *shared.IdempotencyStore
	validate   *validator.Validate
	rbac       rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository, resolver *Resolver, calculator *Calculator, payer *Payer, idem *shared.IdempotencyStore, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:     logger,
		repo:       repo,
		resolver:   resolver,
		calculator: calculator,
		payer:      payer,
		idem:       idem,
		validate:   validator.New(),
		rbac:       rbac,
	}
}

// MountRoutes registers commission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermCommissionView))
		r.Get("/rates", h.listRates)
		r.Get("/calculations", h.listCalculations)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermCommissionCalculate))
		r.Post("/rates", h.setRate)
		r.Post("/calculate", h.calculate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermCommissionApprove))
		r.Post("/approve", h.approve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermCommissionPay))
		r.Post("/payments", h.recordPayment)
	})
}

func (h *Handler) listRates(w http.ResponseWriter, r *http.Request) {
	var repID *int64
	if v := r.URL.Query().Get("sales_rep_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			repID = &id
		}
	}

	rates, err := h.repo.ListRates(r.Context(), repID)
	if err != nil {
		h.logger.Error("list commission rates", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rates": rates})
}

func (h *Handler) setRate(w http.ResponseWriter, r *http.Request) {
	var req SetRateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	from, ok := parseDate(req.EffectiveFrom)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid effective_from date")
		return
	}

	id, err := h.resolver.SetRate(r.Context(), Rate{
		SalesRepID:     req.SalesRepID,
		Type:           req.Type,
		RatePercentage: req.RatePercentage,
		EffectiveFrom:  from,
		CreatedBy:      shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) listCalculations(w http.ResponseWriter, r *http.Request) {
	f := CalculationFilter{Limit: 50}
	if v := r.URL.Query().Get("sales_rep_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.SalesRepID = &id
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		f.Status = CalculationStatus(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		f.Offset, _ = strconv.Atoi(v)
	}

	calcs, err := h.repo.ListCalculations(r.Context(), f)
	if err != nil {
		h.logger.Error("list calculations", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"calculations": calcs})
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}

	period := shared.PreviousMonthWindow(time.Now())
	if req.PeriodStart != "" || req.PeriodEnd != "" {
		start, okStart := parseDate(req.PeriodStart)
		end, okEnd := parseDate(req.PeriodEnd)
		if !okStart || !okEnd {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period_start and period_end must both be YYYY-MM-DD")
			return
		}
		period = shared.Period{Start: start, End: end}
	}

	summary, err := h.calculator.CalculateForPeriod(r.Context(), period, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	count, err := h.calculator.Approve(r.Context(), req.CalculationIDs, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"approved": count})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := PaymentInput{
		SalesRepID:     req.SalesRepID,
		CalculationIDs: req.CalculationIDs,
		Method:         req.Method,
		Reference:      req.Reference,
		Notes:          req.Notes,
	}
	if paidAt, ok := parseDate(req.PaidAt); ok {
		input.PaidAt = paidAt
	}

	const idemModule = "commission_payments"
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, idemModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "payment already recorded for this idempotency key")
				return
			}
			h.logger.Error("claim idempotency key", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	result, err := h.payer.RecordPayment(r.Context(), input, shared.ActorFromContext(r.Context()))
	if err != nil {
		if idemKey != "" {
			_ = h.idem.Release(r.Context(), idemKey, idemModule)
		}
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "commission record not found")
	case errors.Is(err, ErrUnknownType), errors.Is(err, ErrUnknownMethod), errors.Is(err, shared.ErrInvalidPeriod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNoValidCommissions):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Valid Commissions", err.Error())
	case errors.Is(err, ErrBatchRunning):
		httpx.Problem(w, http.StatusConflict, "Batch Running", err.Error())
	default:
		h.logger.Error("commission operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
