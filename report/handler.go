package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cedarline-erp/cedarline-erp/internal/billing/invoices"
	"github.com/cedarline-erp/cedarline-erp/internal/platform/httpx"
	"github.com/cedarline-erp/cedarline-erp/internal/rbac"
)

// InvoiceSource loads an invoice with its line items.
type InvoiceSource interface {
	Get(ctx context.Context, id int64) (*invoices.Invoice, []invoices.InvoiceItem, error)
}

// Handler serves printable documents.
type Handler struct {
	client   *Client
	invoices InvoiceSource
	logger   *slog.Logger
	rbac     rbac.Middleware
}

// NewHandler creates a report handler.
func NewHandler(client *Client, source InvoiceSource, logger *slog.Logger, guard rbac.Middleware) *Handler {
	return &Handler{client: client, invoices: source, logger: logger, rbac: guard}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.With(h.rbac.Require(rbac.PermInvoicesView)).Get("/invoices/{id}.pdf", h.invoicePDF)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}

	inv, items, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
			return
		}
		h.logger.Error("load invoice for pdf", slog.Any("error", err), slog.Int64("invoice_id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	html, err := InvoiceHTML(inv, items)
	if err != nil {
		h.logger.Error("render invoice html", slog.Any("error", err), slog.Int64("invoice_id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Any("error", err), slog.Int64("invoice_id", id))
		httpx.Problem(w, http.StatusBadGateway, "Renderer Failed", "")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+inv.Number+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
