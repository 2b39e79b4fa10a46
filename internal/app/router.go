package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cedarline-erp/cedarline-erp/internal/billing/invoices"
	"github.com/cedarline-erp/cedarline-erp/internal/commission"
	"github.com/cedarline-erp/cedarline-erp/internal/observability"
	"github.com/cedarline-erp/cedarline-erp/internal/sales/customers"
	"github.com/cedarline-erp/cedarline-erp/internal/sales/orders"
	"github.com/cedarline-erp/cedarline-erp/jobs"
	"github.com/cedarline-erp/cedarline-erp/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	OrdersHandler     *orders.Handler
	CustomersHandler  *customers.Handler
	InvoicesHandler   *invoices.Handler
	CommissionHandler *commission.Handler
	ReportHandler     *report.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Cedarline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/sales/orders", params.OrdersHandler.MountRoutes)
	r.Route("/sales/customers", params.CustomersHandler.MountRoutes)
	r.Route("/billing/invoices", params.InvoicesHandler.MountRoutes)
	r.Route("/commission", params.CommissionHandler.MountRoutes)
	if params.ReportHandler != nil {
		r.Route("/reports", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
