package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sitechain-erp/sitechain-erp/internal/cashbooks"
	"github.com/sitechain-erp/sitechain-erp/internal/indents"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/billingaddresses"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/items"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/paymentterms"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/sites"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/vendors"
	"github.com/sitechain-erp/sitechain-erp/internal/observability"
	"github.com/sitechain-erp/sitechain-erp/internal/purchasing"
	"github.com/sitechain-erp/sitechain-erp/internal/stock"
	"github.com/sitechain-erp/sitechain-erp/internal/workorders"
	"github.com/sitechain-erp/sitechain-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger                *slog.Logger
	Config                *Config
	IndentHandler         *indents.Handler
	PurchasingHandler     *purchasing.Handler
	WorkOrderHandler      *workorders.Handler
	SiteHandler           *sites.Handler
	VendorHandler         *vendors.Handler
	ItemHandler           *items.Handler
	PaymentTermHandler    *paymentterms.Handler
	BillingAddressHandler *billingaddresses.Handler
	StockHandler          *stock.Handler
	CashbookHandler       *cashbooks.Handler
	JobHandler            *jobs.Handler
	Metrics               *observability.Metrics
}

// NewRouter constructs the chi.Router with SiteChain defaults.
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

	if params.IndentHandler != nil {
		r.Route("/indents", params.IndentHandler.MountRoutes)
	}
	if params.PurchasingHandler != nil {
		r.Route("/procurement/pos", params.PurchasingHandler.MountRoutes)
	}
	if params.WorkOrderHandler != nil {
		r.Route("/workorders", params.WorkOrderHandler.MountRoutes)
	}
	r.Route("/masterdata", func(r chi.Router) {
		if params.SiteHandler != nil {
			r.Route("/sites", params.SiteHandler.MountRoutes)
		}
		if params.VendorHandler != nil {
			r.Route("/vendors", params.VendorHandler.MountRoutes)
		}
		if params.ItemHandler != nil {
			r.Route("/items", params.ItemHandler.MountRoutes)
		}
		if params.PaymentTermHandler != nil {
			r.Route("/payment-terms", params.PaymentTermHandler.MountRoutes)
		}
		if params.BillingAddressHandler != nil {
			r.Route("/billing-addresses", params.BillingAddressHandler.MountRoutes)
		}
	})
	if params.StockHandler != nil {
		r.Route("/stock", params.StockHandler.MountRoutes)
	}
	if params.CashbookHandler != nil {
		r.Route("/cashbooks", params.CashbookHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
