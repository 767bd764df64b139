package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kitchenledger/kitchenledger/internal/fct/budget"
	"github.com/kitchenledger/kitchenledger/internal/fct/cash"
	"github.com/kitchenledger/kitchenledger/internal/fct/events"
	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
	"github.com/kitchenledger/kitchenledger/internal/fct/masterdata"
	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
	"github.com/kitchenledger/kitchenledger/internal/fct/plans"
	"github.com/kitchenledger/kitchenledger/internal/fct/tax"
	"github.com/kitchenledger/kitchenledger/internal/fct/vouchers"
	"github.com/kitchenledger/kitchenledger/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	EventsHandler     *events.Handler
	VouchersHandler   *vouchers.Handler
	LedgerHandler     *ledger.Handler
	PeriodsHandler    *periods.Handler
	BudgetHandler     *budget.Handler
	CashHandler       *cash.Handler
	TaxHandler        *tax.Handler
	PlansHandler      *plans.Handler
	MasterDataHandler *masterdata.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with the default middleware and
// every financial module mounted under /fct.
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

	r.Route("/fct", func(r chi.Router) {
		r.Route("/events", params.EventsHandler.MountRoutes)
		r.Route("/vouchers", params.VouchersHandler.MountRoutes)
		params.LedgerHandler.MountRoutes(r)
		r.Route("/periods", params.PeriodsHandler.MountRoutes)
		r.Route("/budgets", params.BudgetHandler.MountRoutes)
		r.Put("/budget-controls", params.BudgetHandler.UpsertControl)
		r.Route("/cash-transactions", params.CashHandler.MountRoutes)
		r.Route("/tax-invoices", params.TaxHandler.MountRoutes)
		r.Route("/plans", params.PlansHandler.MountRoutes)
		r.Get("/reports/plan-vs-actual", params.PlansHandler.Report)
		r.Route("/master-data", params.MasterDataHandler.MountRoutes)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
