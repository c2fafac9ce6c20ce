package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marketbay/payouts-backend/api/controllers"
	webhookcontrollers "github.com/marketbay/payouts-backend/api/controllers/webhooks"
	"github.com/marketbay/payouts-backend/api/middleware"
	"github.com/marketbay/payouts-backend/internal/settlement"
	"github.com/marketbay/payouts-backend/internal/wallet"
	razorpaywebhook "github.com/marketbay/payouts-backend/internal/webhooks/razorpay"
	"github.com/marketbay/payouts-backend/pkg/config"
	"github.com/marketbay/payouts-backend/pkg/logger"
)

// Deps carries everything the HTTP surface needs. Pingers may be nil in
// tests; readiness then reports the dependency as unconfigured.
type Deps struct {
	Config            *config.Config
	Logger            *logger.Logger
	DBPinger          controllers.Pinger
	RedisPinger       controllers.Pinger
	WalletService     wallet.Service
	SettlementService settlement.Service
	WebhookService    *razorpaywebhook.Service
	WebhookGuard      *razorpaywebhook.IdempotencyGuard
	MetricsGatherer   prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", webhookcontrollers.RazorpayWebhook(deps.WebhookService, cfg.Razorpay.WebhookSecret, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1/wallets", func(r chi.Router) {
		r.Post("/", controllers.WalletCreate(deps.WalletService, logg))
		r.Route("/{walletId}", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(deps.WalletService, logg))
			r.Get("/settlable", controllers.WalletSettlable(deps.WalletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(deps.WalletService, logg))
			r.Post("/credit", controllers.WalletCredit(deps.WalletService, logg))
			r.Post("/debit", controllers.WalletDebit(deps.WalletService, logg))
			r.Post("/reserve", controllers.WalletReserve(deps.WalletService, logg))
			r.Post("/release", controllers.WalletRelease(deps.WalletService, logg))
			r.Post("/move-pending", controllers.WalletMovePending(deps.WalletService, logg))
		})
	})

	r.Route("/api/v1/settlements", func(r chi.Router) {
		r.Post("/", controllers.SettlementCreate(deps.SettlementService, logg))
		r.Post("/calculate", controllers.SettlementCalculate(deps.SettlementService, logg))
		r.Post("/validate", controllers.SettlementValidate(deps.SettlementService, logg))
		r.Get("/seller/{sellerId}", controllers.SettlementsBySeller(deps.SettlementService, logg))
		r.Route("/{settlementId}", func(r chi.Router) {
			r.Get("/", controllers.SettlementGet(deps.SettlementService, logg))
			r.Post("/process", controllers.SettlementProcess(deps.SettlementService, logg))
			r.Post("/complete", controllers.SettlementComplete(deps.SettlementService, logg))
			r.Post("/fail", controllers.SettlementFail(deps.SettlementService, logg))
			r.Post("/cancel", controllers.SettlementCancel(deps.SettlementService, logg))
		})
	})

	return r
}
