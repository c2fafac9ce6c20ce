package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marketbay/payouts-backend/api/routes"
	"github.com/marketbay/payouts-backend/internal/audit"
	"github.com/marketbay/payouts-backend/internal/commission"
	"github.com/marketbay/payouts-backend/internal/notifications"
	"github.com/marketbay/payouts-backend/internal/orders"
	"github.com/marketbay/payouts-backend/internal/sellers"
	"github.com/marketbay/payouts-backend/internal/settlement"
	"github.com/marketbay/payouts-backend/internal/wallet"
	razorpaywebhook "github.com/marketbay/payouts-backend/internal/webhooks/razorpay"
	"github.com/marketbay/payouts-backend/pkg/config"
	"github.com/marketbay/payouts-backend/pkg/db"
	"github.com/marketbay/payouts-backend/pkg/logger"
	"github.com/marketbay/payouts-backend/pkg/metrics"
	"github.com/marketbay/payouts-backend/pkg/migrate"
	"github.com/marketbay/payouts-backend/pkg/pubsub"
	"github.com/marketbay/payouts-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	payoutMetrics := metrics.NewPayoutMetrics(registry)

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient, auditService, payoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ruleResolver, err := commission.NewResolver(
		commission.NewRepository(dbClient.DB()),
		redisClient,
		cfg.Settlement.RuleCacheTTL,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission resolver", err)
		os.Exit(1)
	}

	accountResolver, err := sellers.NewResolver(sellers.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create seller account resolver", err)
		os.Exit(1)
	}

	calculator, err := settlement.NewCalculator(
		orders.NewRepository(dbClient.DB()),
		ruleResolver,
		accountResolver,
		cfg.Settlement,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement calculator", err)
		os.Exit(1)
	}

	// Pub/Sub is optional; without a project the publisher drops notices.
	var sink notifications.Sink
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		sink = notifications.NewPubSubSink(pubsubClient.SettlementPublisher())
	}
	notifier, err := notifications.NewPublisher(sink, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification publisher", err)
		os.Exit(1)
	}

	settlementRepo := settlement.NewRepository(dbClient.DB())
	settlementService, err := settlement.NewService(
		settlementRepo,
		calculator,
		walletService,
		dbClient,
		auditService,
		notifier,
		payoutMetrics,
		cfg.Settlement,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	webhookService, err := razorpaywebhook.NewService(razorpaywebhook.ServiceParams{
		Settlements: settlementService,
		Lookup:      settlementRepo,
		Auditor:     auditService,
		Metrics:     payoutMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := razorpaywebhook.NewIdempotencyGuard(redisClient, cfg.Razorpay.EventIdempotencyTTL, "razorpay")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:            cfg,
			Logger:            logg,
			DBPinger:          dbClient,
			RedisPinger:       redisClient,
			WalletService:     walletService,
			SettlementService: settlementService,
			WebhookService:    webhookService,
			WebhookGuard:      webhookGuard,
			MetricsGatherer:   registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
