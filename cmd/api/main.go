package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/luanpereira/vitrine-backend/api/controllers"
	"github.com/luanpereira/vitrine-backend/api/routes"
	"github.com/luanpereira/vitrine-backend/internal/freight"
	"github.com/luanpereira/vitrine-backend/internal/fulfillment"
	"github.com/luanpereira/vitrine-backend/internal/orders"
	"github.com/luanpereira/vitrine-backend/internal/payments"
	"github.com/luanpereira/vitrine-backend/internal/settings"
	mercadopagowebhook "github.com/luanpereira/vitrine-backend/internal/webhooks/mercadopago"
	"github.com/luanpereira/vitrine-backend/pkg/config"
	"github.com/luanpereira/vitrine-backend/pkg/db"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
	"github.com/luanpereira/vitrine-backend/pkg/melhorenvio"
	"github.com/luanpereira/vitrine-backend/pkg/mercadopago"
	"github.com/luanpereira/vitrine-backend/pkg/metrics"
	"github.com/luanpereira/vitrine-backend/pkg/migrate"
	"github.com/luanpereira/vitrine-backend/pkg/pubsub"
	"github.com/luanpereira/vitrine-backend/pkg/redis"
)

const shutdownTimeout = 30 * time.Second

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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reconcilerMetrics := metrics.NewReconcilerMetrics(registry)

	orderRepo := orders.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())
	settingsRepo := settings.NewRepository(dbClient.DB())

	gatewayOpts := []mercadopago.Option{}
	if cfg.MercadoPago.BaseURL != "" {
		gatewayOpts = append(gatewayOpts, mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL))
	}
	gatewayClient := mercadopago.NewClient(cfg.MercadoPago.Timeout, gatewayOpts...)

	aggregatorOpts := []melhorenvio.Option{}
	if cfg.MelhorEnvio.BaseURL != "" {
		aggregatorOpts = append(aggregatorOpts, melhorenvio.WithBaseURL(cfg.MelhorEnvio.BaseURL))
	}
	if cfg.MelhorEnvio.SandboxBaseURL != "" {
		aggregatorOpts = append(aggregatorOpts, melhorenvio.WithSandboxBaseURL(cfg.MelhorEnvio.SandboxBaseURL))
	}
	aggregatorClient := melhorenvio.NewClient(cfg.MelhorEnvio.Timeout, aggregatorOpts...)

	freightService, err := freight.NewService(freight.ServiceParams{
		SettingsRepo: settingsRepo,
		Aggregator:   aggregatorClient,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create freight service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		OrderRepo:       orderRepo,
		PaymentRepo:     paymentRepo,
		SettingsRepo:    settingsRepo,
		Gateway:         gatewayClient,
		Logger:          logg,
		Metrics:         reconcilerMetrics,
		NotificationURL: cfg.MercadoPago.NotificationURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Publisher:      fulfillment.NewGCPPublisher(pubsubClient.ShipmentsPublisher()),
		Logger:         logg,
		PublishTimeout: cfg.PubSub.PublishTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	webhookService, err := mercadopagowebhook.NewService(mercadopagowebhook.ServiceParams{
		OrderRepo:         orderRepo,
		PaymentRepo:       paymentRepo,
		SettingsRepo:      settingsRepo,
		Gateway:           gatewayClient,
		Fulfillment:       fulfillmentService,
		TransactionRunner: dbClient,
		Logger:            logg,
		Metrics:           reconcilerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:           cfg,
		Logger:           logg,
		Registry:         registry,
		IdempotencyStore: redisClient,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		FreightService: freightService,
		PaymentService: paymentService,
		WebhookService: webhookService,
	})

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
		Addr:    addr,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining connections")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
	}

	logg.Info(ctx, "api server stopped")
}
