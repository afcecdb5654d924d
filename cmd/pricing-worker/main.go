package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/threadmart-backend/internal/bootstrap"
	pricingconsumer "github.com/angelmondragon/threadmart-backend/internal/consumers/pricing"
	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/metrics"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/idempotency"
)

func main() {
	rt, ctx, stop := bootstrap.Start("pricing-worker")
	defer stop()
	defer rt.Close(ctx)
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)
	pubsubClient := rt.PubSub(ctx)

	subscription := pubsubClient.PricingSubscription()
	if subscription == nil {
		rt.Must(ctx, "pricing subscription", errors.New("subscription not configured"))
	}

	ledger, err := idempotency.NewLedger(redisClient, pricingconsumer.ConsumerName, cfg.Eventing.OutboxIdempotencyTTL)
	rt.Must(ctx, "idempotency ledger", err)

	engine, err := pricing.NewEngine(pricing.EngineParams{
		Repo:    pricing.NewRepository(dbClient.DB()),
		Outbox:  outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics: metrics.NewPricingMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	rt.Must(ctx, "pricing engine", err)

	consumer, err := pricingconsumer.NewConsumer(engine, dbClient, ledger, logg)
	rt.Must(ctx, "pricing consumer", err)

	worker, err := pricingconsumer.NewWorker(subscription, consumer, logg)
	rt.Must(ctx, "pricing worker", err)

	rt.ServeMetrics(ctx)
	logg.Info(logg.WithField(ctx, "subscription", cfg.PubSub.PricingSubscription), "pricing worker ready")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "pricing worker failed", err)
		rt.Fail(ctx)
	}
	logg.Info(ctx, "pricing worker stopped")
}
