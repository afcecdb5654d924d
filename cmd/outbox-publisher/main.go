package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/threadmart-backend/internal/bootstrap"
	"github.com/angelmondragon/threadmart-backend/internal/relay"
	"github.com/angelmondragon/threadmart-backend/pkg/metrics"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/registry"
)

func main() {
	rt, ctx, stop := bootstrap.Start("outbox-publisher")
	defer stop()
	defer rt.Close(ctx)
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(ctx)
	pubsubClient := rt.PubSub(ctx)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	rt.Must(ctx, "event registry", err)

	r, err := relay.New(relay.Params{
		Outbox:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Broker:     pubsubClient,
		Store:      outbox.NewRepository(dbClient.DB()),
		DeadLetter: outbox.NewDLQRepository(dbClient.DB()),
		Registry:   events,
		Publishers: relay.GCPPublishers(pubsubClient.Publisher),
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	rt.Must(ctx, "relay", err)

	rt.ServeMetrics(ctx)
	logg.Info(logg.WithField(ctx, "topics", events.Topics()), "starting outbox publisher")

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		rt.Fail(ctx)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}
