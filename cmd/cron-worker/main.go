package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/threadmart-backend/internal/bootstrap"
	"github.com/angelmondragon/threadmart-backend/internal/cron"
	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/metrics"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
)

func main() {
	rt, ctx, stop := bootstrap.Start("cron-worker")
	defer stop()
	defer rt.Close(ctx)
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)

	lock, err := cron.NewRedisLeaderLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Pricing.SweepInterval)
	rt.Must(ctx, "leader lock", err)

	pricingRepo := pricing.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	engine, err := pricing.NewEngine(pricing.EngineParams{
		Repo:    pricingRepo,
		Outbox:  outbox.NewService(outboxRepo, logg),
		Metrics: metrics.NewPricingMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	rt.Must(ctx, "pricing engine", err)

	sweep, err := cron.NewDiscountWindowJob(cron.DiscountWindowJobParams{
		Logger:   logg,
		DB:       dbClient,
		Repo:     pricingRepo,
		Repricer: engine,
		Lookback: cfg.Pricing.SweepLookback,
		Batch:    cfg.Pricing.SweepBatch,
	})
	rt.Must(ctx, "discount window job", err)

	prune, err := cron.NewOutboxPruneJob(cron.OutboxPruneJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repo:        outboxRepo,
		Retention:   cfg.Outbox.Retention,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	rt.Must(ctx, "outbox prune job", err)

	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:   logg,
		Jobs:     []cron.Job{sweep, prune},
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Pricing.SweepInterval,
	})
	rt.Must(ctx, "scheduler", err)

	rt.ServeMetrics(ctx)
	logg.Info(ctx, "starting cron worker")

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		rt.Fail(ctx)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

// lockName keeps environments sharing one redis from electing a single leader.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
