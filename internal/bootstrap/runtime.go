// Package bootstrap holds the start-up sequence shared by every binary:
// env loading, config, logger, infrastructure clients and ordered shutdown.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/threadmart-backend/pkg/config"
	"github.com/angelmondragon/threadmart-backend/pkg/db"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/metrics"
	"github.com/angelmondragon/threadmart-backend/pkg/migrate"
	"github.com/angelmondragon/threadmart-backend/pkg/pubsub"
	"github.com/angelmondragon/threadmart-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Runtime is a booted process. Resources opened through it are closed in
// reverse order by Close, including on a fatal exit.
type Runtime struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

// Start loads .env and config, builds the logger for kind and returns a
// context cancelled on SIGINT or SIGTERM.
func Start(kind string) (*Runtime, context.Context, context.CancelFunc) {
	boot := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = kind

	rt := &Runtime{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		}),
		exit: os.Exit,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": kind,
		"instance":    InstanceID(),
	})
	return rt, ctx, stop
}

// Must aborts the process when err is set, closing what was already opened.
func (rt *Runtime) Must(ctx context.Context, what string, err error) {
	if err == nil {
		return
	}
	rt.Logger.Error(ctx, fmt.Sprintf("failed to bootstrap %s", what), err)
	rt.Fail(ctx)
}

// Fail closes tracked resources and exits non-zero.
func (rt *Runtime) Fail(ctx context.Context) {
	rt.Close(ctx)
	rt.exit(1)
}

// Track registers fn to run during Close.
func (rt *Runtime) Track(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

// Close runs tracked closers newest first. It is safe to call more than once.
func (rt *Runtime) Close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.fn(); err != nil {
			rt.Logger.Error(rt.Logger.WithField(ctx, "resource", c.name), "error during shutdown", err)
		}
	}
	rt.closers = nil
}

// Database opens the pool and, in dev, brings the schema up to date.
func (rt *Runtime) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, rt.Config.DB, rt.Logger)
	rt.Must(ctx, "database", err)
	rt.Track("database", client.Close)
	rt.Must(ctx, "dev migrations", migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, client))
	return client
}

func (rt *Runtime) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	rt.Must(ctx, "redis", err)
	rt.Track("redis", client.Close)
	return client
}

func (rt *Runtime) PubSub(ctx context.Context) *pubsub.Client {
	client, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, rt.Logger)
	rt.Must(ctx, "pubsub", err)
	rt.Track("pubsub", client.Close)
	return client
}

// ServeMetrics exposes /metrics on THREADMART_METRICS_ADDR until ctx ends.
func (rt *Runtime) ServeMetrics(ctx context.Context) {
	go func() {
		if err := metrics.Serve(ctx, rt.Config.Service.MetricsAddr, rt.Logger); err != nil {
			rt.Logger.Error(ctx, "metrics listener stopped", err)
		}
	}()
}

// InstanceID names this process in logs: the dyno on Heroku, else the hostname.
func InstanceID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}
