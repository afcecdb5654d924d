package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/threadmart-backend/api"
	"github.com/angelmondragon/threadmart-backend/api/controllers"
	"github.com/angelmondragon/threadmart-backend/api/routes"
	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/internal/bootstrap"
	"github.com/angelmondragon/threadmart-backend/internal/carousel"
	"github.com/angelmondragon/threadmart-backend/internal/cart"
	"github.com/angelmondragon/threadmart-backend/internal/categories"
	"github.com/angelmondragon/threadmart-backend/internal/discounts"
	"github.com/angelmondragon/threadmart-backend/internal/orders"
	"github.com/angelmondragon/threadmart-backend/internal/payments"
	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/internal/products"
	"github.com/angelmondragon/threadmart-backend/internal/shops"
	"github.com/angelmondragon/threadmart-backend/internal/users"
	"github.com/angelmondragon/threadmart-backend/internal/wishlist"
	"github.com/angelmondragon/threadmart-backend/pkg/db"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/metrics"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
)

func main() {
	rt, ctx, stop := bootstrap.Start("api")
	defer stop()
	defer rt.Close(ctx)
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)

	shopRepo := shops.NewRepository(dbClient.DB())
	resolver, err := access.NewResolver(shopRepo)
	rt.Must(ctx, "actor resolver", err)

	services, err := buildServices(dbClient, shopRepo, logg)
	rt.Must(ctx, "services", err)

	handler := routes.NewRouter(cfg, logg, routes.Infra{
		Resolver: resolver,
		Store:    redisClient,
		Pingers: []controllers.NamedPinger{
			{Name: "db", Pinger: dbClient},
			{Name: "redis", Pinger: redisClient},
		},
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
	}, services)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithField(ctx, "addr", addr)
	logg.Info(ctx, "starting api server")

	if err := api.NewServer(cfg.HTTP, addr, handler, logg).Serve(ctx); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		rt.Fail(ctx)
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(dbClient *db.Client, shopRepo *shops.Repository, logg *logger.Logger) (routes.Services, error) {
	gdb := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	engine, err := pricing.NewEngine(pricing.EngineParams{
		Repo:    pricing.NewRepository(gdb),
		Outbox:  outboxService,
		Metrics: metrics.NewPricingMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("pricing engine: %w", err)
	}

	var svc routes.Services

	if svc.Shops, err = shops.NewService(shopRepo); err != nil {
		return routes.Services{}, fmt.Errorf("shops: %w", err)
	}
	if svc.Categories, err = categories.NewService(categories.NewRepository(gdb)); err != nil {
		return routes.Services{}, fmt.Errorf("categories: %w", err)
	}

	productRepo := products.NewRepository(gdb)
	if svc.Products, err = products.NewService(productRepo, dbClient, engine, logg); err != nil {
		return routes.Services{}, fmt.Errorf("products: %w", err)
	}

	if svc.Discounts, err = discounts.NewService(discounts.ServiceParams{
		Repo:     discounts.NewRepository(gdb),
		Tx:       dbClient,
		Repricer: engine,
		Outbox:   outboxService,
		Logger:   logg,
	}); err != nil {
		return routes.Services{}, fmt.Errorf("discounts: %w", err)
	}

	if svc.Cart, err = cart.NewService(cart.NewRepository(gdb), dbClient, logg); err != nil {
		return routes.Services{}, fmt.Errorf("cart: %w", err)
	}

	paymentService, err := payments.NewService(payments.NewRepository(gdb), dbClient, outboxService, logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("payments: %w", err)
	}
	svc.Payments = paymentService

	if svc.Orders, err = orders.NewService(orders.NewRepository(gdb), dbClient, paymentService, outboxService, logg); err != nil {
		return routes.Services{}, fmt.Errorf("orders: %w", err)
	}

	if svc.Wishlist, err = wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(gdb),
		ProductRepo:  productRepo,
	}); err != nil {
		return routes.Services{}, fmt.Errorf("wishlist: %w", err)
	}

	if svc.Users, err = users.NewService(users.NewRepository(gdb), logg); err != nil {
		return routes.Services{}, fmt.Errorf("users: %w", err)
	}
	if svc.Carousel, err = carousel.NewService(carousel.NewRepository(gdb)); err != nil {
		return routes.Services{}, fmt.Errorf("carousel: %w", err)
	}

	return svc, nil
}
