package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/threadmart-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/threadmart-backend/api/controllers/cart"
	discountcontrollers "github.com/angelmondragon/threadmart-backend/api/controllers/discounts"
	ordercontrollers "github.com/angelmondragon/threadmart-backend/api/controllers/orders"
	"github.com/angelmondragon/threadmart-backend/api/middleware"
	"github.com/angelmondragon/threadmart-backend/internal/carousel"
	"github.com/angelmondragon/threadmart-backend/internal/cart"
	"github.com/angelmondragon/threadmart-backend/internal/categories"
	"github.com/angelmondragon/threadmart-backend/internal/discounts"
	"github.com/angelmondragon/threadmart-backend/internal/orders"
	"github.com/angelmondragon/threadmart-backend/internal/payments"
	products "github.com/angelmondragon/threadmart-backend/internal/products"
	"github.com/angelmondragon/threadmart-backend/internal/shops"
	"github.com/angelmondragon/threadmart-backend/internal/users"
	"github.com/angelmondragon/threadmart-backend/internal/wishlist"
	"github.com/angelmondragon/threadmart-backend/pkg/config"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/threadmart-backend/pkg/redis"
)

// RequestStore is the Redis surface the HTTP layer needs: idempotency records and rate counters.
type RequestStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services groups the domain services mounted by the router. Nil services answer 500.
type Services struct {
	Discounts  discounts.Service
	Cart       cart.Service
	Orders     orders.Service
	Payments   payments.Service
	Products   products.Service
	Categories categories.Service
	Shops      shops.Service
	Wishlist   wishlist.Service
	Users      users.Service
	Carousel   carousel.Service
}

// Infra carries the shared clients behind auth, rate limiting and readiness.
type Infra struct {
	Resolver middleware.ActorResolver
	Store    RequestStore
	Pingers  []controllers.NamedPinger
	Metrics  http.Handler
	// DeadLetters backs the admin view of parked outbox events.
	DeadLetters controllers.DeadLetterLister
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	metricsHandler := infra.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Pingers...))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	var (
		limiter     middleware.RateLimiter
		idemStore   pkgredis.IdempotencyStore
		writePolicy = middleware.RateLimitPolicy{Name: "writes", Window: cfg.RateLimit.Window, Limit: cfg.RateLimit.Writes}
		orderPolicy = middleware.RateLimitPolicy{Name: "orders", Window: cfg.RateLimit.Window, Limit: cfg.RateLimit.Orders}
	)
	if infra.Store != nil {
		limiter = infra.Store
		idemStore = infra.Store
	}
	idempotency := middleware.Idempotency(idemStore, middleware.DefaultIdempotencyRules(cfg.Checkout.IdempotencyTTL), logg)

	sellerOrAdmin := middleware.RequireRole(logg, enums.UserRoleSeller, enums.UserRoleAdmin)
	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// Public storefront; a token, when sent, lets owners see their inactive products.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, infra.Resolver, logg))
			r.Get("/categories", controllers.CategoryTree(svc.Categories, logg))
			r.Get("/products", controllers.ProductList(svc.Products, logg))
			r.Get("/products/{productId}", controllers.ProductGet(svc.Products, logg))
			r.Get("/shops/{shopId}", controllers.ShopGet(svc.Shops, logg))
			r.Get("/carousel", controllers.CarouselPublic(svc.Carousel, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, infra.Resolver, logg))
			r.Use(writeLimit(writePolicy, limiter, logg))
			r.Use(idempotency)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(svc.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(svc.Cart, logg))
				r.Patch("/items/{itemId}", cartcontrollers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(svc.Cart, logg))
			})

			r.With(middleware.RateLimit(orderPolicy, limiter, logg)).Post("/orders", ordercontrollers.OrderCreate(svc.Orders, logg))
			r.Get("/orders", ordercontrollers.OrderListMine(svc.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.OrderGet(svc.Orders, logg))
			r.Get("/orders/{orderId}/payment", ordercontrollers.OrderPayment(svc.Payments, logg))

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(svc.Wishlist, logg))
				r.Get("/ids", controllers.WishlistIDs(svc.Wishlist, logg))
				r.Post("/{productId}", controllers.WishlistAddItem(svc.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemoveItem(svc.Wishlist, logg))
			})

			r.Post("/shops", controllers.ShopCreate(svc.Shops, logg))
			r.Get("/shops/mine", controllers.ShopMine(svc.Shops, logg))

			r.Group(func(r chi.Router) {
				r.Use(sellerOrAdmin)

				r.Post("/products", controllers.ProductCreate(svc.Products, logg))
				r.Patch("/products/{productId}", controllers.ProductUpdate(svc.Products, logg))
				r.Delete("/products/{productId}", controllers.ProductDelete(svc.Products, logg))
				r.Post("/products/{productId}/variations", controllers.VariationAdd(svc.Products, logg))
				r.Patch("/variations/{variationId}", controllers.VariationUpdate(svc.Products, logg))
				r.Delete("/variations/{variationId}", controllers.VariationDelete(svc.Products, logg))

				r.Post("/discounts", discountcontrollers.DiscountCreate(svc.Discounts, logg))
				r.Get("/discounts", discountcontrollers.DiscountSellerList(svc.Discounts, logg))
				r.Get("/discounts/{discountId}", discountcontrollers.DiscountGet(svc.Discounts, logg))
				r.Patch("/discounts/{discountId}", discountcontrollers.DiscountUpdate(svc.Discounts, logg))
				r.Delete("/discounts/{discountId}", discountcontrollers.DiscountDelete(svc.Discounts, logg))
				r.Post("/discounts/{discountId}/toggle", discountcontrollers.DiscountToggle(svc.Discounts, logg))
				r.Post("/discounts/{discountId}/reprice", discountcontrollers.DiscountReprice(svc.Discounts, logg))
				r.Post("/discounts/{discountId}/variations", discountcontrollers.DiscountAddVariations(svc.Discounts, logg))
				r.Delete("/discounts/{discountId}/variations", discountcontrollers.DiscountRemoveVariations(svc.Discounts, logg))
				r.Post("/discounts/{discountId}/categories", discountcontrollers.DiscountAddCategories(svc.Discounts, logg))
				r.Delete("/discounts/{discountId}/categories", discountcontrollers.DiscountRemoveCategories(svc.Discounts, logg))
				r.Post("/discounts/{discountId}/cart", discountcontrollers.DiscountAddCart(svc.Discounts, logg))
				r.Delete("/discounts/{discountId}/cart", discountcontrollers.DiscountRemoveCart(svc.Discounts, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)

				r.Get("/discounts", discountcontrollers.DiscountAdminList(svc.Discounts, logg))
				r.Post("/categories", controllers.AdminCategoryCreate(svc.Categories, logg))
				r.Get("/orders", ordercontrollers.AdminOrderList(svc.Orders, logg))
				r.Patch("/orders/{orderId}/status", ordercontrollers.AdminOrderUpdateStatus(svc.Orders, logg))
				r.Patch("/payments/{paymentId}/status", ordercontrollers.AdminPaymentUpdateStatus(svc.Payments, logg))
				r.Get("/users", controllers.AdminUserList(svc.Users, logg))
				r.Patch("/users/{userId}/role", controllers.AdminUserUpdateRole(svc.Users, logg))
				r.Get("/outbox/dead-letters", controllers.AdminDeadLetterList(infra.DeadLetters, logg))

				r.Route("/carousel", func(r chi.Router) {
					r.Get("/", controllers.AdminCarouselList(svc.Carousel, logg))
					r.Post("/", controllers.AdminCarouselCreate(svc.Carousel, logg))
					r.Patch("/{itemId}", controllers.AdminCarouselUpdate(svc.Carousel, logg))
					r.Delete("/{itemId}", controllers.AdminCarouselDelete(svc.Carousel, logg))
				})
			})
		})
	})

	return r
}

// writeLimit applies the policy to mutating requests only.
func writeLimit(policy middleware.RateLimitPolicy, limiter middleware.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	limited := middleware.RateLimit(policy, limiter, logg)
	return func(next http.Handler) http.Handler {
		guarded := limited(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				guarded.ServeHTTP(w, r)
			}
		})
	}
}
