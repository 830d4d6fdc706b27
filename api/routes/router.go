package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshlane/freshlane-backend/api/controllers"
	"github.com/freshlane/freshlane-backend/api/middleware"
	"github.com/freshlane/freshlane-backend/internal/cart"
	"github.com/freshlane/freshlane-backend/internal/checkout"
	"github.com/freshlane/freshlane-backend/internal/drivers"
	"github.com/freshlane/freshlane-backend/internal/notifications"
	"github.com/freshlane/freshlane-backend/internal/orders"
	"github.com/freshlane/freshlane-backend/internal/products"
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/config"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/metrics"
	"github.com/freshlane/freshlane-backend/pkg/redis"
)

// Params groups everything the router needs.
type Params struct {
	Config *config.Config
	Logger *logger.Logger

	Users         users.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Products      products.Service
	Drivers       drivers.Service
	Notifications notifications.Service

	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics
}

// New assembles the HTTP router.
func New(p Params) http.Handler {
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics(p.HTTPMetrics))

	r.Get("/healthz", controllers.Healthz(p.Redis, logg))
	r.Handle("/metrics", promhttp.Handler())

	authMW := middleware.Auth(p.Config.JWT, logg)
	requireAdmin := middleware.RequireRole(logg, enums.RoleAdmin)
	requireDriver := middleware.RequireRole(logg, enums.RoleDriver)
	requireStaff := middleware.RequireRole(logg, enums.RoleDriver, enums.RoleAdmin)
	idempotency := middleware.Idempotency(p.Redis, p.Config.Checkout, logg)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(
				middleware.AuthRateLimit(p.Redis, middleware.RegisterRateLimitPolicy(p.Config.AuthRateLimit), logg),
				idempotency,
			).Post("/register", controllers.Register(p.Users, logg))

			r.With(
				middleware.AuthRateLimit(p.Redis, middleware.LoginRateLimitPolicy(p.Config.AuthRateLimit), logg),
			).Post("/login", controllers.Login(p.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(authMW)
				r.Get("/whoamI", controllers.WhoAmI(p.Users, logg))
				r.Put("/update-profile", controllers.UpdateProfile(p.Users, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(p.Products, logg))
			r.Get("/trending", controllers.TrendingProducts(p.Products, logg))
			r.Get("/recent", controllers.RecentProducts(p.Products, logg))
			r.Get("/popular", controllers.PopularProducts(p.Products, logg))
			r.Get("/top-rated", controllers.TopRatedProducts(p.Products, logg))
			r.Get("/out-of-stock", controllers.OutOfStockProducts(p.Products, logg))
			r.Get("/category/{category}", controllers.ListProductsByCategory(p.Products, logg))
			r.Get("/{id}", controllers.GetProduct(p.Products, logg))
			r.Get("/{id}/comments", controllers.ListProductComments(p.Products, logg))

			r.Group(func(r chi.Router) {
				r.Use(authMW)
				r.Get("/favorites", controllers.ListFavoriteProducts(p.Products, logg))
				r.Post("/{id}/rate", controllers.RateProduct(p.Products, logg))
				r.Post("/{id}/favorite", controllers.FavoriteProduct(p.Products, logg))
				r.Delete("/{id}/favorite", controllers.UnfavoriteProduct(p.Products, logg))
				r.Post("/{id}/comments", controllers.CommentProduct(p.Products, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(authMW, requireAdmin)
				r.Post("/", controllers.CreateProduct(p.Products, logg))
				r.Put("/{id}", controllers.UpdateProduct(p.Products, logg))
				r.Put("/{id}/restock", controllers.RestockProduct(p.Products, logg))
				r.Delete("/{id}", controllers.DeleteProduct(p.Products, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authMW)
			r.Get("/", controllers.GetCart(p.Cart, logg))
			r.Delete("/", controllers.ClearCart(p.Cart, logg))
			r.Post("/items", controllers.AddCartItem(p.Cart, logg))
			r.Put("/items/{productId}", controllers.SetCartItemQuantity(p.Cart, logg))
			r.Delete("/items/{productId}", controllers.RemoveCartItem(p.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authMW)

			r.With(idempotency).Post("/", controllers.Checkout(p.Checkout, logg))
			r.Get("/me", controllers.MyOrders(p.Orders, logg))

			r.Route("/driver", func(r chi.Router) {
				r.Use(requireDriver)
				r.Get("/me", controllers.DriverOrders(p.Orders, logg))
				r.Patch("/{id}/status", controllers.DriverUpdateStatus(p.Orders, logg))
			})

			r.With(requireAdmin).Get("/", controllers.AdminListOrders(p.Orders, logg))
			r.With(requireAdmin).Patch("/{id}/assign-driver", controllers.AssignDriver(p.Orders, logg))
			r.With(requireAdmin).Patch("/{id}/status", controllers.AdminUpdateOrderStatus(p.Orders, logg))

			r.Get("/{id}", controllers.GetOrder(p.Orders, logg))
			r.Put("/{id}/cancel", controllers.CancelOrder(p.Orders, logg))
		})

		r.Route("/driver", func(r chi.Router) {
			r.Use(authMW)
			r.With(requireAdmin).Get("/", controllers.ListDrivers(p.Drivers, logg))
			r.With(requireStaff).Get("/stats/{id}", controllers.DriverStats(p.Drivers, logg))
			r.With(requireStaff).Get("/{id}/detail", controllers.DriverDetail(p.Drivers, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(authMW)
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(p.Notifications, logg))
			r.Put("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Put("/{id}/read", controllers.MarkNotificationRead(p.Notifications, logg))
		})
	})

	return r
}
