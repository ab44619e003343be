package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cardhaus/cardhaus-backend/api/controllers"
	"github.com/cardhaus/cardhaus-backend/api/middleware"
	"github.com/cardhaus/cardhaus-backend/internal/auth"
	"github.com/cardhaus/cardhaus-backend/internal/cart"
	"github.com/cardhaus/cardhaus-backend/internal/inventory"
	"github.com/cardhaus/cardhaus-backend/internal/notifications"
	"github.com/cardhaus/cardhaus-backend/internal/orders"
	"github.com/cardhaus/cardhaus-backend/internal/payments"
	"github.com/cardhaus/cardhaus-backend/internal/products"
	"github.com/cardhaus/cardhaus-backend/pkg/auth/session"
	"github.com/cardhaus/cardhaus-backend/pkg/config"
	"github.com/cardhaus/cardhaus-backend/pkg/db"
	"github.com/cardhaus/cardhaus-backend/pkg/enums"
	"github.com/cardhaus/cardhaus-backend/pkg/logger"
	"github.com/cardhaus/cardhaus-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth          auth.Service
	Cart          cart.Service
	Orders        orders.Service
	Payments      payments.Service
	Inventory     inventory.Service
	Products      products.Service
	Notifications notifications.Service
}

// NewRouter builds the full API route tree.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Processor callbacks authenticate with an HMAC signature, not a token.
	r.Post("/api/v1/webhooks/payment", controllers.PaymentWebhook(svcs.Payments, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	// Public catalog.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.BrowseProducts(svcs.Products, logg))
		r.Get("/{productId}", controllers.ProductDetail(svcs.Products, logg))
	})

	// Cart, checkout, and orders accept signed-in users or anonymous sessions.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Owner(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Patch("/items/{inventoryId}", controllers.CartUpdateItem(svcs.Cart, logg))
		})
		r.Post("/api/v1/checkout", controllers.Checkout(svcs.Orders, logg))
		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.Post("/{orderId}/payment", controllers.CreatePayment(svcs.Payments, logg))
			r.Post("/{orderId}/payment/approve", controllers.ApprovePayment(svcs.Payments, logg))
		})
	})

	// Signed-in only surfaces.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/api/v1/cart/merge", controllers.CartMerge(svcs.Cart, logg))
		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	// Staff surfaces.
	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.AdminListInventory(svcs.Inventory, logg))
			r.Post("/", controllers.AdminCreateInventory(svcs.Inventory, logg))
			r.Post("/{inventoryId}/restock", controllers.AdminRestockInventory(svcs.Inventory, logg))
			r.Put("/{inventoryId}/price", controllers.AdminSetInventoryPrice(svcs.Inventory, logg))
		})
		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(svcs.Products, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(svcs.Products, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(svcs.Orders, logg))
			r.Post("/{orderId}/mark-paid", controllers.AdminMarkOrderPaid(svcs.Orders, logg))
			r.Post("/{orderId}/mark-delivered", controllers.AdminMarkOrderDelivered(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.AdminCancelOrder(svcs.Orders, logg))
		})
	})

	return r
}
