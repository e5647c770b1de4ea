package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/health"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
)

const catalogCacheSeconds = 60

// Services groups the application services exposed over HTTP.
type Services struct {
	Auth       *service.AuthService
	Categories *service.CategoryService
	Products   *service.ProductService
	Cart       *service.CartService
	Delivery   *service.DeliveryService
	Promos     *service.PromoService
	Orders     *service.OrderService
	Payments   *service.PaymentService
	Addresses  *service.AddressService
	Reviews    *service.ReviewService
	Settings   *service.SettingsService
	Dashboard  *service.DashboardService
	Customers  *service.CustomerService
}

// RouterConfig holds the HTTP-facing settings.
type RouterConfig struct {
	CORSOrigins       []string
	Location          *time.Location
	TokenValidator    middleware.TokenValidator
	AuthLimiter       *middleware.RateLimiter
	Session           middleware.SessionConfig
	Media             MediaSource
	PprofEnabled      bool
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all storefront and back office routes
// registered.
func NewRouter(svc Services, cfg RouterConfig, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(middleware.Tracing)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Metrics)

	// Health check endpoints
	r.Get("/health", healthHandler.ReadinessHandler())
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}
	if cfg.Media != nil {
		r.Get("/media/*", NewMediaHandler(cfg.Media).Serve)
	}

	authenticate := middleware.Authenticate(cfg.TokenValidator)

	authHandler := NewAuthHandler(svc.Auth, logger)
	categoryHandler := NewCategoryHandler(svc.Categories, logger)
	productHandler := NewProductHandler(svc.Products, logger)
	cartHandler := NewCartHandler(svc.Cart, cfg.Location, logger)
	deliveryHandler := NewDeliveryHandler(svc.Delivery, svc.Promos, logger)
	orderHandler := NewOrderHandler(svc.Orders, cfg.Location, logger)
	paymentHandler := NewPaymentHandler(svc.Payments, logger)
	addressHandler := NewAddressHandler(svc.Addresses, logger)
	reviewHandler := NewReviewHandler(svc.Reviews, logger)
	promoHandler := NewPromoHandler(svc.Promos, logger)
	dashboardHandler := NewDashboardHandler(svc.Dashboard, svc.Customers, logger)
	settingsHandler := NewSettingsHandler(svc.Settings, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.AuthLimiter != nil {
					r.Use(cfg.AuthLimiter.Handler)
				}
				r.Use(middleware.ContentType("application/json", "application/x-www-form-urlencoded", "multipart/form-data"))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.ContentTypeJSON)
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/logout", authHandler.Logout)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.ContentTypeJSON)
				r.Use(authenticate)
				r.Get("/me", authHandler.Me)
				r.Put("/me", authHandler.UpdateMe)
				r.Post("/change-password", authHandler.ChangePassword)
			})
		})

		// Catalog (public)
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(catalogCacheSeconds))
			r.Get("/categories", categoryHandler.ListCategories)
			r.Get("/categories/{slug}", categoryHandler.GetCategory)

			r.Get("/products", productHandler.ListProducts)
			r.Get("/products/featured", productHandler.Featured)
			r.Get("/products/bestsellers", productHandler.Bestsellers)
			r.Get("/products/search", productHandler.Search)
			r.Get("/products/{slug}", productHandler.GetProduct)
			r.Get("/products/{slug}/reviews", reviewHandler.ListReviews)
			r.Get("/products/{slug}/reviews/summary", reviewHandler.Summary)
		})

		// Delivery and promo checks (public)
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Get("/delivery/dates", deliveryHandler.Dates)
			r.Get("/delivery/slots", deliveryHandler.Slots)
			r.Post("/delivery/quote", deliveryHandler.Quote)
			r.Post("/promo-codes/validate", deliveryHandler.ValidatePromo)
		})

		// Cart: signed-in user or guest session
		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(middleware.OptionalAuth(cfg.TokenValidator))
			r.Use(middleware.CartSession(cfg.Session))

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateItem)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
			r.Put("/delivery", cartHandler.UpdateDelivery)
			r.Post("/promo", cartHandler.ApplyPromo)
			r.Delete("/promo", cartHandler.RemovePromo)
			r.Post("/merge", cartHandler.MergeCart)
		})

		// Provider callbacks carry their own signature.
		r.Post("/payments/webhook", paymentHandler.Webhook)

		// Authenticated customer endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(authenticate)

			r.Post("/orders", orderHandler.CreateOrder)
			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{orderNumber}", orderHandler.GetOrder)
			r.Post("/orders/{orderNumber}/cancel", orderHandler.CancelOrder)

			r.Post("/payments/intent", paymentHandler.CreateIntent)

			r.Get("/addresses", addressHandler.ListAddresses)
			r.Post("/addresses", addressHandler.CreateAddress)
			r.Get("/addresses/{id}", addressHandler.GetAddress)
			r.Put("/addresses/{id}", addressHandler.UpdateAddress)
			r.Delete("/addresses/{id}", addressHandler.DeleteAddress)
			r.Post("/addresses/{id}/default", addressHandler.SetDefault)

			r.Post("/products/{slug}/reviews", reviewHandler.CreateReview)
			r.Put("/reviews/{id}", reviewHandler.UpdateReview)
			r.Delete("/reviews/{id}", reviewHandler.DeleteReview)
			r.Post("/reviews/{id}/helpful", reviewHandler.MarkHelpful)
		})

		// Back office
		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireRole("Admin access required", domain.RoleAdmin, domain.RoleSuperAdmin))

			// Image uploads are multipart; everything else is JSON.
			r.With(middleware.ContentType("multipart/form-data")).
				Post("/products/{id}/images/upload", productHandler.UploadImage)

			r.Group(func(r chi.Router) {
				r.Use(middleware.ContentTypeJSON)

				r.Get("/products", productHandler.AdminListProducts)
				r.Post("/products", productHandler.CreateProduct)
				r.Get("/products/{id}", productHandler.AdminGetProduct)
				r.Put("/products/{id}", productHandler.UpdateProduct)
				r.Delete("/products/{id}", productHandler.DeleteProduct)
				r.Post("/products/{id}/images", productHandler.AddImage)
				r.Delete("/products/{id}/images/{imageId}", productHandler.DeleteImage)
				r.Put("/products/{id}/stock", productHandler.SetStock)

				r.Get("/categories", categoryHandler.AdminListCategories)
				r.Post("/categories", categoryHandler.CreateCategory)
				r.Put("/categories/{id}", categoryHandler.UpdateCategory)
				r.Delete("/categories/{id}", categoryHandler.DeleteCategory)

				r.Get("/orders", orderHandler.AdminListOrders)
				r.Post("/orders/bulk-status", orderHandler.BulkUpdateStatus)
				r.Get("/orders/{orderNumber}", orderHandler.AdminGetOrder)
				r.Put("/orders/{orderNumber}/status", orderHandler.UpdateStatus)
				r.Put("/orders/{orderNumber}/notes", orderHandler.UpdateNotes)
				r.Post("/orders/{orderNumber}/confirm-payment", paymentHandler.ConfirmPayment)
				r.Post("/orders/{orderNumber}/refund", paymentHandler.Refund)

				r.Get("/promo-codes", promoHandler.ListPromoCodes)
				r.Post("/promo-codes", promoHandler.CreatePromoCode)
				r.Get("/promo-codes/{id}", promoHandler.GetPromoCode)
				r.Put("/promo-codes/{id}", promoHandler.UpdatePromoCode)
				r.Delete("/promo-codes/{id}", promoHandler.DeletePromoCode)

				r.Get("/reviews", reviewHandler.AdminListReviews)
				r.Put("/reviews/{id}/approval", reviewHandler.SetApproval)
				r.Put("/reviews/{id}/featured", reviewHandler.SetFeatured)
				r.Post("/reviews/{id}/response", reviewHandler.Respond)
				r.Delete("/reviews/{id}/response", reviewHandler.RemoveResponse)

				r.Get("/customers", dashboardHandler.ListCustomers)
				r.Get("/customers/{id}", dashboardHandler.GetCustomer)

				r.Get("/dashboard/stats", dashboardHandler.Stats)
				r.Get("/dashboard/widgets", dashboardHandler.Widgets)
				r.Get("/dashboard/analytics", dashboardHandler.Analytics)
				r.Get("/dashboard/low-stock", dashboardHandler.LowStock)
				r.Get("/dashboard/top-products", dashboardHandler.TopProducts)
				r.Post("/dashboard/inventory/bulk-update", dashboardHandler.BulkUpdateStock)

				r.Get("/settings", settingsHandler.GetSettings)
				r.Put("/settings", settingsHandler.UpdateSettings)
				r.Post("/settings/reset", settingsHandler.ResetSettings)

				r.Post("/search/reindex", productHandler.Reindex)
			})
		})
	})

	return r
}
