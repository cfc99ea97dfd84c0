package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/render"
)

type RouterConfig struct {
	// CSRFKey enables CSRF protection on every unsafe request when set.
	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string
	// Limiter throttles POST /login and POST /forgot-password when set.
	Limiter *IPRateLimiter
}

func (h *Handler) Routes(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(hlog.NewHandler(log.Logger))
	router.Use(hlog.AccessHandler(accessLog))
	router.Use(middleware.Recoverer)
	router.Use(securityHeaders)
	router.Use(h.sessions.Load)
	if cfg.CSRFKey != nil {
		router.Use(csrfProtect(cfg))
	}

	router.NotFound(h.handleNotFound)
	router.MethodNotAllowed(h.handleMethodNotAllowed)

	router.Handle("/static/*", http.StripPrefix("/static", render.Static()))
	router.Get("/health", h.handleHealth)

	limited := func(next http.Handler) http.Handler { return next }
	if cfg.Limiter != nil {
		limited = cfg.Limiter.Middleware
	}

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	router.Get("/login", h.handleLoginPage)
	router.With(limited).Post("/login", h.handleLogin)
	router.Get("/register", h.handleRegisterPage)
	router.Post("/register", h.handleRegister)
	router.Post("/logout", h.handleLogout)
	router.Get("/forgot-password", h.handleForgotPasswordPage)
	router.With(limited).Post("/forgot-password", h.handleForgotPassword)
	router.Get("/reset-password/{token}", h.handleResetPasswordPage)
	router.Post("/reset-password/{token}", h.handleResetPassword)

	router.Get("/menu", h.handleMenu)
	router.Get("/search", h.handleSearch)
	router.Get("/getproducts", h.handleGetProducts)
	router.Get("/getproduct/{id}", h.handleGetProduct)

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Get("/products", h.handleProductsPage)
		r.Get("/profile", h.handleProfilePage)
		r.Post("/profile", h.handleUpdateProfile)

		r.Get("/cart", h.handleCartPage)
		r.Post("/addtocart", h.handleAddToCart)
		r.Post("/updatecart", h.handleUpdateCart)

		r.Get("/orders", h.handleOrdersPage)
		r.Post("/checkout", h.handleCheckout)
		r.Post("/process_payment", h.handleProcessPayment)
		r.Post("/add_card_details", h.handleAddCardDetails)
		r.Get("/get_saved_card", h.handleGetSavedCard)
		r.Post("/add_shipping_info", h.handleAddShippingInfo)
		r.Post("/complete_order", h.handleCompleteOrder)
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)

		r.Get("/admin", h.handleAdminDashboard)
		r.Get("/admin/users", h.handleAdminUsers)
		r.Get("/admin/products", h.handleAdminProducts)
		r.Post("/admin/payments/status", h.handleUpdatePaymentStatus)

		r.Post("/addproduct", h.handleAddProduct)
		r.Post("/updateproduct", h.handleUpdateProduct)
		r.Get("/showcase", h.handleShowcasePage)
		r.Post("/showcase", h.handleAddShowcaseImages)
		r.Post("/remove_image", h.handleRemoveImage)

		r.Get("/sales", h.handleSalesPage)
		r.Get("/getsales", h.handleGetSales)
		r.Get("/getsales/export", h.handleExportSales)
		r.Get("/analytics", h.handleAnalyticsPage)
		r.Get("/analytics/data", h.handleAnalyticsData)
		r.Get("/user_info", h.handleUserInfo)
	})

	return router
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("HTTP request")
}

func csrfProtect(cfg RouterConfig) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.SecureCookies),
		csrf.Path("/"),
		csrf.TrustedOrigins(cfg.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warn().Err(csrf.FailureReason(r)).Str("path", r.URL.Path).Msg("CSRF check failed")
			http.Error(w, "Forbidden - invalid or missing CSRF token", http.StatusForbidden)
		})),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if cfg.SecureCookies {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
