package paywall

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/paywall-access/internal/config"
	accesscheck "github.com/magabrotheeeer/paywall-access/internal/http/handlers/access/check"
	admingrant "github.com/magabrotheeeer/paywall-access/internal/http/handlers/admin/grant"
	adminlogin "github.com/magabrotheeeer/paywall-access/internal/http/handlers/admin/login"
	authlogin "github.com/magabrotheeeer/paywall-access/internal/http/handlers/auth/login"
	authlogout "github.com/magabrotheeeer/paywall-access/internal/http/handlers/auth/logout"
	authsendlink "github.com/magabrotheeeer/paywall-access/internal/http/handlers/auth/sendlink"
	"github.com/magabrotheeeer/paywall-access/internal/http/handlers/health"
	webhookpaypal "github.com/magabrotheeeer/paywall-access/internal/http/handlers/webhook/paypal"
	"github.com/magabrotheeeer/paywall-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/paywall-access/internal/lib/jwt"
	"github.com/magabrotheeeer/paywall-access/internal/rabbitmq"
	paymenteventservice "github.com/magabrotheeeer/paywall-access/internal/services/paymentevent"
	sessionservice "github.com/magabrotheeeer/paywall-access/internal/services/session"
	subscriberservice "github.com/magabrotheeeer/paywall-access/internal/services/subscriber"
	"github.com/magabrotheeeer/paywall-access/internal/tokenvault"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	vault *tokenvault.Vault, publisher *rabbitmq.Publisher,
	sessionService *sessionservice.Service, paymentService *paymenteventservice.Service,
	subscriberService *subscriberservice.Service, jwtMaker jwt.Maker, linkLimiter *rate.Limiter) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, linkLimiter))
			r.Post("/login-link", authsendlink.New(logger, vault, publisher,
				cfg.LoginPageURL, cfg.SiteName, cfg.LoginTokenTTL).ServeHTTP)
		})
		r.Get("/login", authlogin.New(logger, sessionService,
			cfg.RecognitionTTL, cfg.RecognitionTTL).ServeHTTP)
		r.Post("/logout", authlogout.New(logger, sessionService).ServeHTTP)
		r.Get("/access", accesscheck.New(logger, sessionService,
			cfg.RecognitionTTL, cfg.RecognitionTTL).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Webhook endpoint (без аутентификации)
		r.Post("/webhooks/paypal", webhookpaypal.New(logger, paymentService,
			cfg.WebhookSecret).ServeHTTP)

		// Административный API
		r.Post("/admin/login", adminlogin.New(logger, jwtMaker,
			cfg.AdminUsername, cfg.AdminPasswordHash).ServeHTTP)
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Post("/admin/subscribers", admingrant.New(logger, subscriberService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
