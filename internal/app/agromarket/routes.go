// Package agromarket предоставляет маршруты для основного приложения.
package agromarket

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/agroculture/marketplace/internal/config"
	"github.com/agroculture/marketplace/internal/http/handlers/auth/login"
	"github.com/agroculture/marketplace/internal/http/handlers/auth/me"
	"github.com/agroculture/marketplace/internal/http/handlers/auth/register"
	"github.com/agroculture/marketplace/internal/http/handlers/health"
	"github.com/agroculture/marketplace/internal/http/handlers/payment/cancel"
	"github.com/agroculture/marketplace/internal/http/handlers/payment/createorder"
	"github.com/agroculture/marketplace/internal/http/handlers/payment/history"
	"github.com/agroculture/marketplace/internal/http/handlers/payment/status"
	"github.com/agroculture/marketplace/internal/http/handlers/payment/verify"
	"github.com/agroculture/marketplace/internal/http/handlers/payment/webhook"
	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/models"
	authservice "github.com/agroculture/marketplace/internal/services/auth"
	paymentservice "github.com/agroculture/marketplace/internal/services/payment"
	subscriptionservice "github.com/agroculture/marketplace/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
//
// Бизнес-маршруты защищаются цепочкой guard-ов в фиксированном порядке:
// Authenticate → Authorize → RequireSubscription. Платёжные маршруты
// стоят за одной аутентификацией — иначе пользователь без подписки
// не смог бы её купить. Вебхук шлюза открыт: его подлинность
// подтверждает HMAC-подпись, а не JWT.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authService *authservice.AuthService,
	subscriptionService *subscriptionservice.Service,
	paymentService *paymentservice.Service,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	amount := cfg.Payments.SubscriptionAmount
	currency := cfg.Payments.SubscriptionCurrency

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Webhook endpoint (без аутентификации)
		r.Post("/payments/webhook", webhook.New(logger, paymentService, cfg.Payments.WebhookSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.Authenticate(authService, logger))
			r.Use(middlewarectx.RateLimit(logger))

			r.Get("/me", me.New(logger).ServeHTTP)

			r.Post("/payments/create-subscription-order", createorder.New(logger, paymentService).ServeHTTP)
			r.Post("/payments/verify-subscription", verify.New(logger, paymentService).ServeHTTP)
			r.Get("/payments/subscription-status", status.New(logger, subscriptionService, amount, currency).ServeHTTP)
			r.Post("/payments/cancel-subscription", cancel.New(logger, subscriptionService).ServeHTTP)
			r.Get("/payments/history", history.New(logger, paymentService).ServeHTTP)

			// Бизнес-разделы маркетплейса. Сами обработчики живут в
			// отдельных сервисах, здесь закрепляется контроль доступа.
			r.Route("/products", func(r chi.Router) {
				r.Use(middlewarectx.Authorize(logger, models.RoleFarmer, models.RoleAdmin))
				r.Use(middlewarectx.RequireSubscription(logger, amount, currency))
				r.Post("/", notWired(logger))
				r.Put("/{id}", notWired(logger))
				r.Delete("/{id}", notWired(logger))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Use(middlewarectx.Authorize(logger, models.RoleBuyer, models.RoleFarmer, models.RoleAdmin))
				r.Use(middlewarectx.RequireSubscription(logger, amount, currency))
				r.Post("/", notWired(logger))
				r.Get("/", notWired(logger))
			})
			r.Route("/transport", func(r chi.Router) {
				r.Use(middlewarectx.Authorize(logger, models.RoleTransporter, models.RoleAdmin))
				r.Use(middlewarectx.RequireSubscription(logger, amount, currency))
				r.Post("/requests", notWired(logger))
				r.Get("/requests", notWired(logger))
			})
		})
	})

	r.Get("/health", health.New().ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

// notWired закрывает маршрут раздела, обслуживаемого внешним сервисом
// маркетплейса. Запрос, прошедший все guard-ы, получает 501.
func notWired(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Info("request passed access control for external section",
			slog.String("path", r.URL.Path))
		w.WriteHeader(http.StatusNotImplemented)
		render.JSON(w, r, map[string]any{
			"success": false,
			"message": "This section is served by another service",
		})
	}
}
