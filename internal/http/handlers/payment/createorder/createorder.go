// Package createorder реализует HTTP-обработчик создания платёжного
// ордера подписки.
package createorder

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/lib/sl"
	"github.com/agroculture/marketplace/internal/models"
	paymentservice "github.com/agroculture/marketplace/internal/services/payment"
)

// Service описывает интерфейс платёжного сервиса для создания ордера.
type Service interface {
	CreateOrder(ctx context.Context, user *models.User) (*paymentservice.OrderDescriptor, error)
}

// Handler обрабатывает HTTP-запросы создания ордера.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Создание ордера на оплату подписки
// @Description Создает ордер в платёжном шлюзе. При действующей подписке возвращает ошибку ALREADY_SUBSCRIBED.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Ордер и данные плательщика"
// @Failure 400 {object} response.ErrorResponse "Подписка уже активна"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /payments/create-subscription-order [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.createorder"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user missing in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("Not authorized to access this route"))
		return
	}

	order, err := h.service.CreateOrder(r.Context(), user)
	if err != nil {
		if errors.Is(err, paymentservice.ErrAlreadySubscribed) {
			log.Info("user already subscribed", slog.String("user_uid", user.UID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, map[string]any{
				"success": false,
				"message": "You already have an active subscription",
				"code":    response.CodeAlreadySubscribed,
				"subscription": map[string]any{
					"isActive": user.Subscription.IsActive,
					"endDate":  user.Subscription.EndDate,
				},
			})
			return
		}
		log.Error("failed to create order", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Error creating subscription order"))
		return
	}

	log.Info("order created",
		slog.String("user_uid", user.UID),
		slog.String("order_id", order.OrderID))
	render.JSON(w, r, map[string]any{
		"success": true,
		"order": map[string]any{
			"id":       order.OrderID,
			"amount":   order.Amount,
			"currency": order.Currency,
			"key":      order.KeyID,
		},
		"user": map[string]any{
			"name":  user.Name,
			"email": user.Email,
			"phone": user.Phone,
		},
	})
}
