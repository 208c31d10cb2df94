// Package status отдает текущее состояние подписки пользователя.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/lib/sl"
	subscriptionservice "github.com/agroculture/marketplace/internal/services/subscription"
)

// Service описывает интерфейс сервиса подписок для чтения статуса.
type Service interface {
	Status(ctx context.Context, userUID string, now time.Time) (*subscriptionservice.StatusInfo, error)
}

// Handler обрабатывает запрос статуса подписки.
type Handler struct {
	log     *slog.Logger
	service Service
	// Цена плана из конфигурации, в минорных единицах.
	amount   int64
	currency string
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, amount int64, currency string) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		amount:   amount,
		currency: currency,
	}
}

// ServeHTTP godoc
// @Summary Статус подписки
// @Description Возвращает снимок подписки: активность, даты, остаток дней. Вычисляется от текущего времени без кеширования.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Снимок подписки"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/subscription-status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"
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

	info, err := h.service.Status(r.Context(), user.UID, time.Now())
	if err != nil {
		log.Error("failed to read subscription status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Error fetching subscription status"))
		return
	}

	render.JSON(w, r, map[string]any{
		"success": true,
		"subscription": map[string]any{
			"isActive":        info.HasActive,
			"startDate":       info.Subscription.StartDate,
			"endDate":         info.Subscription.EndDate,
			"lastPaymentDate": info.Subscription.LastPaymentDate,
			"daysRemaining":   info.DaysRemaining,
			"amount":          float64(h.amount) / 100,
			"currency":        h.currency,
		},
	})
}
