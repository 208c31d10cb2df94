// Package cancel реализует HTTP-обработчик отмены подписки.
package cancel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/lib/sl"
	"github.com/agroculture/marketplace/internal/models"
	subscriptionservice "github.com/agroculture/marketplace/internal/services/subscription"
)

// Service описывает интерфейс сервиса подписок для отмены.
type Service interface {
	Cancel(ctx context.Context, userUID string, now time.Time) (models.Subscription, error)
}

// Handler обрабатывает запрос отмены подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отмена подписки
// @Description Снимает флаг активности. Доступ сохраняется до конца оплаченного периода.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Подписка отменена"
// @Failure 400 {object} response.ErrorResponse "Нет действующей подписки"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/cancel-subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.cancel"
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

	sub, err := h.service.Cancel(r.Context(), user.UID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, subscriptionservice.ErrNoActiveSubscription) {
			log.Info("no active subscription to cancel", slog.String("user_uid", user.UID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.ErrorWithCode(
				"No active subscription to cancel", response.CodeNoActiveSubscription))
			return
		}
		log.Error("failed to cancel subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Error cancelling subscription"))
		return
	}

	log.Info("subscription cancelled", slog.String("user_uid", user.UID))
	render.JSON(w, r, map[string]any{
		"success": true,
		"message": "Subscription cancelled. Access remains until the end of the paid period.",
		"subscription": map[string]any{
			"isActive": sub.IsActive,
			"endDate":  sub.EndDate,
		},
	})
}
