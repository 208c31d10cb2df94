// Package verify реализует HTTP-обработчик синхронной проверки платежа.
//
// Клиент присылает идентификаторы ордера и платежа вместе с подписью
// шлюза. Криптографическая проверка и активация подписки выполняются
// платёжным сервисом; обработчик только разбирает запрос и переводит
// ошибки доменного слоя в HTTP-статусы.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/lib/sl"
	"github.com/agroculture/marketplace/internal/models"
	paymentservice "github.com/agroculture/marketplace/internal/services/payment"
)

// Request — структура входных данных проверки платежа. Имена полей
// повторяют формат callback-а платёжного шлюза.
type Request struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Service описывает интерфейс платёжного сервиса для проверки платежа.
type Service interface {
	VerifyPayment(ctx context.Context, user *models.User, orderID, paymentID, signature string) (*paymentservice.VerifyResult, error)
}

// Handler обрабатывает HTTP-запросы проверки платежа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверка платежа и активация подписки
// @Description Проверяет HMAC-подпись платежа, статус в шлюзе и открывает окно подписки на 30 дней.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Идентификаторы и подпись платежа"
// @Success 200 {object} map[string]any "Подписка активирована"
// @Failure 400 {object} response.ErrorResponse "Неполные данные, неверная подпись или незахваченный платёж"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /payments/verify-subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.verify"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("Missing payment verification details"))
		return
	}

	result, err := h.service.VerifyPayment(r.Context(), user, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, paymentservice.ErrVerificationFailed):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Payment verification failed"))
		case errors.Is(err, paymentservice.ErrPaymentNotCaptured):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("Payment not captured"))
		default:
			log.Error("failed to verify payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Error verifying payment"))
		}
		return
	}

	log.Info("payment verified, subscription activated",
		slog.String("user_uid", user.UID))
	render.JSON(w, r, map[string]any{
		"success": true,
		"message": "Subscription activated successfully",
		"subscription": map[string]any{
			"isActive":  result.Subscription.IsActive,
			"startDate": result.Subscription.StartDate,
			"endDate":   result.Subscription.EndDate,
			"amount":    result.Amount,
			"currency":  result.Currency,
		},
	})
}
