// Package webhook принимает асинхронные уведомления платёжного шлюза.
//
// Подлинность запроса проверяется HMAC-подписью над сырым телом на
// отдельном секрете вебхука — это другой секрет, чем у синхронной
// проверки, и другая подписываемая строка. Тело разбирается только
// после успешной проверки подписи. После валидной подписи ответ
// всегда 200: отказ спровоцировал бы шторм повторных доставок,
// а обработка идемпотентна.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/lib/sl"
	paymentservice "github.com/agroculture/marketplace/internal/services/payment"
)

// SignatureHeader — заголовок с подписью шлюза.
const SignatureHeader = "X-Razorpay-Signature"

// Service описывает интерфейс обработки событий вебхука.
type Service interface {
	ProcessWebhookEvent(ctx context.Context, event *paymentservice.WebhookEvent) error
}

// Handler обрабатывает HTTP-запросы вебхука шлюза.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  []byte
}

// New создает новый Handler. Секрет вебхука настраивается отдельно
// от секрета ключа API.
func New(log *slog.Logger, service Service, webhookSecret string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  []byte(webhookSecret),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if !h.signatureValid(body, r.Header.Get(SignatureHeader)) {
		log.Error("webhook signature mismatch")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("Invalid webhook signature"))
		return
	}

	// Подпись сошлась: дальше только подтверждаем. Ошибки разбора и
	// обработки логируются, но шлюзу отвечаем 200.
	var event paymentservice.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to parse webhook body", sl.Err(err))
		render.JSON(w, r, response.OK("webhook processed"))
		return
	}

	if err := h.service.ProcessWebhookEvent(r.Context(), &event); err != nil {
		log.Error("failed to process webhook event",
			slog.String("event", event.Event), sl.Err(err))
	}
	render.JSON(w, r, response.OK("webhook processed"))
}

func (h *Handler) signatureValid(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
