package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/agroculture/marketplace/internal/lib/sl"
	"github.com/agroculture/marketplace/internal/metrics"
)

// Типы событий вебхука, которые сервис распознаёт. Неизвестные типы
// логируются и подтверждаются без ошибки: шлюз добавляет новые события,
// и отказ в ответе привёл бы к шторму повторных доставок.
const (
	EventPaymentCaptured     = "payment.captured"
	EventPaymentFailed       = "payment.failed"
	EventSubscriptionCharged = "subscription.charged"
)

// WebhookEvent — разобранное тело вебхука шлюза.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PaymentEntity — платёж внутри события вебхука.
type PaymentEntity struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Status   string            `json:"status"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Notes    map[string]string `json:"notes"` // user_id и прочие метаданные ордера
}

// ProcessWebhookEvent применяет событие вебхука к состоянию подписки.
//
// Шлюз гарантирует доставку хотя бы один раз, поэтому обработка
// идемпотентна: событие, чей платёж уже записан в действующую подписку,
// ничего не меняет. Порядок относительно синхронной проверки не важен —
// оба пути сходятся в одном атомарном UPDATE.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	const op = "payment.ProcessWebhookEvent"
	log := s.log.With(slog.String("op", op), slog.String("event", event.Event))

	metrics.WebhookEvents.WithLabelValues(event.Event).Inc()

	switch event.Event {
	case EventPaymentCaptured, EventSubscriptionCharged:
		return s.applyCapturedPayment(ctx, log, event.Payload.Payment.Entity)
	case EventPaymentFailed:
		log.Info("payment failed",
			sl.Secret("payment_id", event.Payload.Payment.Entity.ID))
		return nil
	default:
		log.Info("unhandled webhook event")
		return nil
	}
}

func (s *Service) applyCapturedPayment(ctx context.Context, log *slog.Logger, entity PaymentEntity) error {
	userUID := entity.Notes["user_id"]
	if userUID == "" {
		log.Warn("webhook payment without user_id note",
			sl.Secret("payment_id", entity.ID))
		return nil
	}

	now := time.Now().UTC()
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return err
	}

	// Повторная доставка того же платежа — no-op.
	if user.Subscription.PaymentRef == entity.ID && user.Subscription.HasActive(now) {
		log.Info("payment already applied, skipping",
			sl.Secret("payment_id", entity.ID))
		return nil
	}

	sub, err := s.subs.Activate(ctx, userUID, entity.ID, now)
	if err != nil {
		return err
	}
	if err := s.cache.Invalidate(pendingOrderKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate pending order", sl.Err(err))
	}
	s.publishActivated(userUID, entity.ID, sub, now)

	log.Info("subscription activated from webhook",
		slog.String("user_uid", userUID))
	return nil
}
