// Package payment реализует платёжный контур подписки: создание ордера
// в шлюзе, синхронную проверку платежа по HMAC-подписи и обработку
// асинхронных событий вебхука.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agroculture/marketplace/internal/gateway/razorpay"
	"github.com/agroculture/marketplace/internal/lib/sl"
	"github.com/agroculture/marketplace/internal/metrics"
	"github.com/agroculture/marketplace/internal/models"
	"github.com/agroculture/marketplace/internal/rabbitmq"
)

// Ошибки платёжного контура.
var (
	// ErrAlreadySubscribed — попытка купить подписку при действующей.
	ErrAlreadySubscribed = errors.New("user already has an active subscription")
	// ErrVerificationFailed — подпись платежа не сошлась. Событие
	// безопасности: ожидаемая подпись наружу не отдаётся.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrPaymentNotCaptured — платёж существует, но шлюз его не списал.
	ErrPaymentNotCaptured = errors.New("payment not captured")
)

// Gateway описывает операции внешнего платёжного шлюза.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
}

// Subscriptions описывает переход активации машины состояний подписки.
type Subscriptions interface {
	Activate(ctx context.Context, userUID, paymentRef string, now time.Time) (models.Subscription, error)
}

// UserProvider возвращает пользователя по UID.
type UserProvider interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Cache хранит незавершённые ордера: повторный запрос в течение TTL
// получает тот же ордер вместо нового обращения к шлюзу.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Publisher публикует события жизненного цикла подписки.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Config — настройки платёжного контура. KeySecret подписывает
// синхронную проверку; секрет вебхука сюда не входит и живёт
// в обработчике вебхука отдельным значением.
type Config struct {
	KeyID           string
	KeySecret       string
	Amount          int64 // в минорных единицах
	Currency        string
	PendingOrderTTL time.Duration
}

// OrderDescriptor — данные ордера, достаточные клиенту для открытия
// платёжной формы.
type OrderDescriptor struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// VerifyResult — итог успешной проверки платежа.
type VerifyResult struct {
	Subscription models.Subscription
	Amount       float64 // в мажорных единицах
	Currency     string
}

// HistoryEntry — запись истории платежей пользователя.
type HistoryEntry struct {
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	PaymentID   string    `json:"payment_id"`
}

// Service реализует платёжный контур поверх шлюза и машины состояний.
type Service struct {
	gateway   Gateway
	subs      Subscriptions
	users     UserProvider
	cache     Cache
	publisher Publisher
	cfg       Config
	log       *slog.Logger
}

// New создает новый Service. Шлюз передаётся снаружи, что позволяет
// подменять его фейком в тестах.
func New(gateway Gateway, subs Subscriptions, users UserProvider, cache Cache, publisher Publisher, cfg Config, log *slog.Logger) *Service {
	return &Service{
		gateway:   gateway,
		subs:      subs,
		users:     users,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// CreateOrder создает платёжный ордер для пользователя.
//
// При действующей подписке возвращает ErrAlreadySubscribed — двойная
// оплата одного периода не допускается. Состояние подписки операция
// не меняет. Незавершённый ордер кешируется: повторный вызов в
// течение TTL возвращает его же, а не создаёт второй ордер в шлюзе.
func (s *Service) CreateOrder(ctx context.Context, user *models.User) (*OrderDescriptor, error) {
	const op = "payment.CreateOrder"

	now := time.Now().UTC()
	if user.Subscription.HasActive(now) {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadySubscribed)
	}

	cacheKey := pendingOrderKey(user.UID)
	var pending OrderDescriptor
	found, err := s.cache.Get(cacheKey, &pending)
	if err != nil {
		s.log.Warn("failed to read pending order from cache", sl.Err(err))
	}
	if found {
		s.log.Info("returning pending order", slog.String("order_id", pending.OrderID))
		return &pending, nil
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:         s.cfg.Amount,
		Currency:       s.cfg.Currency,
		Receipt:        fmt.Sprintf("sub_%s_%d", user.UID, now.UnixMilli()),
		PaymentCapture: 1,
		Notes: map[string]string{
			"user_id":           user.UID,
			"subscription_type": "monthly",
			"plan_name":         "AgroMarket Basic",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	descriptor := &OrderDescriptor{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.cfg.KeyID,
	}
	if err := s.cache.Set(cacheKey, descriptor, s.cfg.PendingOrderTTL); err != nil {
		s.log.Warn("failed to cache pending order", sl.Err(err))
	}

	metrics.OrdersCreated.Inc()
	s.log.Info("subscription order created", slog.String("order_id", order.ID))
	return descriptor, nil
}

// VerifyPayment проверяет подпись платежа и активирует подписку.
//
// Подпись — HMAC-SHA256 в hex над строкой "orderID|paymentID" на
// секрете ключа. Это единственная криптографическая граница доверия
// синхронного пути. Дальше платёж перечитывается из шлюза: доступ
// открывает только статус captured. Повторный вызов с теми же
// входными данными безопасен — уже проверенный платёж активирует
// подписку заново со свежим окном (без суммирования).
func (s *Service) VerifyPayment(ctx context.Context, user *models.User, orderID, paymentID, signature string) (*VerifyResult, error) {
	const op = "payment.VerifyPayment"

	if !s.signatureValid(orderID, paymentID, signature) {
		metrics.PaymentsVerified.WithLabelValues("signature_mismatch").Inc()
		s.log.Error("payment signature mismatch",
			slog.String("order_id", orderID),
			sl.Secret("payment_id", paymentID))
		return nil, fmt.Errorf("%s: %w", op, ErrVerificationFailed)
	}

	gwPayment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		metrics.PaymentsVerified.WithLabelValues("gateway_error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if gwPayment.Status != razorpay.PaymentStatusCaptured {
		metrics.PaymentsVerified.WithLabelValues("not_captured").Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotCaptured)
	}

	now := time.Now().UTC()
	sub, err := s.subs.Activate(ctx, user.UID, paymentID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Invalidate(pendingOrderKey(user.UID)); err != nil {
		s.log.Warn("failed to invalidate pending order", sl.Err(err))
	}
	s.publishActivated(user.UID, paymentID, sub, now)

	metrics.PaymentsVerified.WithLabelValues("ok").Inc()
	return &VerifyResult{
		Subscription: sub,
		Amount:       float64(gwPayment.Amount) / 100,
		Currency:     gwPayment.Currency,
	}, nil
}

// History возвращает историю платежей пользователя. Отдельной коллекции
// платежей нет: единственная запись строится по полям подписки.
func (s *Service) History(user *models.User) []HistoryEntry {
	history := make([]HistoryEntry, 0, 1)
	if user.Subscription.LastPaymentDate != nil {
		history = append(history, HistoryEntry{
			Date:        *user.Subscription.LastPaymentDate,
			Amount:      float64(s.cfg.Amount) / 100,
			Currency:    s.cfg.Currency,
			Description: "Monthly Subscription",
			Status:      "completed",
			PaymentID:   user.Subscription.PaymentRef,
		})
	}
	return history
}

func (s *Service) signatureValid(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.cfg.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *Service) publishActivated(userUID, paymentRef string, sub models.Subscription, now time.Time) {
	if s.publisher == nil {
		return
	}
	event := rabbitmq.SubscriptionEvent{
		UserUID:    userUID,
		PaymentRef: paymentRef,
		OccurredAt: now,
	}
	if sub.EndDate != nil {
		event.EndDate = *sub.EndDate
	}
	if err := s.publisher.Publish(rabbitmq.RoutingKeyActivated, event); err != nil {
		s.log.Warn("failed to publish activation event", sl.Err(err))
	}
}

func pendingOrderKey(userUID string) string {
	return "payments:pending:" + userUID
}
