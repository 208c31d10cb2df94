// Package subscription реализует машину состояний подписки пользователя.
//
// Состояния: никогда не подписан → активна → отменена (льготный период)
// или истекла → активна (продление). Истечение не хранится отдельным
// флагом — оно выводится из EndDate при каждой проверке.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agroculture/marketplace/internal/lib/sl"
	"github.com/agroculture/marketplace/internal/models"
	"github.com/agroculture/marketplace/internal/rabbitmq"
	"github.com/agroculture/marketplace/internal/storage"
)

// Окно подписки, открываемое одним подтверждённым платежом.
const Window = 30 * 24 * time.Hour

// ErrNoActiveSubscription возвращается при отмене неактивной подписки.
var ErrNoActiveSubscription = errors.New("no active subscription to cancel")

// UserRepository определяет методы хранилища, нужные машине состояний.
// Оба перехода выполняются атомарными условными UPDATE-ами.
type UserRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	ActivateSubscription(ctx context.Context, userUID, paymentRef string, start, end time.Time) (models.Subscription, error)
	CancelSubscription(ctx context.Context, userUID string, now time.Time) (models.Subscription, error)
}

// Publisher публикует события жизненного цикла подписки.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// StatusInfo — снимок состояния подписки на момент вызова.
type StatusInfo struct {
	Subscription  models.Subscription
	HasActive     bool
	DaysRemaining int
}

// Service реализует переходы подписки поверх хранилища пользователей.
type Service struct {
	repo      UserRepository
	publisher Publisher
	log       *slog.Logger
}

// New создает новый Service.
func New(repo UserRepository, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Activate открывает пользователю окно подписки в 30 дней от now,
// запоминая идентификатор платежа. Допустим из любого состояния:
// повторная активация перезаписывает окно, остаток не суммируется —
// это принятое упрощение, а не ошибка.
func (s *Service) Activate(ctx context.Context, userUID, paymentRef string, now time.Time) (models.Subscription, error) {
	const op = "subscription.Activate"

	sub, err := s.repo.ActivateSubscription(ctx, userUID, paymentRef, now, now.Add(Window))
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription activated",
		slog.String("user_uid", userUID),
		slog.Time("end_date", *sub.EndDate))
	return sub, nil
}

// Cancel снимает флаг активности, не трогая EndDate. Отмена неактивной
// подписки — ошибка состояния, повторная отмена тоже.
func (s *Service) Cancel(ctx context.Context, userUID string, now time.Time) (models.Subscription, error) {
	const op = "subscription.Cancel"

	sub, err := s.repo.CancelSubscription(ctx, userUID, now)
	if err != nil {
		if errors.Is(err, storage.ErrNoActiveSubscription) {
			return models.Subscription{}, fmt.Errorf("%s: %w", op, ErrNoActiveSubscription)
		}
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.publisher != nil {
		event := rabbitmq.SubscriptionEvent{
			UserUID:    userUID,
			OccurredAt: now,
		}
		if sub.EndDate != nil {
			event.EndDate = *sub.EndDate
		}
		if err := s.publisher.Publish(rabbitmq.RoutingKeyCancelled, event); err != nil {
			s.log.Warn("failed to publish cancellation event", sl.Err(err))
		}
	}
	return sub, nil
}

// Status возвращает снимок подписки. Активность и остаток дней
// вычисляются от переданного now, без кеширования.
func (s *Service) Status(ctx context.Context, userUID string, now time.Time) (*StatusInfo, error) {
	const op = "subscription.Status"

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &StatusInfo{
		Subscription:  user.Subscription,
		HasActive:     user.Subscription.HasActive(now),
		DaysRemaining: user.Subscription.DaysRemaining(now),
	}, nil
}
