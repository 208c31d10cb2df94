package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// SubscriptionEvent — сообщение о переходе подписки, публикуемое
// в exchange подписочных событий.
type SubscriptionEvent struct {
	UserUID    string    `json:"user_uid"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	EndDate    time.Time `json:"end_date,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher публикует события в RabbitMQ через выделенный канал.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher создаёт Publisher поверх готового канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish сериализует сообщение в JSON и публикует его с ключом маршрутизации.
func (p *Publisher) Publish(routingKey string, message any) error {
	const op = "rabbitmq.Publish"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
