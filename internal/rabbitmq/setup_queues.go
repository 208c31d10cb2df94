package rabbitmq

// Exchange — exchange для событий жизненного цикла подписок.
const Exchange = "subscription.events"

// Ключи маршрутизации подписочных событий.
const (
	RoutingKeyActivated = "subscription.activated"
	RoutingKeyCancelled = "subscription.cancelled"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetSubscriptionQueues возвращает очереди воркеров уведомлений.
func GetSubscriptionQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "subscriptions.activated", RoutingKey: RoutingKeyActivated},
		{QueueName: "subscriptions.cancelled", RoutingKey: RoutingKeyCancelled},
	}
}
