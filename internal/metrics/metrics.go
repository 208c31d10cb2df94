// Package metrics определяет счётчики Prometheus платёжного контура.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated — число созданных платёжных ордеров.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_orders_created_total",
		Help: "Number of subscription orders created with the payment gateway.",
	})

	// PaymentsVerified — исходы синхронной проверки платежа.
	PaymentsVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Outcomes of synchronous payment verification.",
	}, []string{"result"})

	// WebhookEvents — принятые события вебхука по типам.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Webhook events received from the payment gateway, by event type.",
	}, []string{"event"})
)
