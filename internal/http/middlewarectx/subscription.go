package middlewarectx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/models"
)

// subscriptionRequired — тело 403 при отсутствии действующей подписки.
// Снимок подписки и цена плана отдаются сразу, чтобы клиент мог
// показать экран продления без дополнительного запроса.
type subscriptionRequired struct {
	Success            bool               `json:"success"`
	Message            string             `json:"message"`
	Code               string             `json:"code"`
	SubscriptionStatus subscriptionStatus `json:"subscriptionStatus"`
}

type subscriptionStatus struct {
	IsActive bool       `json:"isActive"`
	EndDate  *time.Time `json:"endDate,omitempty"`
	Amount   int64      `json:"amount"`
	Currency string     `json:"currency"`
}

// RequireSubscription возвращает middleware, требующий действующую
// подписку. Админ освобождён от проверки. Предикат вычисляется от
// текущего времени на каждом запросе: отдельного флага "истекла" нет.
func RequireSubscription(log *slog.Logger, amount int64, currency string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				log.Error("user missing in context, authenticate must run first")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Not authorized to access this route"))
				return
			}

			if user.Role == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			if !user.Subscription.HasActive(time.Now()) {
				log.Info("subscription required", slog.String("user_uid", user.UID))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, subscriptionRequired{
					Success: false,
					Message: "Active subscription required to access this feature",
					Code:    response.CodeSubscriptionRequired,
					SubscriptionStatus: subscriptionStatus{
						IsActive: user.Subscription.IsActive,
						EndDate:  user.Subscription.EndDate,
						Amount:   amount,
						Currency: currency,
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
