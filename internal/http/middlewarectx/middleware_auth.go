// Package middlewarectx содержит HTTP middleware контроля доступа.
//
// Guard-ы компонуются в фиксированном порядке: аутентификация →
// фильтр ролей → фильтр подписки. Каждый guard — чистый предикат над
// уже разрешённым пользователем; записей в хранилище они не делают.
// Владение ресурсом (фермер — товаром, покупатель — заказом)
// проверяется бизнес-обработчиком, не этим пакетом.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/models"
	"github.com/agroculture/marketplace/internal/services/auth"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserKey — ключ для аутентифицированного пользователя в контексте.
const UserKey Key = "user"

// Service описывает интерфейс сервиса аутентификации запроса.
type Service interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// UserFromContext достаёт аутентифицированного пользователя из контекста.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok
}

// Authenticate возвращает middleware, который проверяет bearer-токен
// в заголовке Authorization и кладёт пользователя в контекст.
//
// Отсутствующий, невалидный и истёкший токен, как и несуществующий
// пользователь, дают одинаковый 401 без деталей. Деактивированный
// аккаунт получает отдельный код ACCOUNT_DEACTIVATED.
func Authenticate(service Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authenticate"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Not authorized to access this route"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			user, err := service.Authenticate(r.Context(), tokenStr)
			if err != nil {
				if errors.Is(err, auth.ErrAccountDeactivated) {
					log.Error("deactivated account attempted access")
					w.WriteHeader(http.StatusUnauthorized)
					render.JSON(w, r, response.ErrorWithCode(
						"Account has been deactivated", response.CodeAccountDeactivated))
					return
				}
				log.Error("authentication failed")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Not authorized to access this route"))
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
