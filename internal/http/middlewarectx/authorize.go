package middlewarectx

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/response"
)

// Authorize возвращает middleware, пропускающий только перечисленные роли.
// Админ не добавляется неявно: маршрут, доступный админу, перечисляет
// models.RoleAdmin сам.
func Authorize(log *slog.Logger, allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				log.Error("user missing in context, authenticate must run first")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Not authorized to access this route"))
				return
			}

			if _, ok := allowed[user.Role]; !ok {
				log.Error("role not allowed", slog.String("role", user.Role))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.ErrorWithCode(
					fmt.Sprintf("User role %s is not authorized to access this route", user.Role),
					response.CodeRoleNotAllowed))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
