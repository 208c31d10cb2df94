// Package me отдает профиль аутентифицированного пользователя.
package me

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/http/response"
)

// Handler обрабатывает запрос профиля текущего пользователя.
type Handler struct {
	log *slog.Logger
}

// New создает новый Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user missing in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("Not authorized to access this route"))
		return
	}

	now := time.Now()
	render.JSON(w, r, map[string]any{
		"success": true,
		"user": map[string]any{
			"uid":         user.UID,
			"name":        user.Name,
			"email":       user.Email,
			"phone":       user.Phone,
			"role":        user.Role,
			"permissions": user.Permissions,
			"isVerified":  user.IsVerified,
			"subscription": map[string]any{
				"isActive":      user.Subscription.HasActive(now),
				"endDate":       user.Subscription.EndDate,
				"daysRemaining": user.Subscription.DaysRemaining(now),
			},
			"lastLogin": user.LastLogin,
			"createdAt": user.CreatedAt,
		},
	})
}
