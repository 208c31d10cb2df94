// Package history отдает историю платежей пользователя.
package history

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/models"
	paymentservice "github.com/agroculture/marketplace/internal/services/payment"
)

// Service описывает интерфейс платёжного сервиса для чтения истории.
type Service interface {
	History(user *models.User) []paymentservice.HistoryEntry
}

// Handler обрабатывает запрос истории платежей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.history"
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

	render.JSON(w, r, map[string]any{
		"success":  true,
		"payments": h.service.History(user),
	})
}
