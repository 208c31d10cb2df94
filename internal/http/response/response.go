// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Контракт ответа:
// success всегда присутствует, message — человекочитаемый текст,
// code — машиночитаемый признак для ветвления на клиенте (присутствует
// только там, где клиенту нужно ветвиться).
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Машиночитаемые коды ошибок авторизации и подписки.
const (
	CodeAccountDeactivated   = "ACCOUNT_DEACTIVATED"
	CodeRoleNotAllowed       = "ROLE_NOT_ALLOWED"
	CodeSubscriptionRequired = "SUBSCRIPTION_REQUIRED"
	CodeAlreadySubscribed    = "ALREADY_SUBSCRIBED"
	CodeNoActiveSubscription = "NO_ACTIVE_SUBSCRIPTION"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"invalid request body"`
	Code    string `json:"code,omitempty" example:"SUBSCRIPTION_REQUIRED"`
}

// OK возвращает успешный Response с сообщением.
func OK(msg string) Response {
	return Response{
		Success: true,
		Message: msg,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Success: false,
		Message: msg,
	}
}

// ErrorWithCode возвращает Response с ошибкой и машиночитаемым кодом.
func ErrorWithCode(msg, code string) Response {
	return Response{
		Success: false,
		Message: msg,
		Code:    code,
	}
}

// ValidationError формирует Response на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too long", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s has an unsupported value", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Success: false,
		Message: strings.Join(errsMsgs, ", "),
	}
}
