// Package models содержит доменные структуры маркетплейса:
// пользователя с вложенной подпиской и связанные вспомогательные типы.
package models

import "time"

// Роли пользователей маркетплейса. Админ нигде не подразумевается
// неявно: каждый маршрут перечисляет его отдельно, если нужно.
const (
	RoleFarmer      = "farmer"
	RoleBuyer       = "buyer"
	RoleTransporter = "transporter"
	RoleAdmin       = "admin"
)

// User представляет зарегистрированного пользователя системы.
// Подписка хранится как встроенное значение: она принадлежит
// пользователю и изменяется только через его хранилище.
type User struct {
	UID          string       // Уникальный идентификатор пользователя
	Name         string       // Имя
	Email        string       // Электронная почта (уникальная)
	Phone        string       // Телефон
	PasswordHash string       // Хэш пароля; в проекции для middleware не заполняется
	Role         string       // Роль: farmer, buyer, transporter или admin
	Permissions  []string     // Гранулярные права (информационные, guard-ы их не проверяют)
	IsActive     bool         // Может ли пользователь аутентифицироваться
	IsVerified   bool         // Подтверждена ли почта
	Subscription Subscription // Встроенная подписка
	LastLogin    *time.Time   // Время последнего входа
	CreatedAt    time.Time
}

// IsRegistrableRole сообщает, может ли роль быть выбрана при регистрации.
// Админ создаётся только служебным скриптом.
func IsRegistrableRole(role string) bool {
	switch role {
	case RoleFarmer, RoleBuyer, RoleTransporter:
		return true
	}
	return false
}
