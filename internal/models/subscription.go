package models

import (
	"math"
	"time"
)

// Subscription описывает состояние подписки пользователя.
//
// Жизненный цикл: создаётся при регистрации с IsActive=false и без дат;
// активируется после подтверждённого платежа на 30 дней; отмена снимает
// только флаг IsActive, даты не трогает. Отдельного состояния "истекла"
// нет: истечение выводится сравнением EndDate с текущим временем
// при каждой проверке.
type Subscription struct {
	IsActive        bool       // Флаг активности; сам по себе доступа не даёт
	StartDate       *time.Time // Начало оплаченного периода
	EndDate         *time.Time // Конец оплаченного периода
	PaymentRef      string     // Идентификатор платежа во внешнем шлюзе
	LastPaymentDate *time.Time // Дата последнего платежа
}

// HasActive сообщает, есть ли у пользователя действующая подписка.
// Единственный источник истины для доступа: IsActive И EndDate > now.
// Никогда не кешируется — вычисляется на каждом вызове.
func (s Subscription) HasActive(now time.Time) bool {
	return s.IsActive && s.EndDate != nil && s.EndDate.After(now)
}

// DaysRemaining возвращает число оставшихся дней подписки,
// округлённое вверх и не меньше нуля.
func (s Subscription) DaysRemaining(now time.Time) int {
	if s.EndDate == nil {
		return 0
	}
	days := int(math.Ceil(s.EndDate.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}
