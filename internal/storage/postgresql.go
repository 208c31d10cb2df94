// Package storage реализует хранилище пользователей на основе PostgreSQL.
//
// Подписка хранится как набор колонок внутри строки пользователя —
// это встраиваемое значение, принадлежащее агрегату User. Все переходы
// подписки выполняются одним условным UPDATE (compare-and-set), без
// чтения-изменения-записи: две параллельные активации не могут
// затереть друг друга частично.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для database/sql
)

// Ошибки уровня хранилища, на которые ветвится бизнес-логика.
var (
	// ErrUserNotFound возвращается, когда пользователь не найден по UID или email.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken возвращается при регистрации с занятым email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrNoActiveSubscription возвращается при отмене неактивной подписки.
	ErrNoActiveSubscription = errors.New("no active subscription")
)

// Storage инкапсулирует подключение к базе данных.
type Storage struct {
	DB *sql.DB
}

// New открывает подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{DB: db}, nil
}

// Close закрывает подключение к базе данных.
func (s *Storage) Close() error {
	return s.DB.Close()
}
