package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/agroculture/marketplace/internal/migrations"
	"github.com/agroculture/marketplace/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя с ролью и возвращает его UID
func (f *TestDataFactory) CreateUser(t *testing.T, name, email, role string) string {
	uid, err := f.storage.CreateUser(context.Background(), models.User{
		UID:          uuid.New().String(),
		Name:         name,
		Email:        email,
		Phone:        "9999999999",
		PasswordHash: "hashedpassword",
		Role:         role,
		IsActive:     true,
	})
	require.NoError(t, err)
	return uid
}

// CreateUserWithSubscription создает пользователя с заданным состоянием подписки
func (f *TestDataFactory) CreateUserWithSubscription(t *testing.T, name, email, role string,
	subIsActive bool, start, end time.Time, paymentRef string) string {
	uid := f.CreateUser(t, name, email, role)
	_, err := f.storage.DB.Exec(`UPDATE users
		SET sub_is_active = $2, sub_start_date = $3, sub_end_date = $4,
		    sub_payment_ref = $5, sub_last_payment_date = $3
		WHERE uid = $1`,
		uid, subIsActive, start, end, paymentRef)
	require.NoError(t, err)
	return uid
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
// и применяет к ней миграции приложения.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute)),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	require.NoError(t, migrations.Run(storage.DB, "../../migrations"), "failed to run migrations")

	cleanup := func() {
		if storage != nil {
			_ = storage.Close()
		}
		_ = pgContainer.Terminate(ctx)
	}

	return storage, cleanup
}
