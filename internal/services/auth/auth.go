// Package auth содержит логику регистрации, входа и аутентификации запросов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agroculture/marketplace/internal/lib/jwt"
	"github.com/agroculture/marketplace/internal/lib/password"
	"github.com/agroculture/marketplace/internal/lib/sl"
	"github.com/agroculture/marketplace/internal/models"
	"github.com/agroculture/marketplace/internal/storage"
)

// Ошибки аутентификации. ErrUnauthorized намеренно общая: наружу не
// различаются невалидная подпись, истёкший токен и несуществующий
// пользователь, чтобы не давать перебирать аккаунты.
var (
	ErrUnauthorized       = errors.New("not authorized")
	ErrAccountDeactivated = errors.New("account has been deactivated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoleNotRegistrable = errors.New("role is not available for registration")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его UID.
	CreateUser(ctx context.Context, user models.User) (string, error)
	// GetUser возвращает пользователя по UID без хэша пароля.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// GetUserByEmail возвращает пользователя по email вместе с хэшем пароля.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateLastLogin обновляет отметку последнего входа.
	UpdateLastLogin(ctx context.Context, userUID string, now time.Time) error
}

// AuthService отвечает за регистрацию, вход и проверку JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register создает нового пользователя с хэшированием пароля.
// Подписка создаётся неявно в выключенном состоянии. Роль admin
// через регистрацию недоступна.
func (s *AuthService) Register(ctx context.Context, name, email, phone, rawPassword, role string) (string, error) {
	const op = "auth.Register"

	if !models.IsRegistrableRole(role) {
		return "", fmt.Errorf("%s: %w", op, ErrRoleNotRegistrable)
	}
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		UID:          uuid.New().String(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
	}
	return s.users.CreateUser(ctx, user)
}

// Login проверяет пароль пользователя и генерирует JWT.
// Деактивированный аккаунт войти не может.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("%s: %w", op, ErrAccountDeactivated)
	}

	token, err := s.jwtMaker.GenerateToken(user.UID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.UID, time.Now().UTC()); err != nil {
		s.log.Warn("failed to update last login", sl.Err(err))
	}
	user.PasswordHash = ""
	return token, user, nil
}

// Authenticate проверяет bearer-токен и возвращает пользователя.
//
// Любая проблема с токеном или отсутствие пользователя сводятся к
// ErrUnauthorized; деактивированный аккаунт возвращает отдельную
// причину ErrAccountDeactivated. Операция только читает хранилище.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "auth.Authenticate"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	user, err := s.users.GetUser(ctx, claims.UserUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrAccountDeactivated)
	}
	return user, nil
}
