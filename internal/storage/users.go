package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agroculture/marketplace/internal/models"
)

// CreateUser сохраняет нового пользователя и возвращает его UID.
// Подписка создаётся неявно: колонки подписки получают значения по
// умолчанию (неактивна, без дат).
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	permissions, err := json.Marshal(user.Permissions)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var newUID string
	query := `INSERT INTO users (uid, name, email, phone, password_hash, role, permissions,
			      is_active, is_verified)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.UID, user.Name, user.Email, user.Phone, user.PasswordHash, user.Role,
		permissions, user.IsActive, user.IsVerified).Scan(&newUID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUser возвращает пользователя по его UID.
// Хэш пароля в проекцию не включается: результат используется
// middleware-ом аутентификации и попадает в контекст запроса.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, email, phone, role, permissions, is_active, is_verified,
			      sub_is_active, sub_start_date, sub_end_date, sub_payment_ref,
			      sub_last_payment_date, last_login, created_at
			  FROM users
			  WHERE uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email вместе с хэшем пароля.
// Используется только при логине.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, email, phone, role, permissions, is_active, is_verified,
			      sub_is_active, sub_start_date, sub_end_date, sub_payment_ref,
			      sub_last_payment_date, last_login, created_at, password_hash
			  FROM users
			  WHERE email = $1`
	u := &models.User{}
	var permissions []byte
	var startDate, endDate, lastPayment, lastLogin sql.NullTime
	var paymentRef sql.NullString
	if err := s.DB.QueryRowContext(ctx, query, email).Scan(
		&u.UID, &u.Name, &u.Email, &u.Phone, &u.Role, &permissions,
		&u.IsActive, &u.IsVerified,
		&u.Subscription.IsActive, &startDate, &endDate, &paymentRef,
		&lastPayment, &lastLogin, &u.CreatedAt, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fillOptional(u, permissions, startDate, endDate, lastPayment, lastLogin, paymentRef)
	return u, nil
}

// ActivateSubscription активирует подписку пользователя одним атомарным
// UPDATE и возвращает её новое состояние. Повторная активация
// перезаписывает окно целиком — остаток времени не суммируется.
func (s *Storage) ActivateSubscription(ctx context.Context, userUID, paymentRef string, start, end time.Time) (models.Subscription, error) {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return models.Subscription{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
		      SET sub_is_active = TRUE,
			      sub_start_date = $2,
			      sub_end_date = $3,
			      sub_payment_ref = $4,
			      sub_last_payment_date = $2,
			      updated_at = now()
			  WHERE uid = $1
			  RETURNING sub_is_active, sub_start_date, sub_end_date, sub_payment_ref, sub_last_payment_date`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID, start, end, paymentRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Subscription{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CancelSubscription снимает флаг активности, не трогая даты окна.
// Условие WHERE повторяет предикат действующей подписки, поэтому отмена
// неактивной или истёкшей подписки не затрагивает ни одной строки и
// возвращает ErrNoActiveSubscription.
func (s *Storage) CancelSubscription(ctx context.Context, userUID string, now time.Time) (models.Subscription, error) {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return models.Subscription{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
		      SET sub_is_active = FALSE,
			      updated_at = now()
			  WHERE uid = $1
			    AND sub_is_active = TRUE
			    AND sub_end_date > $2
			  RETURNING sub_is_active, sub_start_date, sub_end_date, sub_payment_ref, sub_last_payment_date`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Subscription{}, fmt.Errorf("%s: %w", op, ErrNoActiveSubscription)
		}
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateLastLogin обновляет отметку последнего входа.
func (s *Storage) UpdateLastLogin(ctx context.Context, userUID string, now time.Time) error {
	const op = "storage.UpdateLastLogin"

	query := `UPDATE users SET last_login = $2 WHERE uid = $1`
	if _, err := s.DB.ExecContext(ctx, query, userUID, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var permissions []byte
	var startDate, endDate, lastPayment, lastLogin sql.NullTime
	var paymentRef sql.NullString
	if err := row.Scan(
		&u.UID, &u.Name, &u.Email, &u.Phone, &u.Role, &permissions,
		&u.IsActive, &u.IsVerified,
		&u.Subscription.IsActive, &startDate, &endDate, &paymentRef,
		&lastPayment, &lastLogin, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	fillOptional(u, permissions, startDate, endDate, lastPayment, lastLogin, paymentRef)
	return u, nil
}

func scanSubscription(row *sql.Row) (models.Subscription, error) {
	var sub models.Subscription
	var startDate, endDate, lastPayment sql.NullTime
	var paymentRef sql.NullString
	if err := row.Scan(&sub.IsActive, &startDate, &endDate, &paymentRef, &lastPayment); err != nil {
		return models.Subscription{}, err
	}
	if startDate.Valid {
		sub.StartDate = &startDate.Time
	}
	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	if lastPayment.Valid {
		sub.LastPaymentDate = &lastPayment.Time
	}
	sub.PaymentRef = paymentRef.String
	return sub, nil
}

func fillOptional(u *models.User, permissions []byte, startDate, endDate, lastPayment, lastLogin sql.NullTime, paymentRef sql.NullString) {
	if len(permissions) > 0 {
		_ = json.Unmarshal(permissions, &u.Permissions)
	}
	if startDate.Valid {
		u.Subscription.StartDate = &startDate.Time
	}
	if endDate.Valid {
		u.Subscription.EndDate = &endDate.Time
	}
	if lastPayment.Valid {
		u.Subscription.LastPaymentDate = &lastPayment.Time
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	u.Subscription.PaymentRef = paymentRef.String
}
