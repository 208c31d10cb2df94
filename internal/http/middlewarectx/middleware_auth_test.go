package middlewarectx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/models"
	"github.com/agroculture/marketplace/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Authenticate(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func okHandler(t *testing.T, wantUID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok, "user must be in context")
		assert.Equal(t, wantUID, user.UID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	activeUser := &models.User{UID: "uid-1", Role: models.RoleFarmer, IsActive: true}

	tests := []struct {
		name           string
		authHeader     string
		setupMocks     func(*AuthServiceMock)
		wantStatusCode int
		wantCode       string
	}{
		{
			name:           "missing authorization header",
			authHeader:     "",
			setupMocks:     func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "header without bearer prefix",
			authHeader:     "Token abc",
			setupMocks:     func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "invalid token stays opaque",
			authHeader: "Bearer bad-token",
			setupMocks: func(s *AuthServiceMock) {
				s.On("Authenticate", mock.Anything, "bad-token").
					Return(nil, fmt.Errorf("auth.Authenticate: %w", auth.ErrUnauthorized)).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "deactivated account gets distinct code",
			authHeader: "Bearer good-token",
			setupMocks: func(s *AuthServiceMock) {
				s.On("Authenticate", mock.Anything, "good-token").
					Return(nil, fmt.Errorf("auth.Authenticate: %w", auth.ErrAccountDeactivated)).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
			wantCode:       response.CodeAccountDeactivated,
		},
		{
			name:       "valid token passes user downstream",
			authHeader: "Bearer good-token",
			setupMocks: func(s *AuthServiceMock) {
				s.On("Authenticate", mock.Anything, "good-token").Return(activeUser, nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(AuthServiceMock)
			tt.setupMocks(service)

			handler := Authenticate(service, newNoopLogger())(okHandler(t, "uid-1"))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			if tt.wantCode != "" {
				var got map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, tt.wantCode, got["code"])
			}

			service.AssertExpectations(t)
		})
	}
}

func TestAuthorize(t *testing.T) {
	future := time.Now().Add(10 * 24 * time.Hour)

	tests := []struct {
		name           string
		user           *models.User
		allowedRoles   []string
		wantStatusCode int
		wantCode       string
	}{
		{
			name:           "allowed role passes",
			user:           &models.User{UID: "uid-1", Role: models.RoleFarmer},
			allowedRoles:   []string{models.RoleFarmer, models.RoleAdmin},
			wantStatusCode: http.StatusOK,
		},
		{
			// Фильтр ролей стоит раньше фильтра подписки: покупатель с
			// действующей подпиской всё равно не попадает на фермерский маршрут.
			name: "wrong role rejected even with active subscription",
			user: &models.User{
				UID:          "uid-1",
				Role:         models.RoleBuyer,
				Subscription: models.Subscription{IsActive: true, EndDate: &future},
			},
			allowedRoles:   []string{models.RoleFarmer, models.RoleAdmin},
			wantStatusCode: http.StatusForbidden,
			wantCode:       response.CodeRoleNotAllowed,
		},
		{
			name:           "admin is not implicit",
			user:           &models.User{UID: "uid-1", Role: models.RoleAdmin},
			allowedRoles:   []string{models.RoleTransporter},
			wantStatusCode: http.StatusForbidden,
			wantCode:       response.CodeRoleNotAllowed,
		},
		{
			name:           "missing user means authenticate did not run",
			user:           nil,
			allowedRoles:   []string{models.RoleFarmer},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := Authorize(newNoopLogger(), tt.allowedRoles...)(next)

			req := httptest.NewRequest(http.MethodGet, "/products", nil)
			if tt.user != nil {
				req = req.WithContext(context.WithValue(req.Context(), UserKey, tt.user))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			if tt.wantCode != "" {
				var got map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, tt.wantCode, got["code"])
			}
		})
	}
}

func TestRequireSubscription(t *testing.T) {
	future := time.Now().Add(10 * 24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name           string
		user           *models.User
		wantStatusCode int
	}{
		{
			name: "active subscription passes",
			user: &models.User{
				UID:          "uid-1",
				Role:         models.RoleFarmer,
				Subscription: models.Subscription{IsActive: true, EndDate: &future},
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "admin exempt without subscription",
			user:           &models.User{UID: "uid-1", Role: models.RoleAdmin},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "never subscribed",
			user:           &models.User{UID: "uid-1", Role: models.RoleFarmer},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name: "expired subscription",
			user: &models.User{
				UID:          "uid-1",
				Role:         models.RoleFarmer,
				Subscription: models.Subscription{IsActive: true, EndDate: &past},
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name: "cancelled subscription loses guard access",
			user: &models.User{
				UID:          "uid-1",
				Role:         models.RoleFarmer,
				Subscription: models.Subscription{IsActive: false, EndDate: &future},
			},
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := RequireSubscription(newNoopLogger(), 4900, "INR")(next)

			req := httptest.NewRequest(http.MethodGet, "/products", nil)
			req = req.WithContext(context.WithValue(req.Context(), UserKey, tt.user))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			if tt.wantStatusCode == http.StatusForbidden {
				var got map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, response.CodeSubscriptionRequired, got["code"])
				status, ok := got["subscriptionStatus"].(map[string]any)
				require.True(t, ok, "403 must carry a subscription snapshot")
				assert.Equal(t, float64(4900), status["amount"])
				assert.Equal(t, "INR", status["currency"])
			}
		})
	}
}
