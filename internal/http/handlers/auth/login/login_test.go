package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/models"
	authservice "github.com/agroculture/marketplace/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	args := m.Called(ctx, email, rawPassword)
	user, _ := args.Get(1).(*models.User)
	return args.String(0), user, args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	user := &models.User{
		UID:   "uid-1",
		Name:  "Farmer One",
		Email: "farmer@example.com",
		Role:  models.RoleFarmer,
	}

	tests := []struct {
		name           string
		requestBody    any
		setupMocks     func(*AuthServiceMock)
		wantStatusCode int
		wantCode       string
	}{
		{
			name:        "valid login returns token",
			requestBody: Request{Email: "farmer@example.com", Password: "password123"},
			setupMocks: func(s *AuthServiceMock) {
				s.On("Login", mock.Anything, "farmer@example.com", "password123").
					Return("jwt-token", user, nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid json",
			requestBody:    "not a json",
			setupMocks:     func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing password",
			requestBody:    Request{Email: "farmer@example.com"},
			setupMocks:     func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:        "wrong credentials",
			requestBody: Request{Email: "farmer@example.com", Password: "wrongpassword"},
			setupMocks: func(s *AuthServiceMock) {
				s.On("Login", mock.Anything, "farmer@example.com", "wrongpassword").
					Return("", nil, authservice.ErrInvalidCredentials).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:        "deactivated account",
			requestBody: Request{Email: "farmer@example.com", Password: "password123"},
			setupMocks: func(s *AuthServiceMock) {
				s.On("Login", mock.Anything, "farmer@example.com", "password123").
					Return("", nil, authservice.ErrAccountDeactivated).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
			wantCode:       response.CodeAccountDeactivated,
		},
		{
			name:        "storage failure",
			requestBody: Request{Email: "farmer@example.com", Password: "password123"},
			setupMocks: func(s *AuthServiceMock) {
				s.On("Login", mock.Anything, "farmer@example.com", "password123").
					Return("", nil, errors.New("db down")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(AuthServiceMock)
			tt.setupMocks(service)

			handler := New(newNoopLogger(), service)

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

			if tt.wantStatusCode == http.StatusOK {
				assert.Equal(t, true, got["success"])
				assert.Equal(t, "jwt-token", got["token"])
				u, ok := got["user"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "uid-1", u["uid"])
				assert.Equal(t, models.RoleFarmer, u["role"])
			} else {
				assert.Equal(t, false, got["success"])
			}
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, got["code"])
			}

			service.AssertExpectations(t)
		})
	}
}
