package cancel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/http/response"
	"github.com/agroculture/marketplace/internal/models"
	subscriptionservice "github.com/agroculture/marketplace/internal/services/subscription"
)

type SubscriptionServiceMock struct {
	mock.Mock
}

func (m *SubscriptionServiceMock) Cancel(ctx context.Context, userUID string, now time.Time) (models.Subscription, error) {
	args := m.Called(ctx, userUID, now)
	return args.Get(0).(models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCancelHandler_ServeHTTP(t *testing.T) {
	user := &models.User{UID: "uid-1", Role: models.RoleFarmer}
	end := time.Now().Add(10 * 24 * time.Hour)

	tests := []struct {
		name           string
		setupMocks     func(*SubscriptionServiceMock)
		wantStatusCode int
		wantCode       string
	}{
		{
			name: "cancel succeeds and keeps end date",
			setupMocks: func(s *SubscriptionServiceMock) {
				s.On("Cancel", mock.Anything, "uid-1", mock.Anything).
					Return(models.Subscription{IsActive: false, EndDate: &end}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "second cancel fails",
			setupMocks: func(s *SubscriptionServiceMock) {
				s.On("Cancel", mock.Anything, "uid-1", mock.Anything).
					Return(models.Subscription{}, subscriptionservice.ErrNoActiveSubscription).Once()
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       response.CodeNoActiveSubscription,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(SubscriptionServiceMock)
			tt.setupMocks(service)

			handler := New(newNoopLogger(), service)

			req := httptest.NewRequest(http.MethodPost, "/payments/cancel-subscription", nil)
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			ctx = context.WithValue(ctx, middlewarectx.UserKey, user)
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

			if tt.wantStatusCode == http.StatusOK {
				assert.Equal(t, true, got["success"])
				sub, ok := got["subscription"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, false, sub["isActive"])
				assert.NotNil(t, sub["endDate"], "end date must survive cancellation")
			} else {
				assert.Equal(t, tt.wantCode, got["code"])
			}

			service.AssertExpectations(t)
		})
	}
}
