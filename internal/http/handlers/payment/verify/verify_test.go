package verify

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
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agroculture/marketplace/internal/http/middlewarectx"
	"github.com/agroculture/marketplace/internal/models"
	paymentservice "github.com/agroculture/marketplace/internal/services/payment"
)

type PaymentServiceMock struct {
	mock.Mock
}

func (m *PaymentServiceMock) VerifyPayment(ctx context.Context, user *models.User, orderID, paymentID, signature string) (*paymentservice.VerifyResult, error) {
	args := m.Called(ctx, user, orderID, paymentID, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentservice.VerifyResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestVerifyHandler_ServeHTTP(t *testing.T) {
	user := &models.User{UID: "uid-1", Role: models.RoleFarmer}
	end := time.Now().Add(30 * 24 * time.Hour)

	tests := []struct {
		name           string
		requestBody    any
		withUser       bool
		setupMocks     func(*PaymentServiceMock)
		wantStatusCode int
		wantMessage    string
	}{
		{
			name:        "successful verification",
			requestBody: Request{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"},
			withUser:    true,
			setupMocks: func(s *PaymentServiceMock) {
				s.On("VerifyPayment", mock.Anything, user, "order_1", "pay_1", "sig").
					Return(&paymentservice.VerifyResult{
						Subscription: models.Subscription{IsActive: true, EndDate: &end},
						Amount:       49.0,
						Currency:     "INR",
					}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantMessage:    "Subscription activated successfully",
		},
		{
			name:           "missing fields",
			requestBody:    Request{OrderID: "order_1"},
			withUser:       true,
			setupMocks:     func(_ *PaymentServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Missing payment verification details",
		},
		{
			name:           "invalid json",
			requestBody:    "not a json",
			withUser:       true,
			setupMocks:     func(_ *PaymentServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:        "signature mismatch",
			requestBody: Request{OrderID: "order_1", PaymentID: "pay_1", Signature: "tampered"},
			withUser:    true,
			setupMocks: func(s *PaymentServiceMock) {
				s.On("VerifyPayment", mock.Anything, user, "order_1", "pay_1", "tampered").
					Return(nil, paymentservice.ErrVerificationFailed).Once()
			},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Payment verification failed",
		},
		{
			name:        "payment not captured",
			requestBody: Request{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"},
			withUser:    true,
			setupMocks: func(s *PaymentServiceMock) {
				s.On("VerifyPayment", mock.Anything, user, "order_1", "pay_1", "sig").
					Return(nil, paymentservice.ErrPaymentNotCaptured).Once()
			},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Payment not captured",
		},
		{
			name:        "gateway failure",
			requestBody: Request{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"},
			withUser:    true,
			setupMocks: func(s *PaymentServiceMock) {
				s.On("VerifyPayment", mock.Anything, user, "order_1", "pay_1", "sig").
					Return(nil, errors.New("gateway unavailable")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:           "no user in context",
			requestBody:    Request{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"},
			withUser:       false,
			setupMocks:     func(_ *PaymentServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(PaymentServiceMock)
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

			req := httptest.NewRequest(http.MethodPost, "/payments/verify", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.withUser {
				ctx = context.WithValue(ctx, middlewarectx.UserKey, user)
			}
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
				assert.Equal(t, true, sub["isActive"])
				assert.Equal(t, 49.0, sub["amount"])
			} else {
				assert.Equal(t, false, got["success"])
			}
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, got["message"])
			}

			service.AssertExpectations(t)
		})
	}
}
