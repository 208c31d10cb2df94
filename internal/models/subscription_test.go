package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscription_HasActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{
			name: "never subscribed",
			sub:  Subscription{},
			want: false,
		},
		{
			name: "active with future end date",
			sub:  Subscription{IsActive: true, EndDate: &future},
			want: true,
		},
		{
			name: "active flag set but period expired",
			sub:  Subscription{IsActive: true, EndDate: &past},
			want: false,
		},
		{
			name: "cancelled but period not over",
			sub:  Subscription{IsActive: false, EndDate: &future},
			want: false,
		},
		{
			name: "active flag without end date",
			sub:  Subscription{IsActive: true},
			want: false,
		},
		{
			name: "end date equals now",
			sub:  Subscription{IsActive: true, EndDate: &now},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.HasActive(now))
		})
	}
}

func TestSubscription_DaysRemaining(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sub  Subscription
		want int
	}{
		{
			name: "no end date",
			sub:  Subscription{},
			want: 0,
		},
		{
			name: "expired subscription never negative",
			sub:  Subscription{EndDate: timePtr(now.Add(-72 * time.Hour))},
			want: 0,
		},
		{
			name: "partial day rounds up",
			sub:  Subscription{EndDate: timePtr(now.Add(1 * time.Hour))},
			want: 1,
		},
		{
			name: "exactly ten days",
			sub:  Subscription{EndDate: timePtr(now.Add(10 * 24 * time.Hour))},
			want: 10,
		},
		{
			name: "ten days and one hour rounds up to eleven",
			sub:  Subscription{EndDate: timePtr(now.Add(10*24*time.Hour + time.Hour))},
			want: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.DaysRemaining(now))
		})
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
