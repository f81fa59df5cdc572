package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanCancel(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status Status
		event  time.Time
		want   bool
	}{
		{name: "ten days out", status: StatusConfirmed, event: now.AddDate(0, 0, 10), want: true},
		{name: "five days out", status: StatusConfirmed, event: now.AddDate(0, 0, 5), want: true},
		{name: "exactly three days", status: StatusConfirmed, event: now.AddDate(0, 0, 3), want: false},
		{name: "two days out", status: StatusConfirmed, event: now.AddDate(0, 0, 2), want: false},
		{name: "pending", status: StatusPending, event: now.AddDate(0, 0, 10), want: false},
		{name: "already cancelled", status: StatusCancelled, event: now.AddDate(0, 0, 10), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Booking{Status: tc.status, EventDate: tc.event}
			assert.Equal(t, tc.want, CanCancel(b, now))
		})
	}
}

func TestRefundAmount(t *testing.T) {
	assert.Equal(t, int64(115853), RefundAmount(128725, 10))
	assert.Equal(t, int64(64363), RefundAmount(128725, 5))
	assert.Equal(t, int64(64363), RefundAmount(128725, 7))
	assert.Equal(t, int64(0), RefundAmount(128725, 3))
	assert.Equal(t, int64(0), RefundAmount(128725, 1))
}

func TestZeroRefundTierUnreachableThroughGate(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for hours := 0; hours <= 24*3; hours += 6 {
		b := Booking{Status: StatusConfirmed, EventDate: now.Add(time.Duration(hours) * time.Hour)}
		assert.False(t, CanCancel(b, now), "hours=%d", hours)
		assert.Equal(t, int64(0), RefundAmount(1000, DaysUntil(b.EventDate, now)))
	}
}
