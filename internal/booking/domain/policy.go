package domain

import "time"

// CancellationWindowDays is the minimum lead time for a customer cancellation.
const CancellationWindowDays = 3

// DaysUntil returns the fractional number of days from now to the event date.
func DaysUntil(eventDate, now time.Time) float64 {
	return eventDate.Sub(now).Hours() / 24
}

// CanCancel reports whether a customer may cancel b at now.
func CanCancel(b Booking, now time.Time) bool {
	return b.Status == StatusConfirmed && DaysUntil(b.EventDate, now) > CancellationWindowDays
}

// RefundAmount returns the refund owed on total for a cancellation days ahead
// of the event. Late tiers return zero; CanCancel rejects them first.
func RefundAmount(total int64, days float64) int64 {
	switch {
	case days > 7:
		return percentOf(total, 9000)
	case days > CancellationWindowDays:
		return percentOf(total, 5000)
	default:
		return 0
	}
}
