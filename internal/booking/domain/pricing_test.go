package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQuoteSingleParticipant(t *testing.T) {
	q := NewQuote(1199, 1, DefaultRates())

	assert.Equal(t, int64(119900), q.BaseAmount)
	assert.Equal(t, int64(0), q.DiscountAmount)
	assert.Equal(t, int64(119900), q.Subtotal)
	assert.Equal(t, int64(5995), q.BookingFee)
	assert.Equal(t, int64(2398), q.ProcessingFee)
	assert.Equal(t, int64(432), q.TaxAmount)
	assert.Equal(t, int64(128725), q.TotalAmount)
	assert.Equal(t, "INR", q.Currency)
}

func TestNewQuoteGroupDiscount(t *testing.T) {
	q := NewQuote(1199, 5, DefaultRates())

	assert.Equal(t, int64(599500), q.BaseAmount)
	assert.Equal(t, int64(59950), q.DiscountAmount)
	assert.Equal(t, int64(539550), q.Subtotal)
	assert.Equal(t, int64(29975), q.BookingFee)
	assert.Equal(t, int64(10791), q.ProcessingFee)
	assert.Equal(t, int64(1942), q.TaxAmount)
	assert.Equal(t, int64(582258), q.TotalAmount)
}

func TestNewQuoteBelowThreshold(t *testing.T) {
	q := NewQuote(1000, 4, DefaultRates())
	assert.Equal(t, int64(0), q.DiscountAmount)
	assert.Equal(t, q.BaseAmount, q.Subtotal)
}

func TestPercentOfRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(1), percentOf(5, 1000))   // 0.5
	assert.Equal(t, int64(0), percentOf(4, 1000))   // 0.4
	assert.Equal(t, int64(432), percentOf(2398, 1800))
	assert.Equal(t, int64(0), percentOf(0, 1800))
	assert.Equal(t, int64(0), percentOf(100, 0))
}

func TestWithinTolerance(t *testing.T) {
	q := NewQuote(1199, 1, DefaultRates())

	assert.True(t, q.WithinTolerance(1287.25, 1))
	assert.True(t, q.WithinTolerance(1287, 1))
	assert.True(t, q.WithinTolerance(1288.25, 1))
	assert.False(t, q.WithinTolerance(1288.26, 1))
	assert.False(t, q.WithinTolerance(1199, 1))
	assert.False(t, q.WithinTolerance(-1, 1))
}

func TestQuoteApply(t *testing.T) {
	var b Booking
	q := NewQuote(1199, 5, DefaultRates())
	q.Apply(&b)

	assert.Equal(t, q.TotalAmount, b.TotalAmount)
	assert.Equal(t, q.DiscountAmount, b.DiscountAmount)
	assert.Equal(t, "INR", b.Currency)
}
