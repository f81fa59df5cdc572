package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitions(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusCancelled, StatusRefunded},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	denied := [][2]Status{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusRefunded},
		{StatusConfirmed, StatusPending},
		{StatusConfirmed, StatusRefunded},
		{StatusCompleted, StatusCancelled},
		{StatusRefunded, StatusCancelled},
		{StatusCancelled, StatusConfirmed},
	}
	for _, pair := range denied {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}

func TestBookingTransition(t *testing.T) {
	b := Booking{Status: StatusPending}
	assert.NoError(t, b.Transition(StatusConfirmed))
	assert.Equal(t, StatusConfirmed, b.Status)

	err := b.Transition(StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusConfirmed, b.Status)
}
