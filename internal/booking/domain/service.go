package domain

import (
	"context"
	"errors"
)

type Service interface {
	GetByRef(ctx context.Context, ref string) (Booking, error)
	ListByEmail(ctx context.Context, email string) ([]Booking, error)
	Communications(ctx context.Context, ref string) ([]Communication, error)
	Quote(ctx context.Context, priceRupees int64, participants int) (Quote, error)
	Stats(ctx context.Context) (Stats, error)
}

var (
	ErrNotFound               = errors.New("booking_not_found")
	ErrInvalidRef             = errors.New("invalid_booking_ref")
	ErrInvalidEmail           = errors.New("invalid_email")
	ErrInvalidParticipants    = errors.New("invalid_participants")
	ErrInvalidTransition      = errors.New("invalid_status_transition")
	ErrCancellationNotAllowed = errors.New("cancellation_not_allowed")
)
