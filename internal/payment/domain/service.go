package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// GetByID accepts either the payment's own id or the gateway payment id.
	GetByID(ctx context.Context, id string) (Payment, error)
	FindByBookingID(ctx context.Context, bookingID snowflake.ID) (*Payment, error)
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*Payment, error)
}

var (
	ErrNotFound  = errors.New("payment_not_found")
	ErrInvalidID = errors.New("invalid_payment_id")
)
