package domain

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=../gateway/mock/mock_gateway.go -package=mock github.com/smallbiznis/trailbook/internal/payment/domain Gateway

// Gateway is the payment provider boundary. Amounts are in the currency's
// smallest unit (paise for INR).
type Gateway interface {
	Name() string
	KeyID() string
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	VerifySignature(orderID, paymentID, signature string) error
	Refund(ctx context.Context, req RefundRequest) (Refund, error)
}

type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type RefundRequest struct {
	PaymentID      string
	Amount         int64
	IdempotencyKey string
	Notes          map[string]string
}

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

var (
	ErrGatewayNotConfigured = errors.New("gateway_not_configured")
	ErrGatewayRequest       = errors.New("gateway_request_failed")
	ErrSignatureMismatch    = errors.New("signature_mismatch")
)
