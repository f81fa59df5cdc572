package pdf

import (
	"context"
	"errors"
	"io"
)

// ErrDisabled is returned when receipts are switched off.
var ErrDisabled = errors.New("receipts_disabled")

// Provider renders booking documents.
type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

// NoOpProvider renders nothing. Emails go out without the attachment.
type NoOpProvider struct{}

func (*NoOpProvider) GenerateReceipt(context.Context, ReceiptData) (io.Reader, error) {
	return nil, ErrDisabled
}
