package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReceipt(t *testing.T) {
	provider := New()
	reader, err := provider.GenerateReceipt(context.Background(), ReceiptData{
		BookingRef:    "TRVM1ABCD1234",
		Status:        "CONFIRMED",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		EventTitle:    "Hampta Pass Trek",
		EventDate:     "12 Jun 2026",
		Participants:  1,
		Lines: []ReceiptLine{
			{Label: "Base fare (1 x INR 1,199.00)", Amount: "INR 1,199.00"},
		},
		Total: "INR 1,287.25",
	})
	require.NoError(t, err)

	raw, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, len(raw) > 4)
	assert.Equal(t, "%PDF", string(raw[:4]))
}

func TestGenerateReceiptRequiresReference(t *testing.T) {
	_, err := New().GenerateReceipt(context.Background(), ReceiptData{})
	assert.ErrorIs(t, err, ErrMissingReference)
}
