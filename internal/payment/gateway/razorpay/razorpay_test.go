package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	client := New(Config{KeyID: "rzp_test_key", KeySecret: "secret"})

	signature := Sign("secret", "order_1", "pay_1")
	require.NoError(t, client.VerifySignature("order_1", "pay_1", signature))

	err := client.VerifySignature("order_1", "pay_2", signature)
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureMismatch)

	err = client.VerifySignature("order_1", "pay_1", Sign("wrong", "order_1", "pay_1"))
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureMismatch)

	err = client.VerifySignature("order_1", "pay_1", "")
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureMismatch)
}

func TestUnconfiguredClient(t *testing.T) {
	client := New(Config{})

	_, err := client.CreateOrder(context.Background(), paymentdomain.OrderRequest{Amount: 100})
	assert.ErrorIs(t, err, paymentdomain.ErrGatewayNotConfigured)

	err = client.VerifySignature("order_1", "pay_1", "sig")
	assert.ErrorIs(t, err, paymentdomain.ErrGatewayNotConfigured)

	_, err = client.Refund(context.Background(), paymentdomain.RefundRequest{PaymentID: "pay_1", Amount: 10})
	assert.ErrorIs(t, err, paymentdomain.ErrGatewayNotConfigured)
}

func TestCreateOrder(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(128725), body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, "TRVABC123", body["receipt"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "order_abc",
			"entity":     "order",
			"amount":     128725,
			"currency":   "INR",
			"receipt":    "TRVABC123",
			"status":     "created",
			"created_at": created.Unix(),
		})
	}))
	defer server.Close()

	client := New(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: server.URL})
	order, err := client.CreateOrder(context.Background(), paymentdomain.OrderRequest{
		Amount:  128725,
		Receipt: "TRVABC123",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(128725), order.Amount)
	assert.Equal(t, "created", order.Status)
	assert.True(t, order.CreatedAt.Equal(created))
}

func TestCreateOrderGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be at least INR 1.00"}}`))
	}))
	defer server.Close()

	client := New(Config{KeyID: "k", KeySecret: "s", BaseURL: server.URL})
	_, err := client.CreateOrder(context.Background(), paymentdomain.OrderRequest{Amount: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, paymentdomain.ErrGatewayRequest))
	assert.Contains(t, err.Error(), "The amount must be at least INR 1.00")
}

func TestRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay_1/refund", r.URL.Path)
		assert.Equal(t, "refund-key", r.Header.Get("X-Idempotency-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(115852), body["amount"])

		_, _ = w.Write([]byte(`{"id":"rfnd_1","entity":"refund","payment_id":"pay_1","amount":115852,"status":"processed"}`))
	}))
	defer server.Close()

	client := New(Config{KeyID: "k", KeySecret: "s", BaseURL: server.URL})
	refund, err := client.Refund(context.Background(), paymentdomain.RefundRequest{
		PaymentID:      "pay_1",
		Amount:         115852,
		IdempotencyKey: "refund-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", refund.ID)
	assert.Equal(t, "processed", refund.Status)
}

func TestRefundRejectsEmptyInput(t *testing.T) {
	client := New(Config{KeyID: "k", KeySecret: "s"})
	_, err := client.Refund(context.Background(), paymentdomain.RefundRequest{Amount: 10})
	assert.ErrorIs(t, err, paymentdomain.ErrGatewayRequest)
}
