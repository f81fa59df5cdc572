package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
)

const (
	Provider       = "razorpay"
	DefaultBaseURL = "https://api.razorpay.com/v1"
	defaultTimeout = 10 * time.Second
)

type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func New(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		keyID:     strings.TrimSpace(cfg.KeyID),
		keySecret: strings.TrimSpace(cfg.KeySecret),
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return Provider }

func (c *Client) KeyID() string { return c.keyID }

func (c *Client) configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

type orderPayload struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type refundPayload struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type refundResponse struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) CreateOrder(ctx context.Context, req paymentdomain.OrderRequest) (paymentdomain.Order, error) {
	if !c.configured() {
		return paymentdomain.Order{}, paymentdomain.ErrGatewayNotConfigured
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "INR"
	}

	var resp orderResponse
	err := c.doRequest(ctx, http.MethodPost, "/orders", orderPayload{
		Amount:   req.Amount,
		Currency: currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}, "", &resp)
	if err != nil {
		return paymentdomain.Order{}, err
	}
	if resp.ID == "" {
		return paymentdomain.Order{}, fmt.Errorf("%w: order response missing id", paymentdomain.ErrGatewayRequest)
	}

	createdAt := time.Now().UTC()
	if resp.CreatedAt > 0 {
		createdAt = time.Unix(resp.CreatedAt, 0).UTC()
	}
	return paymentdomain.Order{
		ID:        resp.ID,
		Amount:    resp.Amount,
		Currency:  resp.Currency,
		Receipt:   resp.Receipt,
		Status:    resp.Status,
		CreatedAt: createdAt,
	}, nil
}

// VerifySignature checks the checkout signature, which is the hex encoded
// HMAC-SHA256 of "order_id|payment_id" keyed with the key secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) error {
	if !c.configured() {
		return paymentdomain.ErrGatewayNotConfigured
	}
	signature = strings.TrimSpace(signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return paymentdomain.ErrSignatureMismatch
	}
	expected := Sign(c.keySecret, orderID, paymentID)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrSignatureMismatch
	}
	return nil
}

func (c *Client) Refund(ctx context.Context, req paymentdomain.RefundRequest) (paymentdomain.Refund, error) {
	if !c.configured() {
		return paymentdomain.Refund{}, paymentdomain.ErrGatewayNotConfigured
	}
	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" || req.Amount <= 0 {
		return paymentdomain.Refund{}, fmt.Errorf("%w: refund requires payment id and amount", paymentdomain.ErrGatewayRequest)
	}

	var resp refundResponse
	err := c.doRequest(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", refundPayload{
		Amount: req.Amount,
		Notes:  req.Notes,
	}, req.IdempotencyKey, &resp)
	if err != nil {
		return paymentdomain.Refund{}, err
	}
	if resp.ID == "" {
		return paymentdomain.Refund{}, fmt.Errorf("%w: refund response missing id", paymentdomain.ErrGatewayRequest)
	}
	return paymentdomain.Refund{
		ID:        resp.ID,
		PaymentID: resp.PaymentID,
		Amount:    resp.Amount,
		Status:    resp.Status,
	}, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	payload any,
	idempotencyKey string,
	out any,
) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrGatewayRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var gatewayErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&gatewayErr); err != nil {
			return fmt.Errorf("%w: status %d", paymentdomain.ErrGatewayRequest, resp.StatusCode)
		}
		message := strings.TrimSpace(gatewayErr.Error.Description)
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", paymentdomain.ErrGatewayRequest, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", paymentdomain.ErrGatewayRequest, err)
	}
	return nil
}

// Sign computes the checkout signature for an order and payment pair.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ paymentdomain.Gateway = (*Client)(nil)
