package domain

import (
	"context"
	"errors"
	"time"

	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
)

type Customer struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=7,max=20"`
}

// CreateOrderRequest carries the client's view of the total in rupees. The
// server recomputes the quote and only tolerates rounding differences.
type CreateOrderRequest struct {
	Amount              float64  `json:"amount" validate:"required,gt=0"`
	EventID             string   `json:"eventId" validate:"required"`
	Customer            Customer `json:"customer"`
	Participants        int      `json:"participants" validate:"gte=0"`
	SpecialRequirements string   `json:"specialRequirements" validate:"max=1000"`
	IdempotencyKey      string   `json:"-"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Key      string `json:"key"`
}

type EventSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location,omitempty"`
	Duration string    `json:"duration,omitempty"`
}

type CreateOrderResponse struct {
	Order     Order               `json:"order"`
	BookingID string              `json:"bookingId"`
	Quote     bookingdomain.Quote `json:"quote"`
	Event     EventSummary        `json:"event"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	BookingID string `json:"bookingId" validate:"required"`
}

type VerifyPaymentResponse struct {
	BookingID string       `json:"bookingId"`
	PaymentID string       `json:"paymentId"`
	Status    string       `json:"status"`
	Amount    int64        `json:"amount"`
	Currency  string       `json:"currency"`
	Event     EventSummary `json:"event"`
}

type CancelBookingRequest struct {
	BookingID string `json:"-" validate:"required"`
	Reason    string `json:"reason" validate:"max=500"`
}

type CancelBookingResponse struct {
	BookingID    string                     `json:"bookingId"`
	Status       bookingdomain.Status       `json:"status"`
	RefundAmount int64                      `json:"refundAmount"`
	RefundStatus bookingdomain.RefundStatus `json:"refundStatus"`
}

type BookingDetails struct {
	Booking bookingdomain.Booking  `json:"booking"`
	Payment *paymentdomain.Payment `json:"payment,omitempty"`
}

// Service orchestrates bookings and payments. Booking ids exposed to clients
// are booking references.
type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (VerifyPaymentResponse, error)
	CancelBooking(ctx context.Context, req CancelBookingRequest) (CancelBookingResponse, error)

	GetBooking(ctx context.Context, ref string) (BookingDetails, error)
	ListBookings(ctx context.Context, email string) ([]bookingdomain.Booking, error)
	GetPayment(ctx context.Context, id string) (paymentdomain.Payment, error)
	Receipt(ctx context.Context, ref string) ([]byte, error)

	// Lifecycle steps driven by the scheduler.
	Abandon(ctx context.Context, ref string) (bookingdomain.Booking, error)
	Complete(ctx context.Context, ref string) (bookingdomain.Booking, error)
	SettleRefund(ctx context.Context, ref string) (bookingdomain.Booking, error)
	SendReminder(ctx context.Context, ref string) (bookingdomain.Booking, error)
}

const (
	ReasonCheckoutAbandoned  = "checkout_abandoned"
	ReasonCustomerRequest    = "customer_request"
	ReasonGatewayOrderFailed = "gateway_order_failed"
)

var (
	ErrAmountMismatch     = errors.New("amount_mismatch")
	ErrSoldOut            = errors.New("sold_out")
	ErrPaymentAlreadyUsed = errors.New("payment_already_recorded")
	ErrPaymentMissing     = errors.New("payment_missing")
	ErrReceiptUnavailable = errors.New("receipt_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

// AmountMismatchError reports the server quote when the client total is off
// by more than the tolerance. It matches ErrAmountMismatch.
type AmountMismatchError struct {
	Quote bookingdomain.Quote
}

func (e *AmountMismatchError) Error() string {
	return ErrAmountMismatch.Error()
}

func (e *AmountMismatchError) Is(target error) bool {
	return target == ErrAmountMismatch
}
