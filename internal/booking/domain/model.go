package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusCreated   PaymentStatus = "created"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type RefundStatus string

const (
	RefundStatusNone      RefundStatus = ""
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

const DefaultCurrency = "INR"

// Booking is a customer's intent to attend an event. Event and customer
// fields are snapshots taken at order time. Amounts are in paise.
type Booking struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BookingRef string       `gorm:"not null;uniqueIndex" json:"booking_ref"`
	Status     Status       `gorm:"not null" json:"status"`

	CustomerName  string `gorm:"not null" json:"customer_name"`
	CustomerEmail string `gorm:"not null;index" json:"customer_email"`
	CustomerPhone string `gorm:"not null" json:"customer_phone"`

	EventID       snowflake.ID `gorm:"not null;index" json:"event_id"`
	EventTitle    string       `gorm:"not null" json:"event_title"`
	EventDate     time.Time    `gorm:"not null" json:"event_date"`
	EventLocation string       `json:"event_location"`
	EventDuration string       `json:"event_duration"`
	EventPrice    int64        `gorm:"not null" json:"event_price"`

	Participants        int    `gorm:"not null" json:"participants"`
	SpecialRequirements string `json:"special_requirements,omitempty"`

	BaseAmount     int64  `gorm:"not null" json:"base_amount"`
	DiscountAmount int64  `gorm:"not null" json:"discount_amount"`
	BookingFee     int64  `gorm:"not null" json:"booking_fee"`
	ProcessingFee  int64  `gorm:"not null" json:"processing_fee"`
	TaxAmount      int64  `gorm:"not null" json:"tax_amount"`
	TotalAmount    int64  `gorm:"not null" json:"total_amount"`
	Currency       string `gorm:"not null" json:"currency"`

	GatewayOrderID   string        `json:"gateway_order_id"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	PaymentStatus    PaymentStatus `gorm:"not null" json:"payment_status"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`

	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`

	CancelledAt        *time.Time   `json:"cancelled_at,omitempty"`
	CancellationReason string       `json:"cancellation_reason,omitempty"`
	RefundAmount       int64        `gorm:"not null;default:0" json:"refund_amount"`
	RefundStatus       RefundStatus `json:"refund_status,omitempty"`
	RefundedAt         *time.Time   `json:"refunded_at,omitempty"`
	ReminderSentAt     *time.Time   `json:"reminder_sent_at,omitempty"`

	IdempotencyKey *string `json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// HoldsSeats reports whether the booking counts against event capacity at t.
func (b Booking) HoldsSeats(t time.Time) bool {
	switch b.Status {
	case StatusConfirmed, StatusCompleted:
		return true
	case StatusPending:
		return b.HoldExpiresAt != nil && b.HoldExpiresAt.After(t)
	default:
		return false
	}
}

type CommunicationKind string

const (
	CommOrderCreated     CommunicationKind = "order_created"
	CommPaymentConfirmed CommunicationKind = "payment_confirmed"
	CommPaymentFailed    CommunicationKind = "payment_failed"
	CommCancellation     CommunicationKind = "cancellation"
	CommRefund           CommunicationKind = "refund"
	CommReminder         CommunicationKind = "reminder"
	CommCompleted        CommunicationKind = "completed"
)

type Channel string

const (
	ChannelSystem Channel = "system"
	ChannelEmail  Channel = "email"
)

// Communication is an append-only log line attached to a booking.
type Communication struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	BookingID snowflake.ID      `gorm:"not null;index" json:"booking_id"`
	Kind      CommunicationKind `gorm:"not null" json:"kind"`
	Channel   Channel           `gorm:"not null" json:"channel"`
	Message   string            `gorm:"not null" json:"message"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
}

func (Communication) TableName() string { return "booking_communications" }

// Stats aggregates bookings for the admin dashboard.
type Stats struct {
	ByStatus         map[Status]int64 `json:"by_status"`
	TotalBookings    int64            `json:"total_bookings"`
	ConfirmedRevenue int64            `json:"confirmed_revenue"`
	RefundedTotal    int64            `json:"refunded_total"`
	Participants     int64            `json:"participants"`
}
