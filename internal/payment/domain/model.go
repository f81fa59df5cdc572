package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

// Payment records a verified gateway transaction. Customer and event fields
// are copied from the booking so the receipt survives later booking changes.
type Payment struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	BookingID        snowflake.ID `gorm:"not null;index" json:"booking_id"`
	BookingRef       string       `gorm:"not null" json:"booking_ref"`
	Gateway          string       `gorm:"not null" json:"gateway"`
	GatewayOrderID   string       `gorm:"not null" json:"gateway_order_id"`
	GatewayPaymentID string       `gorm:"not null;uniqueIndex" json:"gateway_payment_id"`
	GatewaySignature string       `gorm:"not null" json:"-"`
	Amount           int64        `gorm:"not null" json:"amount"`
	Currency         string       `gorm:"not null" json:"currency"`
	Status           Status       `gorm:"not null" json:"status"`

	CustomerName  string       `gorm:"not null" json:"customer_name"`
	CustomerEmail string       `gorm:"not null" json:"customer_email"`
	CustomerPhone string       `gorm:"not null" json:"customer_phone"`
	EventID       snowflake.ID `gorm:"not null" json:"event_id"`
	EventTitle    string       `gorm:"not null" json:"event_title"`
	EventDate     time.Time    `gorm:"not null" json:"event_date"`
	Participants  int          `gorm:"not null" json:"participants"`

	RefundAmount      int64      `gorm:"not null;default:0" json:"refund_amount"`
	RefundStatus      string     `json:"refund_status,omitempty"`
	RefundReason      string     `json:"refund_reason,omitempty"`
	GatewayRefundID   string     `json:"gateway_refund_id,omitempty"`
	RefundRequestedAt *time.Time `json:"refund_requested_at,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`

	PaidAt    time.Time `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
